package marketplace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultJobTitle    = "Untitled"
	defaultJobLocation = "Remote"
)

var ErrNegativeBudget = errors.New("budget must not be negative")

// Job is immutable once created by NewJob.
type Job struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Budget         int      `json:"budget"`
	SkillsRequired []string `json:"skillsRequired"`
	Location       string   `json:"location"`
}

// JobDraft holds the fields collected by the job posting form.
type JobDraft struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Budget         int      `json:"budget"`
	SkillsRequired []string `json:"skillsRequired"`
	Location       string   `json:"location"`
}

// NewJob turns a draft into a job, filling the same defaults the posting
// form uses for empty fields.
func NewJob(draft JobDraft) (*Job, error) {
	if draft.Budget < 0 {
		return nil, ErrNegativeBudget
	}

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		title = defaultJobTitle
	}

	location := strings.TrimSpace(draft.Location)
	if location == "" {
		location = defaultJobLocation
	}

	return &Job{
		ID:             uuid.NewString(),
		Title:          title,
		Description:    strings.TrimSpace(draft.Description),
		Budget:         draft.Budget,
		SkillsRequired: AddSkills(nil, draft.SkillsRequired...),
		Location:       location,
	}, nil
}

// AddSkills appends skills that are non-empty and not present yet.
func AddSkills(skills []string, add ...string) []string {
	for _, skill := range add {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		dup := false
		for _, existing := range skills {
			if existing == skill {
				dup = true
				break
			}
		}
		if !dup {
			skills = append(skills, skill)
		}
	}
	return skills
}

// Fingerprint identifies the job content. Two jobs with the same fields but
// different ids share a fingerprint.
func (j *Job) Fingerprint() string {
	h := sha256.New()
	write := func(part string) {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	write(j.Title)
	write(j.Description)
	write(strconv.Itoa(j.Budget))
	write(strconv.Itoa(len(j.SkillsRequired)))
	for _, skill := range j.SkillsRequired {
		write(skill)
	}
	write(j.Location)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
