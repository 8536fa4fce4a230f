package marketplace

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestNewJobAppliesFormDefaults(t *testing.T) {
	job, err := NewJob(JobDraft{
		Budget:         50000,
		SkillsRequired: []string{"React", " React ", "", "Node.js"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.ID == "" {
		t.Fatal("expected generated id")
	}
	if job.Title != "Untitled" {
		t.Fatalf("unexpected title: %q", job.Title)
	}
	if job.Location != "Remote" {
		t.Fatalf("unexpected location: %q", job.Location)
	}
	if !slices.Equal(job.SkillsRequired, []string{"React", "Node.js"}) {
		t.Fatalf("unexpected skills: %v", job.SkillsRequired)
	}
}

func TestNewJobRejectsNegativeBudget(t *testing.T) {
	_, err := NewJob(JobDraft{Budget: -1})
	if !errors.Is(err, ErrNegativeBudget) {
		t.Fatalf("expected ErrNegativeBudget, got %v", err)
	}
}

func TestJobFingerprintIgnoresID(t *testing.T) {
	a := &Job{ID: "a", Title: "Go dev", Budget: 10, SkillsRequired: []string{"Go"}}
	b := &Job{ID: "b", Title: "Go dev", Budget: 10, SkillsRequired: []string{"Go"}}
	c := &Job{ID: "a", Title: "Go dev", Budget: 11, SkillsRequired: []string{"Go"}}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("expected equal fingerprints for equal content")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("expected different fingerprints for different budgets")
	}
}

func TestJobFingerprintSeparatesSkills(t *testing.T) {
	joined := &Job{Title: "Go dev", SkillsRequired: []string{"a,b"}}
	split := &Job{Title: "Go dev", SkillsRequired: []string{"a", "b"}}
	if joined.Fingerprint() == split.Fingerprint() {
		t.Fatal("a skill containing a comma must not collide with two skills")
	}

	shifted := &Job{Title: "Go dev", SkillsRequired: []string{"a", "b"}, Location: ""}
	moved := &Job{Title: "Go dev", SkillsRequired: []string{"a"}, Location: "b"}
	if shifted.Fingerprint() == moved.Fingerprint() {
		t.Fatal("a trailing skill must not collide with the location")
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if catalog.Len() != 8 {
		t.Fatalf("expected 8 freelancers, got %d", catalog.Len())
	}

	arjun := catalog.FindByID("f1")
	if arjun == nil {
		t.Fatal("expected f1 in catalog")
	}
	if arjun.HourlyRate != 2500 || !arjun.SpeaksLanguage("Hindi") || !arjun.LocatedIn("mumbai") {
		t.Fatalf("unexpected f1 entry: %+v", arjun)
	}
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	data := `[{"id":"x","name":"A"},{"id":"x","name":"B"}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestFreelancersKeepPreservesOrder(t *testing.T) {
	list := &Freelancers{Items: []*Freelancer{
		{ID: "1", Verified: true},
		{ID: "2"},
		{ID: "3", Verified: true},
		{ID: "4"},
	}}

	dropped := list.Keep(func(f *Freelancer) bool { return f.Verified })

	if !slices.Equal(dropped, []string{"2", "4"}) {
		t.Fatalf("unexpected dropped ids: %v", dropped)
	}
	if !slices.Equal(list.IDs(), []string{"1", "3"}) {
		t.Fatalf("unexpected kept ids: %v", list.IDs())
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Client ")
	if err != nil || role != RoleClient {
		t.Fatalf("unexpected result: %q, %v", role, err)
	}

	if _, err := ParseRole("guest"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
