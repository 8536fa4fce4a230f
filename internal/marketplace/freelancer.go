package marketplace

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Freelancer is a candidate that can be matched against a job.
type Freelancer struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Location   string   `json:"location"`
	Skills     []string `json:"skills"`
	HourlyRate int      `json:"hourlyRate"`
	Languages  []string `json:"languages"`
	Rating     float64  `json:"rating"`
	Verified   bool     `json:"verified"`
	AvatarURL  string   `json:"avatarUrl,omitempty"`
	Bio        string   `json:"bio,omitempty"`
}

// SpeaksLanguage reports whether the freelancer lists the language. The
// comparison is exact, as in the language filter of the talent search.
func (f *Freelancer) SpeaksLanguage(lang string) bool {
	return slices.Contains(f.Languages, lang)
}

// LocatedIn reports whether the location contains the query, ignoring case.
func (f *Freelancer) LocatedIn(query string) bool {
	return strings.Contains(strings.ToLower(f.Location), strings.ToLower(query))
}

type Freelancers struct {
	Items []*Freelancer
}

func (f *Freelancers) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Items)
}

func (f *Freelancers) FindByID(id string) *Freelancer {
	for _, freelancer := range f.Items {
		if freelancer.ID == id {
			return freelancer
		}
	}
	return nil
}

func (f *Freelancers) IDs() []string {
	ids := make([]string, 0, len(f.Items))
	for _, freelancer := range f.Items {
		ids = append(ids, freelancer.ID)
	}
	return ids
}

// Keep retains the freelancers matching keep and returns the ids of the dropped ones.
// Order of the retained items is preserved.
func (f *Freelancers) Keep(keep func(*Freelancer) bool) []string {
	var dropped []string
	kept := f.Items[:0]
	for _, freelancer := range f.Items {
		if keep(freelancer) {
			kept = append(kept, freelancer)
			continue
		}
		dropped = append(dropped, freelancer.ID)
	}
	clear(f.Items[len(kept):])
	f.Items = kept
	return dropped
}

// Clone returns a shallow copy whose item slice can be filtered independently.
func (f *Freelancers) Clone() *Freelancers {
	if f == nil {
		return &Freelancers{}
	}
	return &Freelancers{Items: slices.Clone(f.Items)}
}

//go:embed freelancers.json
var defaultCatalog []byte

// DefaultCatalog returns the built-in talent catalog.
func DefaultCatalog() (*Freelancers, error) {
	return decodeCatalog(defaultCatalog)
}

// LoadCatalog reads a JSON array of freelancers from path. An empty path
// returns the built-in catalog.
func LoadCatalog(path string) (*Freelancers, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultCatalog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %q: %w", path, err)
	}

	return decodeCatalog(data)
}

func decodeCatalog(data []byte) (*Freelancers, error) {
	var items []*Freelancer
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", item.Name)
		}
		if _, ok := seen[item.ID]; ok {
			return nil, fmt.Errorf("duplicate catalog id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	return &Freelancers{Items: items}, nil
}
