package marketplace

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleClient:
		return RoleClient, nil
	case RoleFreelancer:
		return RoleFreelancer, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// UserProfile is the stored record describing a user. Field names follow the
// documents written by the web client, so they stay camelCase on the wire.
type UserProfile struct {
	UID         string     `json:"uid" mapstructure:"uid"`
	DisplayName string     `json:"displayName" mapstructure:"displayName"`
	Email       string     `json:"email" mapstructure:"email"`
	Role        Role       `json:"role" mapstructure:"role"`
	CreatedAt   time.Time  `json:"createdAt" mapstructure:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" mapstructure:"updatedAt"`

	Bio         string   `json:"bio,omitempty" mapstructure:"bio"`
	Location    string   `json:"location,omitempty" mapstructure:"location"`
	Skills      []string `json:"skills,omitempty" mapstructure:"skills"`
	CompanyName string   `json:"companyName,omitempty" mapstructure:"companyName"`
	Website     string   `json:"website,omitempty" mapstructure:"website"`
	AvatarURL   string   `json:"avatarUrl,omitempty" mapstructure:"avatarUrl"`
}

// Clone returns a deep copy.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Skills != nil {
		c.Skills = append([]string(nil), p.Skills...)
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}
