// Package devseed loads JSON fixtures used to pre-populate the mock backend
// and the filez-sandbox command.
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
)

// Seed holds the initial dataset for a mock Filez deployment.
type Seed struct {
	Users []UserSeed `json:"users"`
	Teams []TeamSeed `json:"teams"`
	Files []FileSeed `json:"files"`
}

// UserSeed describes an account to create.
type UserSeed struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobile,omitempty"`
	Password string `json:"password"`
	Quota    int64  `json:"quota,omitempty"`
	Status   int    `json:"status,omitempty"`
	UserName string `json:"user_name"`
	UserSlug string `json:"user_slug"`
}

// TeamSeed describes a team and its member slugs.
type TeamSeed struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MemberLimit int      `json:"member_limit,omitempty"`
	Quota       int64    `json:"quota,omitempty"`
	MemberSlugs []string `json:"member_slugs,omitempty"`
}

// FileSeed describes a file or folder. Content is base64-encoded.
type FileSeed struct {
	Path     string `json:"path"`
	PathType string `json:"path_type,omitempty"`
	Dir      bool   `json:"dir,omitempty"`
	Base64   string `json:"base64,omitempty"`
}

// Load reads a seed file from disk.
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("devseed: parse %s: %w", path, err)
	}
	return &seed, nil
}
