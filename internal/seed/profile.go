package seed

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yml
var presetFS embed.FS

// Profile sizes one seeding run.
type Profile struct {
	Name string `yaml:"name"`
	// Seed makes runs reproducible; 0 picks a random seed.
	Seed int64 `yaml:"seed"`

	Users              int      `yaml:"users"`
	Questions          int      `yaml:"questions"`
	MaxAnswers         int      `yaml:"max_answers"`
	MaxVotes           int      `yaml:"max_votes"`
	MaxSaves           int      `yaml:"max_saves"`
	MaxViews           int      `yaml:"max_views"`
	MaxDays            int      `yaml:"max_days"`
	Tags               []string `yaml:"tags"`
	RecordInteractions bool     `yaml:"record_interactions"`
}

// Validate rejects profiles the services would refuse to seed.
func (p *Profile) Validate() error {
	switch {
	case p.Users < 1:
		return errors.New("profile: users must be at least 1")
	case p.Questions < 0 || p.MaxAnswers < 0 || p.MaxVotes < 0 || p.MaxSaves < 0 || p.MaxViews < 0:
		return errors.New("profile: counts must not be negative")
	case len(p.Tags) == 0:
		return errors.New("profile: at least one tag is required")
	}
	for _, t := range p.Tags {
		if strings.TrimSpace(t) == "" || len(t) > 15 {
			return fmt.Errorf("profile: invalid tag %q", t)
		}
	}
	return nil
}

// ParseProfile decodes a YAML profile.
func ParseProfile(raw []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProfile reads a profile from a file on disk.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(raw)
}

// Preset returns one of the bundled profiles ("small", "demo").
func Preset(name string) (*Profile, error) {
	raw, err := presetFS.ReadFile("profiles/" + strings.ToLower(name) + ".yml")
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return ParseProfile(raw)
}
