package scope

import (
	"fmt"
	"os"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"github.com/upb/physics-tutor/services"
)

// Syllabus is the on-disk extension of the scope vocabulary.
//
//	[allow]
//	terms = ["projectile range", "lenz"]
//
//	[deny]
//	terms = ["horoscope"]
//
//	[deny.patterns]
//	homework_other = '(?i)\bhistory\s+essay\b'
type Syllabus struct {
	Allow struct {
		Terms []string `toml:"terms"`
	} `toml:"allow"`
	Deny struct {
		Terms    []string          `toml:"terms"`
		Patterns map[string]string `toml:"patterns"`
	} `toml:"deny"`

	compiled map[string]*regexp.Regexp
}

// ParseSyllabus decodes and compiles a syllabus document
func ParseSyllabus(data []byte) (*Syllabus, error) {
	var s Syllabus
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, services.WrapConfiguration("invalid syllabus file", err)
	}

	s.compiled = make(map[string]*regexp.Regexp, len(s.Deny.Patterns))
	for name, expr := range s.Deny.Patterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, services.ErrInvalidSyllabus.
				WithDetail("pattern", name).
				WithDetail("error", err.Error())
		}
		s.compiled[name] = re
	}
	return &s, nil
}

// LoadSyllabus reads a syllabus TOML file from disk
func LoadSyllabus(path string) (*Syllabus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.WrapConfiguration(fmt.Sprintf("read syllabus %s", path), err)
	}
	return ParseSyllabus(data)
}
