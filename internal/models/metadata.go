package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxVersionComponent bounds each component of a pack version.
const MaxVersionComponent = 99

// Version is a major.minor.patch triple. Components are clamped to [0, 99] by [NormalizeMetadata].
type Version [3]int

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// ParseVersion reads "major[.minor[.patch]]". Blank components are reported as nil so defaults can apply.
func ParseVersion(s string) ([3]*int, error) {
	var out [3]*int
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}

	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return out, fmt.Errorf("version %q has more than three components", s)
	}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("version component %q is not a number", p)
		}
		out[i] = &n
	}
	return out, nil
}

// Metadata describes the pack being built.
type Metadata struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Version     Version `json:"version" yaml:"version"`
}

// MetadataInput is the raw, possibly blank, user input.
type MetadataInput struct {
	Name        string
	Description string
	Version     [3]*int
}

// defaultVersion applies when a component is left blank.
var defaultVersion = Version{1, 0, 0}

// NormalizeMetadata trims fields, substitutes defaults for blank ones and clamps the version.
//
// Only a blank version component takes its default; an explicit 0 major is kept as 0. Non-numeric
// components never reach here because [ParseVersion] rejects them.
func NormalizeMetadata(in MetadataInput, defaultName, defaultDescription string) Metadata {
	m := Metadata{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Version:     defaultVersion,
	}
	if m.Name == "" {
		m.Name = defaultName
	}
	if m.Description == "" {
		m.Description = defaultDescription
	}
	for i, c := range in.Version {
		if c != nil {
			m.Version[i] = max(0, min(MaxVersionComponent, *c))
		}
	}
	return m
}

// FileName is the download name of the pack.
func (m Metadata) FileName() string {
	return m.Name + ".mcpack"
}
