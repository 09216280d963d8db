// Package catalog loads the declarative resource catalog that drives
// ingestion.
//
// The catalog is a YAML file listing every source the pipeline knows
// about: the résumé PDF, social profiles, repositories, articles and
// papers. Entry order in the file defines processing order, which keeps
// ingestion runs reproducible.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidResource indicates a malformed catalog entry. It is fatal to
// an ingestion run: nothing can proceed without a valid catalog.
var ErrInvalidResource = errors.New("invalid catalog resource")

// Type identifies the kind of a resource and selects its extraction
// strategy in the loader.
type Type string

// Recognized resource types.
const (
	TypeResumePDF     Type = "resume_pdf"
	TypeSocialProfile Type = "social_profile"
	TypeRepository    Type = "repository"
	TypeArticle       Type = "article"
	TypePaper         Type = "paper"
)

// Valid reports whether t is a recognized resource type.
func (t Type) Valid() bool {
	switch t {
	case TypeResumePDF, TypeSocialProfile, TypeRepository, TypeArticle, TypePaper:
		return true
	default:
		return false
	}
}

// Resource is a declarative catalog entry. Immutable at runtime; read
// once per ingestion run.
type Resource struct {
	ID          string `yaml:"id"`
	Type        Type   `yaml:"type"`
	Location    string `yaml:"location"` // local path (resume_pdf) or URL
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// file is the YAML document shape.
type file struct {
	Resources []Resource `yaml:"resources"`
}

// Load reads and validates the catalog at path. The returned slice
// preserves file order.
func Load(path string) ([]Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) ([]Resource, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parsing catalog YAML: %v", ErrInvalidResource, err)
	}
	if len(f.Resources) == 0 {
		return nil, fmt.Errorf("%w: catalog lists no resources", ErrInvalidResource)
	}

	seen := make(map[string]struct{}, len(f.Resources))
	for i, r := range f.Resources {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: resource #%d has no id", ErrInvalidResource, i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate resource id %q", ErrInvalidResource, r.ID)
		}
		seen[r.ID] = struct{}{}

		if r.Type == "" {
			return nil, fmt.Errorf("%w: resource %q has no type", ErrInvalidResource, r.ID)
		}
		if !r.Type.Valid() {
			return nil, fmt.Errorf("%w: resource %q has unrecognized type %q", ErrInvalidResource, r.ID, r.Type)
		}
		if r.Location == "" {
			return nil, fmt.Errorf("%w: resource %q has no location", ErrInvalidResource, r.ID)
		}
	}

	return f.Resources, nil
}
