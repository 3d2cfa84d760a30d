package database

import (
	"log/slog"

	"github.com/lysyi3m/feed2notion/app/notion"
)

// Schema tracks which properties the database accepts. Until a schema has
// been loaded every property is assumed to exist; properties rejected by
// the API are disabled for the rest of the run.
type Schema struct {
	types    map[string]string
	known    bool
	disabled map[string]bool
	warned   map[string]bool
}

func NewSchema() *Schema {
	return &Schema{
		types:    make(map[string]string),
		disabled: make(map[string]bool),
		warned:   make(map[string]bool),
	}
}

func (s *Schema) Load(database *notion.Database) {
	s.types = make(map[string]string, len(database.Properties))
	for name, property := range database.Properties {
		s.types[name] = property.Type
	}
	s.known = true
}

// Supports reports whether name can be written as a property of kind.
// A missing or mistyped property is logged the first time it is asked for.
func (s *Schema) Supports(name, kind string) bool {
	if s.disabled[name] {
		return false
	}
	if !s.known {
		return true
	}

	actual, ok := s.types[name]
	if ok && actual == kind {
		return true
	}

	if !s.warned[name] {
		s.warned[name] = true
		if ok {
			slog.Warn("Database property has unexpected type, not writing it",
				"property", name, "expected", kind, "actual", actual)
		} else {
			slog.Warn("Database property not found, not writing it", "property", name, "type", kind)
		}
	}
	return false
}

// Known reports whether the database properties have been loaded.
func (s *Schema) Known() bool {
	return s.known
}

func (s *Schema) Disable(name string, reason string) {
	if s.disabled[name] {
		return
	}
	s.disabled[name] = true
	slog.Warn("Database property disabled for this run", "property", name, "reason", reason)
}

func (s *Schema) Disabled(name string) bool {
	return s.disabled[name]
}
