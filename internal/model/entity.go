package model

import (
	"regexp"
	"strings"
)

// ReferenceEntity is a canonical named party (vendor, customer, ...) that
// extracted name fields are normalized against.
type ReferenceEntity struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Name       string            `json:"name"`
	DateAdded  string            `json:"date_added,omitempty"`
	Aliases    []string          `json:"aliases"`
	Roles      []string          `json:"roles,omitempty"`
	DocTypes   []string          `json:"doc_types,omitempty"`
}

// ReferenceEntities is one reference document: slug key to entity.
type ReferenceEntities map[string]*ReferenceEntity

// HasRole reports whether the entity carries the given role.
func (e *ReferenceEntity) HasRole(role string) bool {
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AddRole appends a role if not already present. Returns true when the
// entity changed.
func (e *ReferenceEntity) AddRole(role string) bool {
	if role == "" || e.HasRole(role) {
		return false
	}
	e.Roles = append(e.Roles, role)
	return true
}

// AddDocType appends a document type code if not already present.
// Returns true when the entity changed.
func (e *ReferenceEntity) AddDocType(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range e.DocTypes {
		if c == code {
			return false
		}
	}
	e.DocTypes = append(e.DocTypes, code)
	return true
}

// AddAlias appends an alias unless it duplicates the canonical name or an
// existing alias case-insensitively. Returns true when added.
func (e *ReferenceEntity) AddAlias(alias string) bool {
	if alias == "" || strings.EqualFold(alias, e.Name) {
		return false
	}
	for _, a := range e.Aliases {
		if strings.EqualFold(a, alias) {
			return false
		}
	}
	e.Aliases = append(e.Aliases, alias)
	return true
}

// Candidates returns the canonical name followed by all aliases.
func (e *ReferenceEntity) Candidates() []string {
	out := make([]string, 0, len(e.Aliases)+1)
	out = append(out, e.Name)
	return append(out, e.Aliases...)
}

// FilterByRole returns the subset of entities carrying role. An empty role
// returns the full set.
func (m ReferenceEntities) FilterByRole(role string) ReferenceEntities {
	if role == "" {
		return m
	}
	out := make(ReferenceEntities)
	for key, entity := range m {
		if entity.HasRole(role) {
			out[key] = entity
		}
	}
	return out
}

// EntityKey slugs a display name into a reference key:
// "William Kruse & Company LLC" -> "william_kruse_company_llc".
func EntityKey(name string) string {
	slug := strings.ToLower(name)
	slug = nonAlnumRe.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
