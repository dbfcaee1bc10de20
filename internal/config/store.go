// Package config provides the JSON document store backing all runtime
// configuration: type definitions, classification rules, folder mappings,
// naming conventions, and named reference documents.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/model"
)

// Well-known document paths relative to the config root.
const (
	TypeDefinitionsPath     = "type_definitions.json"
	ClassificationRulesPath = "References/classification_rules.json"
	FolderMappingsPath      = "References/folder_mappings.json"
	NamingConventionsPath   = "References/naming_conventions.json"
	EntityReferencePath     = "References/entities.json"
)

// NamingConventions configures how auto-filed names are rendered.
type NamingConventions struct {
	Patterns   map[string]string `json:"patterns"`
	DateFormat string            `json:"date_format,omitempty"`
	Separator  string            `json:"separator,omitempty"`
	Lowercase  bool              `json:"lowercase,omitempty"`
}

// Store loads JSON documents from the config root and caches them in
// memory. Reads are concurrent; all read-modify-write sequences must go
// through Mutate so that one mutation lock serializes them, and every
// save invalidates the cache for that document.
type Store struct {
	cache    map[string][]byte
	root     string
	cacheMu  sync.RWMutex
	mutateMu sync.Mutex
}

// NewStore creates a document store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{
		root:  root,
		cache: make(map[string][]byte),
	}
}

// Root returns the config root directory.
func (s *Store) Root() string {
	return s.root
}

// Mutate runs fn while holding the store's single mutation lock. Every
// read-modify-write of a document must happen inside fn.
func (s *Store) Mutate(fn func() error) error {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()
	return fn()
}

// Invalidate drops the cached copy of one document, or all documents when
// path is empty.
func (s *Store) Invalidate(path string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if path == "" {
		s.cache = make(map[string][]byte)
		return
	}
	delete(s.cache, path)
}

// Load unmarshals the document at the given relative path into v.
func (s *Store) Load(path string, v any) error {
	raw, err := s.raw(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Save persists v as the document at the given relative path and
// invalidates its cache entry so subsequent reads observe the change.
func (s *Store) Save(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	data = append(data, '\n')

	full := filepath.Join(s.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write-then-rename so a crashed save never leaves a torn document.
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	s.cacheMu.Lock()
	s.cache[path] = data
	s.cacheMu.Unlock()
	return nil
}

func (s *Store) raw(path string) ([]byte, error) {
	s.cacheMu.RLock()
	raw, ok := s.cache[path]
	s.cacheMu.RUnlock()
	if ok {
		return raw, nil
	}

	full := filepath.Join(s.root, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.cacheMu.Lock()
	s.cache[path] = data
	s.cacheMu.Unlock()
	return data, nil
}

// TypeDefinitions loads the full type-definition set with defaults applied
// and structure validated.
func (s *Store) TypeDefinitions() (*model.TypeDefinitions, error) {
	var defs model.TypeDefinitions
	if err := s.Load(TypeDefinitionsPath, &defs); err != nil {
		return nil, err
	}
	if defs.Types == nil {
		defs.Types = make(map[string]*model.TypeDefinition)
	}
	for name, def := range defs.Types {
		def.ApplyDefaults()
		if err := def.Validate(name); err != nil {
			return nil, err
		}
	}
	return &defs, nil
}

// SaveTypeDefinitions validates and persists the type-definition set.
// Field declaration order is captured so extraction order survives the
// round trip through JSON maps.
func (s *Store) SaveTypeDefinitions(defs *model.TypeDefinitions) error {
	for name, def := range defs.Types {
		def.ApplyDefaults()
		if err := def.Validate(name); err != nil {
			return err
		}
		def.FieldOrder = def.FieldNames()
	}
	if err := validateUniqueCodes(defs); err != nil {
		return err
	}
	return s.Save(TypeDefinitionsPath, defs)
}

// ClassificationRules loads the signal weight table with defaults
// applied. A missing document yields the defaults.
func (s *Store) ClassificationRules() (*model.ClassificationRules, error) {
	var rules model.ClassificationRules
	if err := s.Load(ClassificationRulesPath, &rules); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	rules.ApplyDefaults()
	return &rules, nil
}

// FolderMappings loads the type-name to destination-subfolder map.
func (s *Store) FolderMappings() (map[string]string, error) {
	out := make(map[string]string)
	if err := s.Load(FolderMappingsPath, &out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return out, nil
}

// NamingConventions loads naming-pattern configuration.
func (s *Store) NamingConventions() (*NamingConventions, error) {
	var nc NamingConventions
	if err := s.Load(NamingConventionsPath, &nc); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if nc.Patterns == nil {
		nc.Patterns = make(map[string]string)
	}
	if nc.Separator == "" {
		nc.Separator = "_"
	}
	return &nc, nil
}

// Reference loads a named reference document. A missing document is an
// empty entity map, not an error: references are created on first write.
func (s *Store) Reference(path string) (model.ReferenceEntities, error) {
	entities := make(model.ReferenceEntities)
	if err := s.Load(path, &entities); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entities, nil
		}
		return nil, err
	}
	return entities, nil
}

// SaveReference persists a reference document.
func (s *Store) SaveReference(path string, entities model.ReferenceEntities) error {
	return s.Save(path, entities)
}

func validateUniqueCodes(defs *model.TypeDefinitions) error {
	names := make([]string, 0, len(defs.Types))
	for name := range defs.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]string, len(names))
	for _, name := range names {
		code := defs.Types[name].Code
		if code == model.UnknownTypeCode {
			return fmt.Errorf("%w: type %q: code %s is reserved", common.ErrInvalidConfig, name, model.UnknownTypeCode)
		}
		if prev, ok := seen[code]; ok {
			return fmt.Errorf("%w: types %q and %q share code %s", common.ErrInvalidConfig, prev, name, code)
		}
		seen[code] = name
	}
	return nil
}
