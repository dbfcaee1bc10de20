// Package learn persists approved review-workflow corrections back into
// the configuration store: classification keywords and patterns,
// extraction patterns, new fields, and reference entities.
package learn

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/model"
)

// Service applies validated mutations to the configuration store. Every
// public method runs its read-modify-write under the store's mutation
// lock.
type Service struct {
	store *config.Store
	now   func() time.Time
}

// NewService creates a learning service backed by the given store.
func NewService(store *config.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// AddKeywords appends content keywords to a type. Duplicates by
// case-insensitive comparison and empty strings are skipped. Returns how
// many keywords were actually added.
func (s *Service) AddKeywords(typeName string, keywords []string) (int, error) {
	added := 0
	err := s.mutateType(typeName, func(def *model.TypeDefinition) (bool, error) {
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" || containsFold(def.ContentKeywords, kw) {
				continue
			}
			def.ContentKeywords = append(def.ContentKeywords, kw)
			added++
		}
		return added > 0, nil
	})
	return added, err
}

// AddPatterns appends content patterns to a type. Each pattern must
// compile; duplicates are skipped. Returns how many were added.
func (s *Service) AddPatterns(typeName string, patterns []string) (int, error) {
	added := 0
	err := s.mutateType(typeName, func(def *model.TypeDefinition) (bool, error) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" || containsExact(def.ContentPatterns, p) {
				continue
			}
			if _, err := common.CompileContentPattern(p); err != nil {
				return false, fmt.Errorf("%w: pattern %q: %v", common.ErrInvalidConfig, p, err)
			}
			def.ContentPatterns = append(def.ContentPatterns, p)
			added++
		}
		return added > 0, nil
	})
	return added, err
}

// AddExtractionPatterns appends patterns to one extraction field. Each
// pattern must compile and capture at least one group; duplicates are
// skipped. Returns how many were added.
func (s *Service) AddExtractionPatterns(typeName, fieldName string, patterns []string) (int, error) {
	added := 0
	err := s.mutateType(typeName, func(def *model.TypeDefinition) (bool, error) {
		spec, ok := def.ExtractionFields[fieldName]
		if !ok {
			return false, fmt.Errorf("type %q has no field %q: %w", typeName, fieldName, common.ErrNotFound)
		}
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" || containsExact(spec.Patterns, p) {
				continue
			}
			re, err := common.CompileFieldPattern(p)
			if err != nil {
				return false, fmt.Errorf("%w: pattern %q: %v", common.ErrInvalidConfig, p, err)
			}
			if re.NumSubexp() < 1 {
				return false, fmt.Errorf("%w: pattern %q has no capture group", common.ErrInvalidConfig, p)
			}
			spec.Patterns = append(spec.Patterns, p)
			added++
		}
		return added > 0, nil
	})
	return added, err
}

// AddExtractionField registers a new extraction field on a type.
func (s *Service) AddExtractionField(typeName, fieldName string, spec *model.FieldSpec) error {
	if fieldName == "" {
		return fmt.Errorf("%w: field name must not be empty", common.ErrInvalidConfig)
	}
	return s.mutateType(typeName, func(def *model.TypeDefinition) (bool, error) {
		if _, ok := def.ExtractionFields[fieldName]; ok {
			return false, fmt.Errorf("type %q already has field %q: %w", typeName, fieldName, common.ErrDuplicateEntry)
		}
		for _, p := range spec.Patterns {
			if _, err := common.CompileFieldPattern(p); err != nil {
				return false, fmt.Errorf("%w: pattern %q: %v", common.ErrInvalidConfig, p, err)
			}
		}
		if spec.FieldType == "" {
			spec.FieldType = model.FieldTypeText
		}
		if def.ExtractionFields == nil {
			def.ExtractionFields = make(map[string]*model.FieldSpec)
		}
		def.ExtractionFields[fieldName] = spec
		def.FieldOrder = append(def.FieldOrder, fieldName)
		return true, nil
	})
}

// CreateType registers a brand-new document type. The definition is
// defaulted and validated before saving; an existing name is rejected.
func (s *Service) CreateType(name string, def *model.TypeDefinition) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: type name must not be empty", common.ErrInvalidConfig)
	}
	if def == nil {
		return fmt.Errorf("%w: type definition must not be nil", common.ErrInvalidConfig)
	}
	return s.store.Mutate(func() error {
		defs, err := s.store.TypeDefinitions()
		if err != nil {
			return err
		}
		if _, ok := defs.Types[name]; ok {
			return fmt.Errorf("type %q: %w", name, common.ErrDuplicateEntry)
		}
		def.ApplyDefaults()
		if err := def.Validate(name); err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
		}
		defs.Types[name] = def
		return s.store.SaveTypeDefinitions(defs)
	})
}

// AddEntity registers a new reference entity under its slug key, or
// enriches an existing one whose key collides (adding the role and doc
// type). Returns the key the entity lives under.
func (s *Service) AddEntity(refPath, name, role, docCode string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: entity name must not be empty", common.ErrInvalidConfig)
	}
	key := model.EntityKey(name)
	if key == "" {
		return "", fmt.Errorf("%w: entity name %q yields an empty key", common.ErrInvalidConfig, name)
	}

	err := s.store.Mutate(func() error {
		entities, err := s.store.Reference(refPath)
		if err != nil {
			return err
		}
		entity, ok := entities[key]
		if !ok {
			entity = &model.ReferenceEntity{
				Name:      name,
				DateAdded: s.now().Format("2006-01-02"),
				Aliases:   []string{},
			}
			entities[key] = entity
		}
		changed := !ok
		if entity.AddRole(role) {
			changed = true
		}
		if entity.AddDocType(docCode) {
			changed = true
		}
		if !changed {
			return nil
		}
		return s.store.SaveReference(refPath, entities)
	})
	return key, err
}

// AddAlias attaches an alias to an existing reference entity. A duplicate
// alias (case-insensitive, against name and aliases) is a no-op.
func (s *Service) AddAlias(refPath, key, alias string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return fmt.Errorf("%w: alias must not be empty", common.ErrInvalidConfig)
	}
	return s.store.Mutate(func() error {
		entities, err := s.store.Reference(refPath)
		if err != nil {
			return err
		}
		entity, ok := entities[key]
		if !ok {
			return fmt.Errorf("entity %q: %w", key, common.ErrNotFound)
		}
		if !entity.AddAlias(alias) {
			return nil
		}
		return s.store.SaveReference(refPath, entities)
	})
}

// mutateType loads the type definitions, applies fn to one type, and
// saves only when fn reports a change.
func (s *Service) mutateType(typeName string, fn func(*model.TypeDefinition) (bool, error)) error {
	return s.store.Mutate(func() error {
		defs, err := s.store.TypeDefinitions()
		if err != nil {
			return err
		}
		def, ok := defs.Types[typeName]
		if !ok {
			return fmt.Errorf("type %q: %w", typeName, common.ErrNotFound)
		}
		changed, err := fn(def)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.store.SaveTypeDefinitions(defs)
	})
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func containsExact(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
