package resolve

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/match"
	"github.com/Veraticus/autofiler/internal/model"
)

// CrossReference resolves fields with a cross_reference config against
// their reference documents. A match substitutes the canonical value; a
// miss either auto-creates an entry (create_if_missing) or is recorded as
// unresolved. Unresolved lookups never block staging on their own.
func (r *Resolver) CrossReference(result *model.ExtractionResult, def *model.TypeDefinition) ([]string, error) {
	var unresolved []string

	err := r.store.Mutate(func() error {
		for _, fieldName := range def.FieldNames() {
			spec := def.ExtractionFields[fieldName]
			if spec.CrossReference == nil {
				continue
			}
			raw := result.ExtractedFields[fieldName]
			if raw == "" {
				continue
			}

			cfg := spec.CrossReference
			entities, saveEntities, err := r.loadCrossRefDoc(cfg)
			if err != nil {
				return err
			}

			supporting := make(map[string]string)
			for _, sf := range cfg.SupportingFields {
				if v := result.ExtractedFields[sf]; v != "" {
					supporting[sf] = v
				}
			}

			key, _ := match.MatchWithSupport(raw, entities, match.DefaultSupportThreshold, supporting)
			switch {
			case key != "":
				result.ExtractedFields[fieldName] = entities[key].Name
			case cfg.CreateIfMissing:
				newKey := r.createCrossRefEntry(entities, raw, fieldName, result.ExtractedFields, def)
				if err := saveEntities(); err != nil {
					return err
				}
				common.LogInfo("cross-reference entry created", common.Fields{
					"field": fieldName, "entity": newKey, "reference": cfg.ReferencePath,
				})
			default:
				unresolved = append(unresolved, fieldName)
				common.LogInfo("cross-reference unresolved", common.Fields{
					"field": fieldName, "value": raw, "reference": cfg.ReferencePath,
				})
			}
		}
		return nil
	})

	return unresolved, err
}

// loadCrossRefDoc loads the entities for a cross-reference config. When a
// reference_key is configured the document nests its entity map under that
// key; otherwise the document is the entity map itself. The returned
// closure persists the (possibly mutated) entities back to the same shape.
func (r *Resolver) loadCrossRefDoc(cfg *model.CrossReference) (model.ReferenceEntities, func() error, error) {
	if cfg.ReferenceKey == "" {
		entities, err := r.store.Reference(cfg.ReferencePath)
		if err != nil {
			return nil, nil, err
		}
		return entities, func() error {
			return r.store.SaveReference(cfg.ReferencePath, entities)
		}, nil
	}

	doc := make(map[string]model.ReferenceEntities)
	if err := r.store.Load(cfg.ReferencePath, &doc); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
	}
	entities := doc[cfg.ReferenceKey]
	if entities == nil {
		entities = make(model.ReferenceEntities)
		doc[cfg.ReferenceKey] = entities
	}
	return entities, func() error {
		return r.store.Save(cfg.ReferencePath, doc)
	}, nil
}

// createCrossRefEntry builds a new reference entry from the raw value,
// attaching every non-cross-reference extracted field as metadata.
func (r *Resolver) createCrossRefEntry(entities model.ReferenceEntities, raw, fieldName string, extracted map[string]string, def *model.TypeDefinition) string {
	base := model.EntityKey(raw)
	key := base
	for suffix := 2; ; suffix++ {
		if _, exists := entities[key]; !exists {
			break
		}
		key = fmt.Sprintf("%s_%d", base, suffix)
	}

	entity := &model.ReferenceEntity{
		Name:       raw,
		Aliases:    []string{},
		DateAdded:  r.now().Format("2006-01-02"),
		Attributes: make(map[string]string),
	}
	for otherName, otherValue := range extracted {
		if otherName == fieldName || otherValue == "" {
			continue
		}
		if other := def.ExtractionFields[otherName]; other != nil && other.CrossReference != nil {
			continue
		}
		entity.Attributes[otherName] = otherValue
	}
	entities[key] = entity
	return key
}
