// Package resolve canonicalizes extracted name fields against reference
// entities and cross-references arbitrary fields against their configured
// reference documents.
package resolve

import (
	"fmt"
	"time"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/match"
	"github.com/Veraticus/autofiler/internal/model"
)

// Resolver resolves extracted fields against reference documents held in
// the config store.
type Resolver struct {
	store     *config.Store
	threshold float64
	now       func() time.Time
}

// NewResolver creates a resolver using the given fuzzy-match threshold
// for plain matches.
func NewResolver(store *config.Store, threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = match.DefaultThreshold
	}
	return &Resolver{store: store, threshold: threshold, now: time.Now}
}

// ResolveFields resolves every extraction field with a reference_lookup
// role, updating result in place and persisting reference changes.
//
// Fields the regex extracted are plain fuzzy-matched against role-filtered
// entities: a hit substitutes the canonical name and idempotently updates
// the entity's roles and doc types; a miss auto-creates a new entity.
// Missing fields get a text scan over the whole document; a hit fills the
// field, a miss leaves it missing.
func (r *Resolver) ResolveFields(result *model.ExtractionResult, text string, def *model.TypeDefinition) error {
	if result.ResolutionInfo == nil {
		result.ResolutionInfo = make(map[string]*model.FieldResolution)
	}

	return r.store.Mutate(func() error {
		entities, err := r.store.Reference(config.EntityReferencePath)
		if err != nil {
			return err
		}
		changed := false

		for _, fieldName := range def.FieldNames() {
			spec := def.ExtractionFields[fieldName]
			if spec.ReferenceLookup == nil {
				continue
			}
			role := spec.ReferenceLookup.Role
			filtered := entities.FilterByRole(role)

			if raw, ok := result.ExtractedFields[fieldName]; ok {
				if r.resolveExtracted(result, entities, filtered, fieldName, raw, role, def.Code) {
					changed = true
				}
			} else if result.Missing(fieldName) {
				if r.resolveMissing(result, entities, fieldName, text, role, def.Code) {
					changed = true
				}
			}
		}

		if changed {
			return r.store.SaveReference(config.EntityReferencePath, entities)
		}
		return nil
	})
}

// resolveExtracted handles a field the regex captured. Returns true when
// the reference document changed.
func (r *Resolver) resolveExtracted(result *model.ExtractionResult, entities, filtered model.ReferenceEntities, fieldName, raw, role, code string) bool {
	key, ratio := match.Match(raw, filtered, r.threshold)
	if key != "" {
		entity := entities[key]
		result.ExtractedFields[fieldName] = entity.Name
		result.ResolutionInfo[fieldName] = &model.FieldResolution{
			Method:        model.ResolutionFuzzyMatch,
			RawValue:      raw,
			ResolvedValue: entity.Name,
			EntityKey:     key,
			Ratio:         round4(ratio),
		}
		roleAdded := entity.AddRole(role)
		docAdded := entity.AddDocType(code)
		common.LogDebug("field resolved", common.Fields{
			"field": fieldName, "method": "fuzzy_match", "entity": key, "ratio": ratio,
		})
		return roleAdded || docAdded
	}

	newKey := r.createEntity(entities, raw, role, code)
	result.ResolutionInfo[fieldName] = &model.FieldResolution{
		Method:        model.ResolutionAutoCreated,
		RawValue:      raw,
		ResolvedValue: raw,
		EntityKey:     newKey,
		Ratio:         1.0,
	}
	common.LogInfo("entity auto-created", common.Fields{
		"field": fieldName, "entity": newKey, "role": role,
	})
	return true
}

// resolveMissing handles a field the regex missed: scan the whole text
// for a known entity. Returns true when the reference document changed.
func (r *Resolver) resolveMissing(result *model.ExtractionResult, entities model.ReferenceEntities, fieldName, text, role, code string) bool {
	key, canonical, ratio := match.ScanText(text, entities, match.DefaultScanThreshold, role)
	if key == "" {
		result.ResolutionInfo[fieldName] = &model.FieldResolution{
			Method: model.ResolutionUnresolved,
		}
		return false
	}

	result.ExtractedFields[fieldName] = canonical
	result.ClearMissing(fieldName)
	result.ResolutionInfo[fieldName] = &model.FieldResolution{
		Method:        model.ResolutionTextScan,
		ResolvedValue: canonical,
		EntityKey:     key,
		Ratio:         round4(ratio),
	}
	entity := entities[key]
	roleAdded := entity.AddRole(role)
	docAdded := entity.AddDocType(code)
	common.LogDebug("field resolved", common.Fields{
		"field": fieldName, "method": "text_scan", "entity": key, "ratio": ratio,
	})
	return roleAdded || docAdded
}

// createEntity inserts a new entity under a slug key, suffixing on
// collision, tagged with the role and document type code.
func (r *Resolver) createEntity(entities model.ReferenceEntities, name, role, code string) string {
	base := model.EntityKey(name)
	key := base
	for suffix := 2; ; suffix++ {
		if _, exists := entities[key]; !exists {
			break
		}
		key = fmt.Sprintf("%s_%d", base, suffix)
	}

	entity := &model.ReferenceEntity{
		Name:      name,
		Aliases:   []string{},
		DateAdded: r.now().Format("2006-01-02"),
	}
	entity.AddRole(role)
	entity.AddDocType(code)
	entities[key] = entity
	return key
}

func round4(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
