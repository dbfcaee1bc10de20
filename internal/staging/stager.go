package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/autofiler/internal/model"
)

// placeholderRe matches {field_name} placeholders in a destination
// subfolder.
var placeholderRe = regexp.MustCompile(`\{([a-z0-9_]+)\}`)

// Stager runs the staging sequence: hash, vault archive, staging name,
// move, sidecar. The staged file and its sidecar appear together or not
// at all — the original is only moved once the vault copy exists, and a
// failed sidecar write rolls the staged file back to its source.
type Stager struct {
	now        func() time.Time
	StagingDir string
	VaultDir   string
}

// NewStager creates a stager writing to the given directories.
func NewStager(stagingDir, vaultDir string) *Stager {
	return &Stager{StagingDir: stagingDir, VaultDir: vaultDir, now: time.Now}
}

// Request carries everything Stage needs for one file.
type Request struct {
	ExtractedFields map[string]string
	ResolutionInfo  map[string]*model.FieldResolution
	Confidence      *float64
	ReviewInfo      *model.ReviewProvenance
	Path            string
	TypeName        string
	OCRText         string
	Def             *model.TypeDefinition
}

// Stage archives, renames, and documents one file. Existing staged files
// are never overwritten; a stem collision gets a timestamp suffix.
func (s *Stager) Stage(req Request) (*model.StagingRecord, error) {
	hash, err := HashFile(req.Path)
	if err != nil {
		return nil, err
	}

	vaultPath, err := ArchiveToVault(req.Path, req.Def.Code, s.VaultDir)
	if err != nil {
		return nil, err
	}

	stem, modified := StagingStem(req.Def, req.ExtractedFields, req.Path)
	ext := filepath.Ext(req.Path)

	destDir := DestinationDir(s.StagingDir, req.Def.DestinationSubfolder, req.ExtractedFields)
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	stagedPath := filepath.Join(destDir, stem+ext)
	if _, err := os.Stat(stagedPath); err == nil {
		stem = uniqueStem(destDir, stem, ext, s.now())
		stagedPath = filepath.Join(destDir, stem+ext)
	}
	stagingFilename := stem + ext

	if err := os.Rename(req.Path, stagedPath); err != nil {
		return nil, fmt.Errorf("failed to move %s to staging: %w", req.Path, err)
	}

	sidecar := &model.Sidecar{
		SchemaVersion:       model.SidecarSchemaVersion,
		ProcessingTimestamp: s.now().Format(time.RFC3339),
		SourceFile:          req.Path,
		SourceHash:          hash,
		VaultFile:           vaultPath,
		DocumentType:        req.TypeName,
		DocTypeCode:         req.Def.Code,
		ConfidenceScore:     req.Confidence,
		ExtractedFields:     nonNilFields(req.ExtractedFields),
		ModifiedFields:      modified,
		StagingFilename:     stem,
		ResolutionInfo:      nonNilResolution(req.ResolutionInfo),
		OCRText:             req.OCRText,
		ReviewInfo:          req.ReviewInfo,
	}

	sidecarPath, err := WriteSidecar(sidecar, destDir)
	if err != nil {
		// Undo the move so the file is not staged without its record.
		_ = os.Rename(stagedPath, req.Path)
		return nil, err
	}

	return &model.StagingRecord{
		StagingFilename: stagingFilename,
		StagedPath:      stagedPath,
		VaultPath:       vaultPath,
		SidecarPath:     sidecarPath,
	}, nil
}

// DestinationDir renders the type's destination subfolder under root,
// substituting {field} placeholders with sanitized extracted values.
// Placeholders for fields that were not extracted stay literal; an empty
// subfolder files flat under root.
func DestinationDir(root, subfolder string, extracted map[string]string) string {
	if subfolder == "" {
		return root
	}
	rendered := placeholderRe.ReplaceAllStringFunc(subfolder, func(m string) string {
		value, ok := extracted[m[1:len(m)-1]]
		if !ok {
			return m
		}
		return strings.TrimSpace(illegalNameChars.Replace(value))
	})
	return filepath.Join(root, rendered)
}

// uniqueStem augments a taken stem with a timestamp, then a counter for
// same-second collisions.
func uniqueStem(dir, stem, ext string, now time.Time) string {
	ts := now.Format("20060102_150405")
	candidate := fmt.Sprintf("%s_%s", stem, ts)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(filepath.Join(dir, candidate+ext)); err != nil {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%s_%d", stem, ts, counter)
	}
}

func nonNilFields(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nonNilResolution(m map[string]*model.FieldResolution) map[string]*model.FieldResolution {
	if m == nil {
		return map[string]*model.FieldResolution{}
	}
	return m
}
