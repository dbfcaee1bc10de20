// Package classify implements multi-signal document classification:
// format, keyword, pattern, and reference signals collected per type,
// then scored against a configured weight table.
package classify

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/config"
	"github.com/Veraticus/autofiler/internal/model"
	"github.com/Veraticus/autofiler/internal/textextract"
)

// Engine collects classification signals for a file against the full
// type-definition set.
type Engine struct {
	store     *config.Store
	extractor textextract.Extractor
}

// NewEngine creates a classification engine.
func NewEngine(store *config.Store, extractor textextract.Extractor) *Engine {
	return &Engine{store: store, extractor: extractor}
}

// Classify runs format detection, text extraction, and content matching
// against every configured type and returns the per-type candidate map.
func (e *Engine) Classify(path string) (*model.ClassificationResult, error) {
	defs, err := e.store.TypeDefinitions()
	if err != nil {
		return nil, err
	}
	mappings, err := e.store.FolderMappings()
	if err != nil {
		return nil, err
	}
	conventions, err := e.store.NamingConventions()
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	mime := detectMime(path)
	meta := fileMetadata(path)

	text, err := e.extractor.Extract(path)
	if err != nil {
		// Extraction failures degrade to empty text: format signals can
		// still classify the file, and review catches the rest.
		common.LogError(err, "text extraction failed", common.Fields{"file": path})
		text = ""
	}

	result := &model.ClassificationResult{
		FilePath:       path,
		Extension:      ext,
		MimeType:       mime,
		Metadata:       meta,
		ExtractedText:  text,
		KeywordMatches: make(map[string]int),
		PatternMatches: make(map[string]int),
		Candidates:     make(map[string]*model.Candidate),
	}

	textLower := strings.ToLower(text)

	for _, name := range sortedTypeNames(defs) {
		def := defs.Types[name]

		formatHit := def.HasContainerFormat(ext) || def.HasMimeType(mime)
		if formatHit {
			result.FormatMatches = append(result.FormatMatches, name)
		}

		if count := keywordCount(textLower, def.ContentKeywords); count >= def.KeywordThreshold && len(def.ContentKeywords) > 0 {
			result.KeywordMatches[name] = count
		}

		if count := patternCount(text, def.ContentPatterns); count > 0 {
			result.PatternMatches[name] = count
		}

		_, hasMapping := mappings[name]
		_, hasNaming := conventions.Patterns[name]
		referenceHit := hasMapping && hasNaming

		var signals []model.SignalKind
		if formatHit {
			signals = append(signals, model.SignalFormat)
		}
		if _, ok := result.KeywordMatches[name]; ok {
			signals = append(signals, model.SignalKeyword)
		}
		if _, ok := result.PatternMatches[name]; ok {
			signals = append(signals, model.SignalPattern)
		}
		if len(signals) > 0 && referenceHit {
			signals = append(signals, model.SignalReference)
		}
		if len(signals) > 0 {
			result.Candidates[name] = &model.Candidate{MatchedSignals: signals}
		}
	}

	return result, nil
}

// keywordCount counts how many configured keywords appear in the text as
// case-insensitive substrings.
func keywordCount(textLower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(textLower, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}

// patternCount counts the distinct content patterns with at least one
// match. Patterns that fail to compile are skipped, not fatal.
func patternCount(text string, patterns []string) int {
	count := 0
	for _, p := range patterns {
		re, err := common.CompileContentPattern(p)
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			count++
		}
	}
	return count
}

func detectMime(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

func fileMetadata(path string) model.FileMetadata {
	info, err := os.Stat(path)
	if err != nil {
		return model.FileMetadata{}
	}
	meta := model.FileMetadata{
		Size:     info.Size(),
		Modified: info.ModTime(),
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		meta.Created = time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return meta
}

func sortedTypeNames(defs *model.TypeDefinitions) []string {
	names := make([]string, 0, len(defs.Types))
	for name := range defs.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
