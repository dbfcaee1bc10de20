// Package extract pulls structured fields out of document text using the
// regex patterns configured per type.
package extract

import (
	"regexp"
	"strings"

	"github.com/Veraticus/autofiler/internal/common"
	"github.com/Veraticus/autofiler/internal/model"
)

// maxAddressContinuation is how many lines after an address match are
// considered part of the address.
const maxAddressContinuation = 4

// labelRe matches a "Word(s): value" line, which terminates an address
// continuation scan: it signals a new field, not another address line.
var labelRe = regexp.MustCompile(`^[A-Za-z][A-Za-z ]{0,30}:\s`)

// Fields extracts every configured field for the type from the text.
// Fields are tried in declaration order; within a field, the first
// pattern whose capture group 1 is non-empty after trimming wins.
// Required fields with no match are reported in MissingFields.
func Fields(text string, def *model.TypeDefinition) *model.ExtractionResult {
	result := &model.ExtractionResult{
		ExtractedFields: make(map[string]string),
	}

	for _, fieldName := range def.FieldNames() {
		spec := def.ExtractionFields[fieldName]
		value := extractField(text, spec)
		if value != "" {
			result.ExtractedFields[fieldName] = value
		} else if spec.Required {
			result.MissingFields = append(result.MissingFields, fieldName)
		}
	}

	return result
}

func extractField(text string, spec *model.FieldSpec) string {
	for _, pattern := range spec.Patterns {
		re, err := common.CompileFieldPattern(pattern)
		if err != nil {
			continue
		}
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil || len(loc) < 4 || loc[2] < 0 {
			continue
		}
		value := strings.TrimSpace(text[loc[2]:loc[3]])
		if value == "" {
			continue
		}
		if spec.FieldType == model.FieldTypeAddress {
			return continueAddress(text, loc[0], value)
		}
		return value
	}
	return ""
}

// continueAddress appends the non-blank lines following the matched line,
// comma-joined, stopping at a blank line, a "Label: value" line, or after
// four continuation lines.
func continueAddress(text string, matchStart int, firstValue string) string {
	lines := strings.Split(text, "\n")

	// Locate the line containing the match start.
	pos := 0
	startIdx := 0
	for i, line := range lines {
		end := pos + len(line)
		if pos <= matchStart && matchStart <= end {
			startIdx = i
			break
		}
		pos = end + 1
	}

	parts := []string{}
	if firstValue != "" {
		parts = append(parts, firstValue)
	}

	for i := startIdx + 1; i < len(lines) && i <= startIdx+maxAddressContinuation; i++ {
		stripped := strings.TrimSpace(lines[i])
		if stripped == "" {
			break
		}
		if labelRe.MatchString(stripped) {
			break
		}
		parts = append(parts, stripped)
	}

	return strings.Join(parts, ", ")
}
