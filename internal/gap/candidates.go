package gap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/autofiler/internal/model"
)

// maxCandidateValues caps per-field candidate lists.
const maxCandidateValues = 10

var (
	dateValueRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{1,2}/\d{1,2}/\d{2,4})`),
		regexp.MustCompile(`(?i)(\d{1,2}-\d{1,2}-\d{2,4})`),
		regexp.MustCompile(`(?i)(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?i)((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4})`),
	}
	refValueRes = []*regexp.Regexp{
		regexp.MustCompile(`([A-Z]{0,5}[-#]?\d{3,})`),
		regexp.MustCompile(`(\d{4,})`),
	}
	currencyValueRe = regexp.MustCompile(`\$?([\d,]+\.\d{2})`)

	refFamily  = []string{"number", "num", "id", "ref", "invoice", "po", "order"}
	amtFamily  = []string{"amount", "total", "balance", "price", "cost"}
	nameFamily = []string{"name", "vendor", "customer", "company", "client"}
)

// findCandidateValues searches the text for plausible values for a
// missing field, dispatching on the field name's keyword family.
func findCandidateValues(text, fieldName string) []CandidateValue {
	fieldLower := strings.ToLower(fieldName)
	lines := strings.Split(text, "\n")

	var candidates []CandidateValue
	switch {
	case strings.Contains(fieldLower, "date"):
		candidates = findDateCandidates(lines)
	case containsAny(fieldLower, refFamily):
		candidates = findReferenceCandidates(lines, fieldName)
	case containsAny(fieldLower, amtFamily):
		candidates = findCurrencyCandidates(lines)
	case containsAny(fieldLower, nameFamily):
		candidates = findLabeledCandidates(lines, fieldName)
	default:
		candidates = findLabeledCandidates(lines, fieldName)
	}

	if len(candidates) > maxCandidateValues {
		candidates = candidates[:maxCandidateValues]
	}
	return candidates
}

func findDateCandidates(lines []string) []CandidateValue {
	var out []CandidateValue
	for i, line := range lines {
		for _, re := range dateValueRes {
			for _, loc := range re.FindAllStringSubmatchIndex(line, -1) {
				snippet := line[loc[2]:loc[3]]
				bare := strings.TrimSuffix(strings.TrimPrefix(re.String(), "(?i)("), ")")
				suggested := bare
				if prefix := strings.TrimSpace(line[:loc[0]]); prefix != "" {
					suggested = fmt.Sprintf(`%s\s*(%s)`, quoteTail(prefix, 30), bare)
				}
				out = append(out, CandidateValue{
					Snippet:          snippet,
					LineNumber:       i + 1,
					SuggestedPattern: suggested,
				})
			}
		}
	}
	return out
}

func findReferenceCandidates(lines []string, fieldName string) []CandidateValue {
	labelRe := fieldLabelRe(fieldName, `[:\s#]*([A-Za-z0-9][-A-Za-z0-9]{2,})`)

	var out []CandidateValue
	for i, line := range lines {
		if loc := labelRe.FindStringSubmatchIndex(line); loc != nil {
			label := strings.TrimSpace(line[:loc[2]])
			out = append(out, CandidateValue{
				Snippet:          line[loc[2]:loc[3]],
				LineNumber:       i + 1,
				SuggestedPattern: fmt.Sprintf(`%s\s*([A-Za-z0-9][-A-Za-z0-9]+)`, quoteTail(label, 40)),
			})
			continue
		}
		for _, re := range refValueRes {
			for _, loc := range re.FindAllStringSubmatchIndex(line, -1) {
				prefix := strings.TrimSpace(line[:loc[0]])
				if prefix == "" {
					continue
				}
				bare := strings.TrimSuffix(strings.TrimPrefix(re.String(), "("), ")")
				out = append(out, CandidateValue{
					Snippet:          line[loc[2]:loc[3]],
					LineNumber:       i + 1,
					SuggestedPattern: fmt.Sprintf(`%s\s*(%s)`, quoteTail(prefix, 30), bare),
				})
			}
		}
	}
	return out
}

func findCurrencyCandidates(lines []string) []CandidateValue {
	var out []CandidateValue
	for i, line := range lines {
		for _, loc := range currencyValueRe.FindAllStringSubmatchIndex(line, -1) {
			cv := CandidateValue{
				Snippet:    line[loc[0]:loc[1]],
				LineNumber: i + 1,
			}
			if prefix := strings.TrimSpace(line[:loc[0]]); prefix != "" {
				cv.SuggestedPattern = fmt.Sprintf(`%s\s*\$?([\d,]+\.\d{2})`, quoteTail(prefix, 30))
			} else {
				cv.SuggestedPattern = `\$?([\d,]+\.\d{2})`
			}
			out = append(out, cv)
		}
	}
	return out
}

func findLabeledCandidates(lines []string, fieldName string) []CandidateValue {
	labelRe := fieldLabelRe(fieldName, `[:\s]+(.+)`)

	var out []CandidateValue
	for i, line := range lines {
		loc := labelRe.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		value := strings.TrimSpace(line[loc[2]:loc[3]])
		if value == "" || len(value) >= 100 {
			continue
		}
		label := strings.TrimSpace(line[:loc[2]])
		out = append(out, CandidateValue{
			Snippet:          value,
			LineNumber:       i + 1,
			SuggestedPattern: fmt.Sprintf(`%s\s*(.+?)\s*$`, regexp.QuoteMeta(label)),
		})
	}
	return out
}

// detectFieldCandidates finds label:value pairs in text that could become
// extraction fields, inferring a field type and a capture pattern from
// the value's shape.
func detectFieldCandidates(text string) []FieldCandidate {
	var out []FieldCandidate
	seen := make(map[string]bool)

	for i, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" || !strings.Contains(stripped, ":") {
			continue
		}

		parts := strings.SplitN(stripped, ":", 2)
		label := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if label == "" || value == "" {
			continue
		}
		if len(label) < 2 || len(label) > 50 || allDigits(label) {
			continue
		}
		if strings.EqualFold(label, "http") || strings.EqualFold(label, "https") {
			continue
		}

		fieldType := inferFieldType(value)
		fieldName := model.EntityKey(label)
		if fieldName == "" || seen[fieldName] {
			continue
		}
		seen[fieldName] = true

		out = append(out, FieldCandidate{
			Label:            label,
			Value:            value,
			FieldName:        fieldName,
			FieldType:        fieldType,
			LineNumber:       i + 1,
			SuggestedPattern: suggestFieldPattern(label, fieldType),
		})
	}

	return out
}

func inferFieldType(value string) model.FieldType {
	switch {
	case regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`).MatchString(value):
		return model.FieldTypeDate
	case regexp.MustCompile(`\$?[\d,]+\.\d{2}`).MatchString(value):
		return model.FieldTypeAmount
	case regexp.MustCompile(`^[A-Z0-9][-A-Z0-9]{2,}$`).MatchString(value):
		return model.FieldTypeReference
	case regexp.MustCompile(`^[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`).MatchString(value):
		return model.FieldTypeName
	default:
		return model.FieldTypeText
	}
}

func suggestFieldPattern(label string, fieldType model.FieldType) string {
	safe := regexp.QuoteMeta(label)
	switch fieldType {
	case model.FieldTypeDate:
		return safe + `[:\s]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`
	case model.FieldTypeAmount:
		return safe + `[:\s]*\$?([\d,]+\.\d{2})`
	case model.FieldTypeReference:
		return safe + `[:\s]*([A-Za-z0-9][\-A-Za-z0-9]+)`
	default:
		return safe + `[:\s]*(.+?)\s*$`
	}
}

// fieldLabelRe builds a case-insensitive label regex from a field name:
// "invoice_number" matches "invoice number" literally or with flexible
// whitespace.
func fieldLabelRe(fieldName, valuePart string) *regexp.Regexp {
	words := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(fieldName))
	pattern := fmt.Sprintf(`(?i)(?:%s|%s)%s`,
		regexp.QuoteMeta(words),
		strings.ReplaceAll(regexp.QuoteMeta(words), ` `, `\s+`),
		valuePart)
	return regexp.MustCompile(pattern)
}

// quoteTail escapes the last max characters of a label for embedding in a
// suggested pattern.
func quoteTail(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		runes = runes[len(runes)-max:]
	}
	return regexp.QuoteMeta(string(runes))
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
