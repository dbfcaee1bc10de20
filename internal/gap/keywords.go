package gap

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Veraticus/autofiler/internal/common"
)

// maxKeywordSuggestions caps the ranked keyword list. The console shows
// 15; the rest are backfill.
const maxKeywordSuggestions = 25

// stopwords filtered from single-word keyword suggestions.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"had": true, "his": true, "how": true, "its": true, "may": true,
	"new": true, "now": true, "old": true, "see": true, "way": true,
	"who": true, "did": true, "get": true, "let": true, "say": true,
	"she": true, "too": true, "use": true, "from": true, "that": true,
	"this": true, "with": true, "have": true, "been": true, "will": true,
	"each": true, "make": true, "like": true, "than": true, "them": true,
	"then": true, "they": true, "what": true, "when": true, "your": true,
	"into": true, "also": true, "more": true, "some": true, "such": true,
	"just": true, "only": true, "over": true, "very": true, "page": true,
	"date": true, "name": true, "total": true, "number": true,
	"amount": true, "please": true, "thank": true, "note": true,
	"item": true, "none": true, "null": true, "true": true, "false": true,
}

var (
	capPhraseRe   = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2})\b`)
	upperPhraseRe = regexp.MustCompile(`\b([A-Z]{2,}(?:\s+[A-Z]{2,}){1,2})\b`)
)

// structurePatterns are regex suggestions for common structured shapes
// (dates, currency, reference numbers, phone, email), in a fixed order so
// suggestion output is stable.
var structurePatterns = []string{
	`\d{1,2}/\d{1,2}/\d{2,4}`,
	`\d{1,2}-\d{1,2}-\d{2,4}`,
	`\d{4}-\d{2}-\d{2}`,
	`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4}`,
	`\$[\d,]+\.\d{2}`,
	`[A-Z]{2,5}[-#]\d{3,}`,
	`#\d{4,}`,
	`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`,
	`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
}

// suggestKeywords extracts candidate keywords from text that are not
// already configured: label prefixes, capitalized multi-word phrases, and
// ALL-CAPS phrases, ranked by frequency with first appearance breaking
// ties.
func suggestKeywords(text string, existing []string) []string {
	existingLower := make(map[string]bool, len(existing))
	for _, kw := range existing {
		existingLower[strings.ToLower(kw)] = true
	}

	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	note := func(phrase string) {
		if _, ok := firstSeen[phrase]; !ok {
			firstSeen[phrase] = order
			order++
		}
		counts[phrase]++
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		if idx := strings.Index(stripped, ":"); idx >= 0 {
			label := strings.TrimSpace(stripped[:idx])
			if len(label) >= 2 && len(label) <= 50 && !allDigits(label) {
				note(label)
			}
		}

		for _, m := range capPhraseRe.FindAllStringSubmatch(stripped, -1) {
			note(m[1])
		}
		for _, m := range upperPhraseRe.FindAllStringSubmatch(stripped, -1) {
			note(m[1])
		}
	}

	phrases := make([]string, 0, len(counts))
	for phrase := range counts {
		lower := strings.ToLower(phrase)
		if existingLower[lower] {
			continue
		}
		if !strings.Contains(lower, " ") && stopwords[lower] {
			continue
		}
		if len(phrase) < 3 || len(phrase) > 50 {
			continue
		}
		phrases = append(phrases, phrase)
	}

	sort.Slice(phrases, func(i, j int) bool {
		if counts[phrases[i]] != counts[phrases[j]] {
			return counts[phrases[i]] > counts[phrases[j]]
		}
		return firstSeen[phrases[i]] < firstSeen[phrases[j]]
	})

	if len(phrases) > maxKeywordSuggestions {
		phrases = phrases[:maxKeywordSuggestions]
	}
	return phrases
}

// suggestPatterns scans for structured shapes present in the text and not
// already covered by an existing content pattern.
func suggestPatterns(text string, existing []string) []string {
	var suggestions []string

	for _, shape := range structurePatterns {
		re, err := common.CompileContentPattern(shape)
		if err != nil {
			continue
		}
		sample := re.FindString(text)
		if sample == "" {
			continue
		}

		covered := false
		for _, ex := range existing {
			exRe, err := common.CompileContentPattern(ex)
			if err != nil {
				continue
			}
			if exRe.MatchString(sample) {
				covered = true
				break
			}
		}
		if !covered && !containsString(suggestions, shape) {
			suggestions = append(suggestions, shape)
		}
	}

	return suggestions
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
