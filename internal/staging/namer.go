// Package staging produces the coded staging name, the vault archive, and
// the sidecar record for a processed file.
package staging

import (
	"os"
	"strings"
	"time"

	"github.com/Veraticus/autofiler/internal/model"
)

// slotPlaceholder fills any staging slot that resolves to nothing.
const slotPlaceholder = "000"

// Truncation limits for staging name slots.
const (
	maxPartyLen     = 15
	maxReferenceLen = 15
	maxAmountLen    = 9
)

// dateLayouts is the ordered ladder of formats tried against a raw
// captured date. Month-first shapes are tried before day-first, so an
// ambiguous date resolves month-first; day-first only wins when the month
// slot is impossible.
var dateLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"1/2/06",
	"1-2-06",
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var illegalNameChars = strings.NewReplacer(
	"<", "", ">", "", ":", "", `"`, "", "/", "",
	`\`, "", "|", "", "?", "", "*", "",
)

// StagingStem builds the coded staging filename stem
// {code}_{vendor}_{customer}_{date}_{reference}_{amount} and returns it
// with the truncated slot values actually used.
func StagingStem(def *model.TypeDefinition, extracted map[string]string, filePath string) (string, map[model.StagingSlot]string) {
	resolve := func(slot model.StagingSlot) string {
		fieldName := def.StagingFields[slot]
		if fieldName == "" {
			return ""
		}
		return extracted[fieldName]
	}

	modified := map[model.StagingSlot]string{
		model.SlotVendor:    truncateLeft(resolve(model.SlotVendor), maxPartyLen),
		model.SlotCustomer:  truncateLeft(resolve(model.SlotCustomer), maxPartyLen),
		model.SlotDate:      ParseDate(resolve(model.SlotDate), filePath),
		model.SlotReference: truncateRight(resolve(model.SlotReference), maxReferenceLen),
		model.SlotAmount:    truncateRight(resolve(model.SlotAmount), maxAmountLen),
	}

	stem := strings.Join([]string{
		def.Code,
		modified[model.SlotVendor],
		modified[model.SlotCustomer],
		modified[model.SlotDate],
		modified[model.SlotReference],
		modified[model.SlotAmount],
	}, "_")

	return strings.TrimSpace(illegalNameChars.Replace(stem)), modified
}

// ParseDate converts a raw captured date to YYYYMMDD, trying each known
// layout in order. On total failure it falls back to the source file's
// modified time, then to the fixed placeholder.
func ParseDate(raw, filePath string) string {
	if raw != "" {
		trimmed := strings.TrimSpace(raw)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t.Format("20060102")
			}
		}
	}

	if filePath != "" {
		if info, err := os.Stat(filePath); err == nil {
			return info.ModTime().Format("20060102")
		}
	}

	return slotPlaceholder
}

// truncateLeft keeps the first max characters.
func truncateLeft(value string, max int) string {
	if value == "" {
		return slotPlaceholder
	}
	runes := []rune(value)
	if len(runes) > max {
		runes = runes[:max]
	}
	return strings.TrimSpace(string(runes))
}

// truncateRight keeps the last max characters.
func truncateRight(value string, max int) string {
	if value == "" {
		return slotPlaceholder
	}
	runes := []rune(value)
	if len(runes) > max {
		runes = runes[len(runes)-max:]
	}
	return strings.TrimSpace(string(runes))
}
