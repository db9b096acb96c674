package catalog

import (
	"fmt"
	"strings"
	"time"
)

// langCodes maps full language names to their two-letter display
// codes. Unknown languages fall back to the first two letters
// uppercased.
var langCodes = map[string]string{
	"English":    "EN",
	"Chinese":    "CN",
	"Russian":    "RU",
	"Arabic":     "AR",
	"Vietnamese": "VI",
	"Turkish":    "TR",
}

// LangCode returns the display code for a language name.
func LangCode(language string) string {
	if language == "" {
		return "EN"
	}
	if code, ok := langCodes[language]; ok {
		return code
	}
	if len(language) < 2 {
		return strings.ToUpper(language)
	}
	return strings.ToUpper(language[:2])
}

// tzOffsetHours returns the display timezone offset for a language.
// Chinese-language entries are rendered in UTC+8, everything else in
// UTC.
func tzOffsetHours(language string) int {
	if language == "Chinese" {
		return 8
	}
	return 0
}

// FormatUpdatedAt renders a unix-millisecond timestamp as the
// "YYYY-MM-DD hh:mm UTC+N" display string used by the updatedAt field,
// shifted into the language's display timezone.
func FormatUpdatedAt(unixMS int64, language string) string {
	offset := tzOffsetHours(language)
	t := time.UnixMilli(unixMS).UTC().Add(time.Duration(offset) * time.Hour)
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d UTC+%d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), offset)
}

// Backfill fills in a missing UpdatedAt on each item, deriving the
// instant from the id when it looks like a millisecond timestamp and
// from the current time otherwise. Items that already carry a value
// are left alone. Returns the number of items touched.
func Backfill(items []Item) int {
	touched := 0
	for i := range items {
		if items[i].UpdatedAt != "" {
			continue
		}
		ts := items[i].ID
		if ts <= 1_000_000_000_000 { // pre-id legacy entries
			ts = time.Now().UnixMilli()
		}
		items[i].UpdatedAt = FormatUpdatedAt(ts, items[i].Language)
		touched++
	}
	return touched
}
