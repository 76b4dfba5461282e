// Package normalize maps provider payload shapes into the guide's field set.
// Every function is a pure transformation: no I/O, deterministic, and a nil
// return always means "no value" rather than an error.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/formby-guide/guide-cli/internal/model"
)

// postcodeRe matches a UK postcode inside free text: 1-2 letters, a digit,
// an optional alphanumeric, then the inward code (digit + 2 letters).
var postcodeRe = regexp.MustCompile(`(?i)[A-Z]{1,2}[0-9][0-9A-Z]?\s*[0-9][A-Z]{2}`)

// ExtractPostcode returns the first UK postcode found in the address text,
// upper-cased, or the empty string when none is present.
func ExtractPostcode(address string) string {
	m := postcodeRe.FindString(address)
	if m == "" {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(m))
}

// OutwardCode returns the area component of a postcode, the first
// space-delimited token ("L37 7AB" -> "L37"). Empty input yields "".
func OutwardCode(postcode string) string {
	fields := strings.Fields(postcode)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// legalSuffixes are stripped from business names during cleaned-name
// resolution tiers. Matching is case-insensitive and suffix-anchored.
var legalSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s+(Ltd|Limited|LLP|PLC|& Co|and Co)\.?$`),
}

// CleanName strips legal-entity suffixes and the given locality suffixes
// from a business name to improve provider matching.
func CleanName(name string, localities ...string) string {
	n := strings.TrimSpace(name)
	for _, re := range legalSuffixes {
		n = strings.TrimSpace(re.ReplaceAllString(n, ""))
	}
	for _, loc := range localities {
		if loc == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\s+` + regexp.QuoteMeta(loc) + `$`)
		n = strings.TrimSpace(re.ReplaceAllString(n, ""))
	}
	return n
}

// priceScale maps the provider's integer price level to the display scale.
var priceScale = []string{"Free", "£", "££", "£££", "££££"}

// PriceRange maps a 0-4 price level to the five-symbol scale. Out-of-range
// or absent input maps to no value, never an error.
func PriceRange(level *int) *string {
	if level == nil {
		return nil
	}
	if *level < 0 || *level >= len(priceScale) {
		return nil
	}
	return model.Ptr(priceScale[*level])
}

// RatingValue cleans a hygiene-style rating token. Numerals and categorical
// tokens (Exempt, AwaitingInspection, ...) pass through; the empty string
// and the literal "null"/"none" tokens normalize to no value.
func RatingValue(raw string) *string {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "", "null", "none":
		return nil
	}
	return model.Ptr(v)
}

// RatingDate parses an FSA rating date, returned by the API as either a bare
// date or an ISO 8601 datetime. Unparseable input yields no value.
func RatingDate(raw string) *time.Time {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return model.Ptr(t)
		}
	}
	return nil
}
