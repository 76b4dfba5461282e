package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/formby-guide/guide-cli/internal/model"
)

// MergePolicy controls how one column behaves during an enrichment merge.
type MergePolicy int

const (
	// OverwriteAlways writes the new value whenever the enrichment
	// carries one, replacing any stored value.
	OverwriteAlways MergePolicy = iota
	// FillIfNull writes the new value only when it is non-null;
	// otherwise the stored value is retained.
	FillIfNull
)

// mergePolicies is the explicit per-field update policy. External
// identifiers are refreshed whenever resolution succeeds; every other
// provider-sourced field fills forward so a null from the provider never
// erases previously known good data.
var mergePolicies = map[string]MergePolicy{
	"place_id":            OverwriteAlways,
	"fhrs_id":             OverwriteAlways,
	"hygiene_rating_show": OverwriteAlways,

	"phone":               FillIfNull,
	"website":             FillIfNull,
	"rating":              FillIfNull,
	"review_count":        FillIfNull,
	"price_range":         FillIfNull,
	"opening_hours":       FillIfNull,
	"address":             FillIfNull,
	"postcode":            FillIfNull,
	"short_description":   FillIfNull,
	"hygiene_rating":      FillIfNull,
	"hygiene_rating_date": FillIfNull,
}

// fieldUpdate is one column's pending merge value.
type fieldUpdate struct {
	column string
	value  any
	policy MergePolicy
}

// enrichmentFields flattens an Enrichment into ordered column updates.
// Columns whose policy is OverwriteAlways are omitted entirely when the
// enrichment carries no value for them, so one provider's merge cannot null
// out another provider's identifier.
func enrichmentFields(e model.Enrichment) ([]fieldUpdate, error) {
	var hours *string
	if e.OpeningHours != nil {
		data, err := json.Marshal(e.OpeningHours)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal opening hours")
		}
		hours = model.Ptr(string(data))
	}

	// An empty extracted postcode means "no value".
	postcode := e.Postcode
	if postcode != nil && *postcode == "" {
		postcode = nil
	}

	candidates := []fieldUpdate{
		{column: "place_id", value: e.PlaceID},
		{column: "fhrs_id", value: e.FHRSID},
		{column: "hygiene_rating_show", value: e.HygieneRatingShow},
		{column: "phone", value: e.Phone},
		{column: "website", value: e.Website},
		{column: "rating", value: e.Rating},
		{column: "review_count", value: e.ReviewCount},
		{column: "price_range", value: e.PriceRange},
		{column: "opening_hours", value: hours},
		{column: "address", value: e.Address},
		{column: "postcode", value: postcode},
		{column: "short_description", value: e.ShortDescription},
		{column: "hygiene_rating", value: e.HygieneRating},
		{column: "hygiene_rating_date", value: e.HygieneRatingDate},
	}

	fields := make([]fieldUpdate, 0, len(candidates))
	for _, c := range candidates {
		policy, ok := mergePolicies[c.column]
		if !ok {
			return nil, eris.Errorf("store: column %s has no merge policy", c.column)
		}
		c.policy = policy
		if policy == OverwriteAlways && isNilValue(c.value) {
			continue
		}
		fields = append(fields, c)
	}
	return fields, nil
}

func isNilValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *string:
		return t == nil
	case *bool:
		return t == nil
	case *int:
		return t == nil
	case *float64:
		return t == nil
	case *time.Time:
		return t == nil
	}
	return false
}

// buildMergeSQL renders the SET clause and argument list for a merge. The
// placeholder function formats the n-th (1-based) parameter for the target
// backend. The business ID is appended as the final argument.
func buildMergeSQL(table, businessID string, fields []fieldUpdate, now time.Time, placeholder func(int) string) (string, []any) {
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)

	for _, f := range fields {
		args = append(args, f.value)
		p := placeholder(len(args))
		switch f.policy {
		case OverwriteAlways:
			sets = append(sets, fmt.Sprintf("%s = %s", f.column, p))
		case FillIfNull:
			sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, %s)", f.column, p, f.column))
		}
	}

	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = %s", placeholder(len(args))))

	args = append(args, businessID)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s",
		table, strings.Join(sets, ", "), placeholder(len(args)))

	return sql, args
}

func pgPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func sqlitePlaceholder(int) string { return "?" }
