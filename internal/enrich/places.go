// Package enrich binds the external providers into the generic pipeline:
// resolution tier cascades on one side, detail fetch plus normalization on
// the other.
package enrich

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/normalize"
	"github.com/formby-guide/guide-cli/internal/resolve"
	"github.com/formby-guide/guide-cli/pkg/places"
)

// PlacesOptions configures the Places provider.
type PlacesOptions struct {
	// Locality is appended to exact-search queries ("The Grill Formby").
	Locality string
	// DefaultLat/DefaultLng bias searches for records without coordinates.
	DefaultLat float64
	DefaultLng float64
	// BiasRadiusMetres is the circular location-bias radius.
	BiasRadiusMetres int
	// StripSuffixes are locality suffixes removed by the cleaned-name tier.
	StripSuffixes []string
}

// PlacesProvider enriches businesses from the Places API.
type PlacesProvider struct {
	client   places.Client
	opts     PlacesOptions
	resolver *resolve.Resolver
}

// NewPlaces creates the Places provider with its resolution cascade.
func NewPlaces(client places.Client, opts PlacesOptions) *PlacesProvider {
	if opts.BiasRadiusMetres <= 0 {
		opts.BiasRadiusMetres = 3000
	}
	p := &PlacesProvider{client: client, opts: opts}
	p.resolver = resolve.New("places",
		resolve.Func{Tier: "existing-id", Run: p.existingID},
		resolve.Func{Tier: "exact", Run: p.exactSearch},
		resolve.Func{Tier: "cleaned-name", Run: p.cleanedSearch},
		resolve.Func{Tier: "name-only", Run: p.nameSearch},
	)
	return p
}

// Name implements pipeline.Provider.
func (p *PlacesProvider) Name() string { return "places" }

// Resolve implements pipeline.Provider.
func (p *PlacesProvider) Resolve(ctx context.Context, biz model.Business) (string, resolve.Outcome) {
	return p.resolver.Resolve(ctx, biz)
}

func (p *PlacesProvider) existingID(_ context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	if biz.PlaceID != nil && *biz.PlaceID != "" {
		return resolve.Candidate{ExternalID: *biz.PlaceID}, true, nil
	}
	return resolve.Candidate{}, false, nil
}

func (p *PlacesProvider) bias(biz model.Business) *places.LocationBias {
	lat, lng := p.opts.DefaultLat, p.opts.DefaultLng
	if biz.Lat != nil && biz.Lng != nil {
		lat, lng = *biz.Lat, *biz.Lng
	}
	return &places.LocationBias{Lat: lat, Lng: lng, RadiusMetres: p.opts.BiasRadiusMetres}
}

func (p *PlacesProvider) exactSearch(ctx context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	input := biz.Name
	if p.opts.Locality != "" {
		input += " " + p.opts.Locality
	}
	hits, err := p.client.FindPlace(ctx, input, p.bias(biz))
	if err != nil {
		return resolve.Candidate{}, false, err
	}
	if len(hits) == 0 {
		return resolve.Candidate{}, false, nil
	}
	return resolve.Candidate{ExternalID: hits[0].PlaceID, Address: hits[0].FormattedAddress}, true, nil
}

func (p *PlacesProvider) cleanedSearch(ctx context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	area := bizOutward(biz)
	if area == "" {
		return resolve.Candidate{}, false, nil
	}
	input := normalize.CleanName(biz.Name, p.opts.StripSuffixes...) + " " + area
	hits, err := p.client.FindPlace(ctx, input, p.bias(biz))
	if err != nil {
		return resolve.Candidate{}, false, err
	}
	if len(hits) == 0 {
		return resolve.Candidate{}, false, nil
	}
	return resolve.Candidate{ExternalID: hits[0].PlaceID, Address: hits[0].FormattedAddress}, true, nil
}

func (p *PlacesProvider) nameSearch(ctx context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	hits, err := p.client.FindPlace(ctx, normalize.CleanName(biz.Name, p.opts.StripSuffixes...), nil)
	if err != nil {
		return resolve.Candidate{}, false, err
	}
	candidates := make([]resolve.Candidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, resolve.Candidate{ExternalID: h.PlaceID, Address: h.FormattedAddress})
	}
	c, ok := resolve.PreferArea(candidates, bizOutward(biz))
	return c, ok, nil
}

// Fetch implements pipeline.Provider: retrieve details and normalize them.
func (p *PlacesProvider) Fetch(ctx context.Context, externalID string) (*model.Enrichment, bool) {
	details, found, err := p.client.Details(ctx, externalID)
	if err != nil {
		zap.L().Warn("places: detail fetch failed",
			zap.String("place_id", externalID),
			zap.Error(err),
		)
		return nil, false
	}
	if !found {
		return nil, false
	}

	if details.BusinessStatus == places.BusinessStatusClosed {
		return &model.Enrichment{PlaceID: model.Ptr(externalID), PermanentlyClosed: true}, true
	}

	e := &model.Enrichment{
		PlaceID:     model.Ptr(externalID),
		Rating:      details.Rating,
		ReviewCount: details.UserRatingsTotal,
		PriceRange:  normalize.PriceRange(details.PriceLevel),
	}

	if phone := firstNonEmpty(details.FormattedPhoneNumber, details.InternationalPhoneNumber); phone != "" {
		e.Phone = model.Ptr(phone)
	}
	if details.Website != "" {
		e.Website = model.Ptr(details.Website)
	}
	if details.FormattedAddress != "" {
		e.Address = model.Ptr(details.FormattedAddress)
		if pc := normalize.ExtractPostcode(details.FormattedAddress); pc != "" {
			e.Postcode = model.Ptr(pc)
		}
	}
	if details.EditorialSummary != nil && details.EditorialSummary.Overview != "" {
		e.ShortDescription = model.Ptr(details.EditorialSummary.Overview)
	}
	e.OpeningHours = normalizeHours(details.OpeningHours)

	return e, true
}

// normalizeHours restructures the provider's opening-hours payload. Absent
// source data yields no value so the merge leaves the field untouched.
func normalizeHours(oh *places.OpeningHours) *model.OpeningHours {
	if oh == nil {
		return nil
	}
	out := &model.OpeningHours{
		WeekdayText: oh.WeekdayText,
		OpenNow:     oh.OpenNow,
	}
	for _, p := range oh.Periods {
		period := model.Period{
			Open: model.DayTime{Day: p.Open.Day, Time: p.Open.Time},
		}
		if p.Close != nil {
			period.Close = &model.DayTime{Day: p.Close.Day, Time: p.Close.Time}
		}
		out.Periods = append(out.Periods, period)
	}
	return out
}

// bizOutward derives the record's postcode area from its stored postcode or,
// failing that, from its address text.
func bizOutward(biz model.Business) string {
	if biz.Postcode != nil && *biz.Postcode != "" {
		return normalize.OutwardCode(*biz.Postcode)
	}
	if biz.Address != nil {
		return normalize.OutwardCode(normalize.ExtractPostcode(*biz.Address))
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
