package enrich

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/normalize"
	"github.com/formby-guide/guide-cli/internal/resolve"
	"github.com/formby-guide/guide-cli/pkg/fsa"
)

// HygieneOptions configures the hygiene provider.
type HygieneOptions struct {
	// StripSuffixes are locality suffixes removed before name searches.
	StripSuffixes []string
}

// HygieneProvider enriches businesses with FSA food hygiene ratings.
type HygieneProvider struct {
	client   fsa.Client
	opts     HygieneOptions
	resolver *resolve.Resolver
}

// NewHygiene creates the hygiene provider with its resolution cascade.
func NewHygiene(client fsa.Client, opts HygieneOptions) *HygieneProvider {
	p := &HygieneProvider{client: client, opts: opts}
	p.resolver = resolve.New("hygiene",
		resolve.Func{Tier: "existing-id", Run: p.existingID},
		resolve.Func{Tier: "postcode", Run: p.postcodeSearch},
		resolve.Func{Tier: "outward", Run: p.outwardSearch},
		resolve.Func{Tier: "name-only", Run: p.nameSearch},
	)
	return p
}

// Name implements pipeline.Provider.
func (p *HygieneProvider) Name() string { return "hygiene" }

// Resolve implements pipeline.Provider.
func (p *HygieneProvider) Resolve(ctx context.Context, biz model.Business) (string, resolve.Outcome) {
	return p.resolver.Resolve(ctx, biz)
}

func (p *HygieneProvider) existingID(_ context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	if biz.FHRSID != nil && *biz.FHRSID != "" {
		return resolve.Candidate{ExternalID: *biz.FHRSID}, true, nil
	}
	return resolve.Candidate{}, false, nil
}

func (p *HygieneProvider) search(ctx context.Context, name, address string) ([]resolve.Candidate, error) {
	hits, err := p.client.SearchEstablishments(ctx, name, address)
	if err != nil {
		return nil, err
	}
	candidates := make([]resolve.Candidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, resolve.Candidate{
			ExternalID: strconv.FormatInt(h.FHRSID, 10),
			Address:    h.AddressText(),
		})
	}
	return candidates, nil
}

func (p *HygieneProvider) postcodeSearch(ctx context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	if biz.Postcode == nil || *biz.Postcode == "" {
		return resolve.Candidate{}, false, nil
	}
	hits, err := p.search(ctx, biz.Name, *biz.Postcode)
	if err != nil {
		return resolve.Candidate{}, false, err
	}
	if len(hits) == 0 {
		return resolve.Candidate{}, false, nil
	}
	return hits[0], true, nil
}

func (p *HygieneProvider) outwardSearch(ctx context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	area := bizOutward(biz)
	if area == "" {
		return resolve.Candidate{}, false, nil
	}
	hits, err := p.search(ctx, normalize.CleanName(biz.Name, p.opts.StripSuffixes...), area)
	if err != nil {
		return resolve.Candidate{}, false, err
	}
	if len(hits) == 0 {
		return resolve.Candidate{}, false, nil
	}
	return hits[0], true, nil
}

func (p *HygieneProvider) nameSearch(ctx context.Context, biz model.Business) (resolve.Candidate, bool, error) {
	hits, err := p.search(ctx, normalize.CleanName(biz.Name, p.opts.StripSuffixes...), "")
	if err != nil {
		return resolve.Candidate{}, false, err
	}
	c, ok := resolve.PreferArea(hits, bizOutward(biz))
	return c, ok, nil
}

// Fetch implements pipeline.Provider: look the establishment up by FHRS ID
// and normalize its rating fields.
func (p *HygieneProvider) Fetch(ctx context.Context, externalID string) (*model.Enrichment, bool) {
	est, found, err := p.client.Establishment(ctx, externalID)
	if err != nil {
		zap.L().Warn("hygiene: establishment fetch failed",
			zap.String("fhrs_id", externalID),
			zap.Error(err),
		)
		return nil, false
	}
	if !found {
		return nil, false
	}

	e := &model.Enrichment{
		FHRSID:            model.Ptr(externalID),
		HygieneRating:     normalize.RatingValue(est.RatingValue),
		HygieneRatingDate: normalize.RatingDate(est.RatingDate),
		HygieneRatingShow: model.Ptr(true),
	}
	return e, true
}
