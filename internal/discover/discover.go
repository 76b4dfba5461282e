// Package discover harvests candidate businesses from a geographic search
// grid: a set of search points, each swept with a list of place types via
// paginated nearby search, deduplicated by place identifier.
package discover

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/store"
	"github.com/formby-guide/guide-cli/pkg/places"
)

// SearchPoint is one centre of the harvest grid.
type SearchPoint struct {
	Label        string  `mapstructure:"label"`
	Lat          float64 `mapstructure:"lat"`
	Lng          float64 `mapstructure:"lng"`
	RadiusMetres int     `mapstructure:"radius_metres"`
}

// DefaultSearchPoints covers the Sefton Coast between Formby and Crosby
// without overlapping Southport to the north or Liverpool to the south.
func DefaultSearchPoints() []SearchPoint {
	return []SearchPoint{
		{Label: "Formby village & inland", Lat: 53.5545, Lng: -3.0716, RadiusMetres: 4000},
		{Label: "Hightown village & beach", Lat: 53.5195, Lng: -3.0680, RadiusMetres: 2000},
		{Label: "Crosby Beach / Another Place", Lat: 53.4847, Lng: -3.0620, RadiusMetres: 2000},
	}
}

// categoryBySearchType maps a provider place type to a directory category
// slug. Types not listed fall back to "activities".
var categoryBySearchType = map[string]string{
	"restaurant":    "restaurants",
	"meal_takeaway": "restaurants",
	"meal_delivery": "restaurants",
	"food":          "restaurants",

	"cafe":   "cafes",
	"bakery": "cafes",

	"bar":          "pubs",
	"night_club":   "pubs",
	"liquor_store": "pubs",

	"lodging":           "accommodation",
	"hotel":             "accommodation",
	"bed_and_breakfast": "accommodation",
	"guest_house":       "accommodation",
	"motel":             "accommodation",
	"resort_hotel":      "accommodation",
	"campground":        "accommodation",

	"bowling_alley":      "activities",
	"amusement_park":     "activities",
	"movie_theater":      "activities",
	"gym":                "activities",
	"tourist_attraction": "activities",
	"museum":             "activities",
	"art_gallery":        "activities",

	"park":            "nature-walks",
	"natural_feature": "nature-walks",

	"beach": "beaches",

	"store":                "shopping",
	"clothing_store":       "shopping",
	"book_store":           "shopping",
	"shoe_store":           "shopping",
	"jewelry_store":        "shopping",
	"florist":              "shopping",
	"gift_shop":            "shopping",
	"home_goods_store":     "shopping",
	"pet_store":            "shopping",
	"toy_store":            "shopping",
	"sporting_goods_store": "shopping",
	"department_store":     "shopping",
	"supermarket":          "shopping",
	"convenience_store":    "shopping",
	"hair_care":            "shopping",
	"beauty_salon":         "shopping",
	"spa":                  "shopping",
}

// DefaultSearchTypes are the place types swept at every search point.
func DefaultSearchTypes() []string {
	return []string{
		"restaurant", "cafe", "bar", "lodging", "meal_takeaway", "bakery",
		"store", "clothing_store", "book_store", "gift_shop", "florist",
		"hair_care", "beauty_salon", "spa", "pet_store",
		"sporting_goods_store", "gym", "bowling_alley",
		"tourist_attraction", "museum", "art_gallery", "park", "beach",
		"bed_and_breakfast", "guest_house",
	}
}

// CategoryFor returns the category slug for a provider place type.
func CategoryFor(placeType string) string {
	if slug, ok := categoryBySearchType[placeType]; ok {
		return slug
	}
	return "activities"
}

// Options configures a harvest run.
type Options struct {
	Points      []SearchPoint
	Types       []string
	MaxPages    int
	Concurrency int
	DryRun      bool
}

// Summary reports a completed harvest.
type Summary struct {
	Points    int   `json:"points"`
	Types     int   `json:"types"`
	Found     int   `json:"found"`
	Inserted  int64 `json:"inserted"`
	Duplicate int   `json:"duplicate"`
}

// Harvester sweeps the grid and inserts new candidates.
type Harvester struct {
	client places.Client
	store  store.Store
	opts   Options

	mu    sync.Mutex
	seen  map[string]model.NewBusiness
	slugs map[string]int
	dups  int
}

// New creates a Harvester. Zero options fall back to the default grid.
func New(client places.Client, st store.Store, opts Options) *Harvester {
	if len(opts.Points) == 0 {
		opts.Points = DefaultSearchPoints()
	}
	if len(opts.Types) == 0 {
		opts.Types = DefaultSearchTypes()
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	return &Harvester{
		client: client,
		store:  st,
		opts:   opts,
		seen:   make(map[string]model.NewBusiness),
		slugs:  make(map[string]int),
	}
}

// Run sweeps every point/type combination. The fan-out is bounded; the
// client's rate limiter still serializes provider calls underneath.
func (h *Harvester) Run(ctx context.Context) (*Summary, error) {
	log := zap.L().With(zap.String("component", "discover"))
	log.Info("starting harvest",
		zap.Int("points", len(h.opts.Points)),
		zap.Int("types", len(h.opts.Types)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Concurrency)

	for _, point := range h.opts.Points {
		for _, placeType := range h.opts.Types {
			g.Go(func() error {
				return h.sweep(gctx, point, placeType, log)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "discover: harvest")
	}

	summary := &Summary{
		Points:    len(h.opts.Points),
		Types:     len(h.opts.Types),
		Found:     len(h.seen),
		Duplicate: h.dups,
	}

	if h.opts.DryRun {
		log.Info("dry run, skipping insert", zap.Int("found", summary.Found))
		return summary, nil
	}

	candidates := make([]model.NewBusiness, 0, len(h.seen))
	for _, c := range h.seen {
		candidates = append(candidates, c)
	}
	inserted, err := h.store.InsertBusinesses(ctx, candidates)
	if err != nil {
		return summary, eris.Wrap(err, "discover: insert businesses")
	}
	summary.Inserted = inserted

	log.Info("harvest complete",
		zap.Int("found", summary.Found),
		zap.Int64("inserted", summary.Inserted),
		zap.Int("duplicate", summary.Duplicate),
	)
	return summary, nil
}

func (h *Harvester) sweep(ctx context.Context, point SearchPoint, placeType string, log *zap.Logger) error {
	started := time.Now()
	results, err := h.client.NearbySearch(ctx, point.Lat, point.Lng, point.RadiusMetres, placeType, h.opts.MaxPages)
	if err != nil {
		return eris.Wrapf(err, "discover: sweep %s/%s", point.Label, placeType)
	}

	added := h.record(results, placeType)
	log.Debug("swept",
		zap.String("point", point.Label),
		zap.String("type", placeType),
		zap.Int("results", len(results)),
		zap.Int("new", added),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

// record dedupes first-seen-wins by place identifier: the first place type
// to surface a place decides its category.
func (h *Harvester) record(results []places.NearbyPlace, placeType string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	added := 0
	for _, r := range results {
		if r.PlaceID == "" {
			continue
		}
		if _, ok := h.seen[r.PlaceID]; ok {
			h.dups++
			continue
		}
		h.seen[r.PlaceID] = model.NewBusiness{
			ID:           uuid.New().String(),
			Name:         r.Name,
			Slug:         h.uniqueSlug(r.Name),
			CategorySlug: CategoryFor(placeType),
			Address:      r.Vicinity,
			Lat:          r.Geometry.Location.Lat,
			Lng:          r.Geometry.Location.Lng,
			PlaceID:      r.PlaceID,
		}
		added++
	}
	return added
}

// uniqueSlug disambiguates slug collisions inside one harvest ("the-grill",
// "the-grill-2"). Caller holds h.mu.
func (h *Harvester) uniqueSlug(name string) string {
	base := Slugify(name)
	h.slugs[base]++
	if n := h.slugs[base]; n > 1 {
		return fmt.Sprintf("%s-%d", base, n)
	}
	return base
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a name and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(name string) string {
	s := nonSlugRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
