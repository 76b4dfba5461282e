// Package resolve turns an ambiguous local record into one external
// identifier via an ordered cascade of matchers. Each matcher is one tier of
// the fallback strategy; the cascade stops at the first tier that produces a
// candidate. Transport failures inside a tier are swallowed as "no result
// for this tier" so one flaky call cannot abort a whole run, but they keep
// the record retryable instead of marking it a terminal not-found.
package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/formby-guide/guide-cli/internal/model"
)

// Candidate is one provider search hit.
type Candidate struct {
	ExternalID string
	Address    string
}

// Matcher is one tier in the resolution cascade.
type Matcher interface {
	// Name identifies the tier in logs.
	Name() string
	// Attempt issues at most one external call and returns the best
	// candidate, ok=false when the tier produced no result.
	Attempt(ctx context.Context, biz model.Business) (Candidate, bool, error)
}

// Outcome classifies the result of a full cascade.
type Outcome int

const (
	// Resolved means a tier produced an external identifier.
	Resolved Outcome = iota
	// NotFound means every tier completed and none matched; a normal
	// terminal outcome, not an error.
	NotFound
	// Unavailable means no tier matched but at least one suffered a
	// transport failure; the record stays eligible for a future run.
	Unavailable
)

// Resolver evaluates matchers in order until one succeeds.
type Resolver struct {
	provider string
	matchers []Matcher
}

// New creates a resolver for the named provider with the given tiers.
func New(provider string, matchers ...Matcher) *Resolver {
	return &Resolver{provider: provider, matchers: matchers}
}

// Resolve runs the cascade for one business.
func (r *Resolver) Resolve(ctx context.Context, biz model.Business) (string, Outcome) {
	log := zap.L().With(
		zap.String("component", "resolve"),
		zap.String("provider", r.provider),
		zap.String("business", biz.Name),
	)

	sawTransportErr := false
	for _, m := range r.matchers {
		cand, ok, err := m.Attempt(ctx, biz)
		if err != nil {
			sawTransportErr = true
			log.Warn("tier failed, falling through",
				zap.String("tier", m.Name()),
				zap.Error(err),
			)
			continue
		}
		if ok {
			log.Debug("resolved", zap.String("tier", m.Name()), zap.String("external_id", cand.ExternalID))
			return cand.ExternalID, Resolved
		}
	}

	if sawTransportErr {
		return "", Unavailable
	}
	return "", NotFound
}

// PreferArea picks the candidate whose address text contains the postcode
// area (case-insensitive substring). With no area or no match it falls back
// to the first candidate. ok=false only when the list is empty.
func PreferArea(candidates []Candidate, area string) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	if area != "" {
		upper := strings.ToUpper(area)
		for _, c := range candidates {
			if strings.Contains(strings.ToUpper(c.Address), upper) {
				return c, true
			}
		}
	}
	return candidates[0], true
}

// Func adapts a plain function into a Matcher.
type Func struct {
	Tier string
	Run  func(ctx context.Context, biz model.Business) (Candidate, bool, error)
}

// Name implements Matcher.
func (f Func) Name() string { return f.Tier }

// Attempt implements Matcher.
func (f Func) Attempt(ctx context.Context, biz model.Business) (Candidate, bool, error) {
	return f.Run(ctx, biz)
}
