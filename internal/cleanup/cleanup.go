// Package cleanup prunes records that do not belong in a visitor directory:
// trades, medical practices, schools, individual holiday lets. Rules come
// from a YAML file of exact names, case-insensitive patterns, and a protect
// list that overrides both.
package cleanup

import (
	"context"
	"os"
	"regexp"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/store"
)

// Rules is the deny-list document.
type Rules struct {
	// DeleteNames are exact business names to remove.
	DeleteNames []string `yaml:"delete_names"`
	// DeletePatterns are case-insensitive regular expressions matched
	// against the business name.
	DeletePatterns []string `yaml:"delete_patterns"`
	// ProtectNames are exact names kept even when a pattern matches.
	ProtectNames []string `yaml:"protect_names"`
}

// DefaultRules is the built-in deny list, used when no rules file is given.
// Keeps the visitor categories; removes trades, medical, schools, parking,
// and individual holiday-let listings.
func DefaultRules() *Rules {
	return &Rules{
		DeleteNames: []string{
			"Formby Car Park",
			"National Trust Car Park Formby",
			"Victoria Road Car Park",
			"Formby Medical Centre",
			"Formby Dental Practice",
			"Hightown Surgery",
			"Formby Pharmacy",
			"Boots Formby",
			"Formby Law",
			"Karen Potter The Estate Agent",
			"Formby Plumbing",
			"Formby Heating Services",
			"Formby Electrical",
			"Perrys Formby",
			"Formby Tyres",
			"Formby Funeral Service",
			"Formby High School",
			"Formby Primary School",
			"Freshfield Primary School",
			"Password Driving School",
			"St Luke's Church Formby",
			"Formby Post Office",
			"Freshfield Post Office",
		},
		DeletePatterns: []string{
			`^\d+\s+bed(room)?\s+`,
			`-\s+(one|two|three|four|five|six|seven|eight)-bedroom\s+(house|apartment|flat|cottage|bungalow)$`,
			`\(sleeps\s+\d+\)`,
			`self.?cater`,
			`holiday\s+let\b`,
			`^\d+\s+\w+\s+(lane|road|street|avenue|drive|close|way|crescent|terrace|place|court|grove)$`,
			`(one|two|three|four)-bedroom\s+(house|apartment|flat)`,
		},
		ProtectNames: []string{
			"Formby Hall Golf Resort & Spa",
			"Tree Tops Holiday Cottages",
			"Formby Holiday Cottages",
			"Formby Beach Self-Catering",
		},
	}
}

// LoadRules reads and validates a rules file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cleanup: read rules %s", path)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "cleanup: parse rules %s", path)
	}
	for _, p := range r.DeletePatterns {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			return nil, eris.Wrapf(err, "cleanup: invalid pattern %q", p)
		}
	}
	return &r, nil
}

// Pruner applies a rule set against the store.
type Pruner struct {
	store    store.Store
	names    map[string]struct{}
	protect  map[string]struct{}
	patterns []*regexp.Regexp
}

// New compiles the rules into a Pruner. Rules must already have passed
// LoadRules validation.
func New(st store.Store, rules *Rules) (*Pruner, error) {
	p := &Pruner{
		store:   st,
		names:   make(map[string]struct{}, len(rules.DeleteNames)),
		protect: make(map[string]struct{}, len(rules.ProtectNames)),
	}
	for _, n := range rules.DeleteNames {
		p.names[n] = struct{}{}
	}
	for _, n := range rules.ProtectNames {
		p.protect[n] = struct{}{}
	}
	for _, pat := range rules.DeletePatterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, eris.Wrapf(err, "cleanup: invalid pattern %q", pat)
		}
		p.patterns = append(p.patterns, re)
	}
	return p, nil
}

// Matches reports whether a business name is slated for deletion.
func (p *Pruner) Matches(name string) bool {
	if _, ok := p.protect[name]; ok {
		return false
	}
	if _, ok := p.names[name]; ok {
		return true
	}
	for _, re := range p.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Summary reports a cleanup pass.
type Summary struct {
	Total   int      `json:"total"`
	Matched int      `json:"matched"`
	Deleted int      `json:"deleted"`
	DryRun  bool     `json:"dry_run"`
	Names   []string `json:"names"`
}

// Run scans the directory and deletes matching records. With dryRun set it
// only reports what would go.
func (p *Pruner) Run(ctx context.Context, dryRun bool) (*Summary, error) {
	log := zap.L().With(zap.String("component", "cleanup"))

	businesses, err := p.store.ListBusinesses(ctx, store.ListFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "cleanup: list businesses")
	}

	var matched []model.Business
	for _, b := range businesses {
		if p.Matches(b.Name) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	summary := &Summary{
		Total:   len(businesses),
		Matched: len(matched),
		DryRun:  dryRun,
	}
	for _, b := range matched {
		summary.Names = append(summary.Names, b.Name)
	}

	if dryRun {
		for _, b := range matched {
			log.Info("would delete", zap.String("business", b.Name))
		}
		return summary, nil
	}

	for _, b := range matched {
		if err := p.store.DeleteBusiness(ctx, b.ID); err != nil {
			return summary, eris.Wrapf(err, "cleanup: delete %s", b.Name)
		}
		log.Info("deleted", zap.String("business", b.Name))
		summary.Deleted++
	}

	log.Info("cleanup complete",
		zap.Int("total", summary.Total),
		zap.Int("deleted", summary.Deleted),
	)
	return summary, nil
}
