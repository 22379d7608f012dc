// Package goals maps time-windowed sales targets to people.
package goals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/salesboard/internal/domain/model"
	"github.com/okian/salesboard/pkg/logger"
	"github.com/okian/salesboard/pkg/metrics"
)

var aliasPattern = regexp.MustCompile(`\((.*?)\)`)

// dateLayouts are tried in order when parsing window bounds.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// AliasResolver finds the person a goal alias belongs to.
type AliasResolver interface {
	ResolveAlias(alias string) (model.Person, bool)
}

// Targets maps a short name to its active numeric target.
type Targets map[string]float64

// Lookup returns the target for name, 0 when none is active.
func (t Targets) Lookup(name string) float64 {
	return t[name]
}

// Resolver selects the active goal for every person.
type Resolver struct {
	people AliasResolver
	logger logger.Logger
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver over the given people index.
func NewResolver(people AliasResolver, opts ...Option) *Resolver {
	r := &Resolver{
		people: people,
		logger: logger.Get().Named("goals"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the target of the latest-starting active goal per person.
// Records that cannot be used are dropped and reported in the error slice;
// they never abort the rest of the batch. Ties on start keep the goal that
// appears first in records.
func (r *Resolver) Resolve(ctx context.Context, now time.Time, records []model.GoalRecord) (Targets, []error) {
	chosen := make(map[string]model.Goal)
	var errs []error

	for _, rec := range records {
		goal, person, err := r.parse(rec)
		if err != nil {
			errs = append(errs, err)
			metrics.RecordGoalDropped(dropReason(err))
			r.logger.Debug(ctx, "goal dropped", logger.String("goal", rec.Name), logger.Error(err))
			continue
		}
		if !goal.Active(now) {
			continue
		}
		cur, ok := chosen[person.ShortName]
		if !ok || goal.Start.After(cur.Start) {
			chosen[person.ShortName] = goal
		}
	}

	targets := make(Targets, len(chosen))
	for short, g := range chosen {
		targets[short] = g.Target
	}
	metrics.UpdateGoalsResolved(len(targets))
	return targets, errs
}

func (r *Resolver) parse(rec model.GoalRecord) (model.Goal, model.Person, error) {
	alias := ExtractAlias(rec.Name)
	if alias == "" {
		return model.Goal{}, model.Person{}, &ParseError{Label: rec.Name, Field: "Goal Name", Err: ErrNoAlias}
	}
	person, ok := r.people.ResolveAlias(alias)
	if !ok {
		return model.Goal{}, model.Person{}, &ParseError{
			Label: rec.Name,
			Field: "Goal Name",
			Err:   fmt.Errorf("alias %q: %w", alias, ErrUnresolved),
		}
	}

	target, err := strconv.ParseFloat(strings.TrimSpace(rec.Target), 64)
	if err == nil && (math.IsNaN(target) || math.IsInf(target, 0)) {
		err = fmt.Errorf("non-finite target %q", rec.Target)
	}
	if err != nil {
		return model.Goal{}, model.Person{}, &ParseError{Label: rec.Name, Field: "Target", Err: err}
	}
	start, err := ParseTime(rec.Start)
	if err != nil {
		return model.Goal{}, model.Person{}, &ParseError{Label: rec.Name, Field: "Start", Err: err}
	}
	end, err := ParseTime(rec.End)
	if err != nil {
		return model.Goal{}, model.Person{}, &ParseError{Label: rec.Name, Field: "End", Err: err}
	}

	return model.Goal{
		Label:  rec.Name,
		Alias:  alias,
		Target: target,
		Start:  start,
		End:    end,
	}, person, nil
}

// ExtractAlias returns the text inside the first parenthesis pair of label.
func ExtractAlias(label string) string {
	m := aliasPattern.FindStringSubmatch(label)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseTime parses a goal window bound. Date-only values are midnight UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrNoAlias):
		return "no_alias"
	case errors.Is(err, ErrUnresolved):
		return "unresolved"
	default:
		return "parse"
	}
}
