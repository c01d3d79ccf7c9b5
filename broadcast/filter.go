package broadcast

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnsupportedFilter is wrapped by every validation failure returned from
// Register. The message lists every violated constraint, not just the first.
var ErrUnsupportedFilter = errors.New("unsupported broadcast filter")

// Filter describes which events a registration wants. Only actions and
// categories are supported for dispatch; the remaining fields exist so that
// filters built for richer matchers can be rejected up front instead of
// silently never matching.
type Filter struct {
	Actions    []string
	Categories []string

	// Unsupported constraints. Validate rejects a filter carrying any of
	// these.
	Schemes     []string
	Authorities []string
	Paths       []string
	Types       []string
	Priority    int
}

// Validate checks the filter against the supported constraint set. It runs on
// the caller's goroutine before any message is enqueued, and accumulates all
// violations into a single error so the caller sees every problem at once.
func (f Filter) Validate() error {
	var violations []string
	if len(f.Actions) == 0 {
		violations = append(violations, "must contain at least one action")
	}
	if len(f.Schemes) != 0 {
		violations = append(violations, "must not contain any data schemes")
	}
	if len(f.Authorities) != 0 {
		violations = append(violations, "must not contain any data authorities")
	}
	if len(f.Paths) != 0 {
		violations = append(violations, "must not contain any data paths")
	}
	if len(f.Types) != 0 {
		violations = append(violations, "must not contain any data types")
	}
	if f.Priority != 0 {
		violations = append(violations, "must not set a priority")
	}
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFilter, strings.Join(violations, ", "))
}

// Matches reports whether ev satisfies this filter: its action is one of the
// filter's actions and every category it carries is declared on the filter.
func (f Filter) Matches(ev Event) bool {
	if !slices.Contains(f.Actions, ev.Action) {
		return false
	}
	for _, c := range ev.Categories {
		if !slices.Contains(f.Categories, c) {
			return false
		}
	}
	return true
}

// Equal reports whether two filters carry exactly the same constraints.
// Delegates use it to de-duplicate repeat registrations of the same
// (receiver, filter) pair.
func (f Filter) Equal(o Filter) bool {
	return slices.Equal(f.Actions, o.Actions) &&
		slices.Equal(f.Categories, o.Categories) &&
		slices.Equal(f.Schemes, o.Schemes) &&
		slices.Equal(f.Authorities, o.Authorities) &&
		slices.Equal(f.Paths, o.Paths) &&
		slices.Equal(f.Types, o.Types) &&
		f.Priority == o.Priority
}
