// internal/source/registry.go
//
// Source Registry: the portfolio domains allowed to tag submissions.
//
// Context
// -------
// Every stored message carries a `source` naming the website whose contact
// form produced it.  The registry is built once from `sources.*` in the
// config and never changes while the process runs, so it needs no locking.
//
// Policy
// ------
//   • lenient (default)  A source outside the list is accepted, logged at
//     WARN, and counted so operators can spot a new site or a typo.
//   • strict             A source outside the list is rejected with a
//     field error on `source`, reported alongside the other field errors.
//
// Notes
// -----
//   • Matching is exact.  "DavidAdebanwo.com" and "davidadebanwo.com" are
//     different sources, as they are in the stored data.
//   • The primary domain is always part of List, first if the config left
//     it out.

package source

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/yanizio/inbox/internal/config"
	"github.com/yanizio/inbox/internal/metrics"
)

// ErrUnknownSource is wrapped by Check under the strict policy.
var ErrUnknownSource = errors.New("unknown source")

// Registry holds the configured domains in configuration order.
type Registry struct {
	primary string
	known   []string
	index   map[string]struct{}
	strict  bool
	log     *zap.SugaredLogger
}

// New builds a Registry.  Empty and duplicate entries in known are dropped.
// Any policy other than config.PolicyStrict is treated as lenient.
func New(primary string, known []string, policy string) *Registry {
	r := &Registry{
		primary: primary,
		index:   make(map[string]struct{}, len(known)+1),
		strict:  policy == config.PolicyStrict,
		log:     zap.S().Named("source"),
	}
	if !slices.Contains(known, primary) {
		r.add(primary)
	}
	for _, s := range known {
		r.add(s)
	}
	return r
}

// FromConfig is New over the sources section.
func FromConfig(c *config.Sources) *Registry {
	return New(c.Primary, c.Known, c.Policy)
}

func (r *Registry) add(s string) {
	if s == "" {
		return
	}
	if _, dup := r.index[s]; dup {
		return
	}
	r.index[s] = struct{}{}
	r.known = append(r.known, s)
}

// List returns a copy of the known domains.
func (r *Registry) List() []string {
	return slices.Clone(r.known)
}

// IsKnown reports whether s is registered.
func (r *Registry) IsKnown(s string) bool {
	_, ok := r.index[s]
	return ok
}

// Primary is the default tag for submissions that omit `source`.
func (r *Registry) Primary() string { return r.primary }

// Strict reports whether unknown sources are rejected.
func (r *Registry) Strict() bool { return r.strict }

// Resolve returns s, or the primary domain when s is empty.
func (r *Registry) Resolve(s string) string {
	if s == "" {
		return r.primary
	}
	return s
}

// Check applies the policy to s.  It returns nil for known sources and, in
// lenient mode, for unknown ones too.
func (r *Registry) Check(s string) error {
	if r.IsKnown(s) {
		return nil
	}
	if r.strict {
		return fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
	metrics.UnknownSourceTotal.Inc()
	r.log.Warnw("accepting submission from unregistered source", "source", s)
	return nil
}
