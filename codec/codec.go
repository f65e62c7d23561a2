// Package codec converts between the editable graph and the persisted
// project document.
package codec

import (
	"log/slog"
	"slices"

	"github.com/meikuraledutech/flow/editor"
)

// DefaultImplicitPackages are always active and never listed in a project's
// package dependencies.
var DefaultImplicitPackages = []string{"flowrs", "primitives", "built-in"}

// ConnectionPolicy decides what FromDocument does with a stored connection
// whose endpoint node could not be materialized.
type ConnectionPolicy int

const (
	// AbortWiring stops wiring at the first unresolved connection and
	// returns the partially wired graph with an error.
	AbortWiring ConnectionPolicy = iota
	// SkipUnresolved drops the unresolved connection and keeps wiring.
	SkipUnresolved
)

// ParseConnectionPolicy maps "abort" and "skip" to a policy.
func ParseConnectionPolicy(s string) (ConnectionPolicy, bool) {
	switch s {
	case "", "abort":
		return AbortWiring, true
	case "skip":
		return SkipUnresolved, true
	}
	return AbortWiring, false
}

type options struct {
	logger   *slog.Logger
	policy   ConnectionPolicy
	implicit []string
	nodeOpts []editor.Option
}

// Option configures the codec.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConnectionPolicy sets how FromDocument handles unresolved connections.
func WithConnectionPolicy(p ConnectionPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithImplicitPackages replaces DefaultImplicitPackages.
func WithImplicitPackages(names ...string) Option {
	return func(o *options) { o.implicit = slices.Clone(names) }
}

// WithNodeOptions sets the options of the graph and nodes built by FromDocument.
func WithNodeOptions(opts ...editor.Option) Option {
	return func(o *options) { o.nodeOpts = append(o.nodeOpts, opts...) }
}

func newOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		policy:   AbortWiring,
		implicit: DefaultImplicitPackages,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
