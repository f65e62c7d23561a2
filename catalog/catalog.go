// Package catalog flattens the backend's package trees into a lookup from
// fully qualified type name to type definition, and resolves which catalog
// types can bind a generic parameter.
package catalog

import (
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/meikuraledutech/flow"
)

const (
	// Separator joins namespace segments of a fully qualified type name.
	Separator = "::"
	// RootNamespace is the crate whose types are inserted without a prefix.
	RootNamespace = "primitives"

	maxDepth = 64
)

// PackageInfo is the metadata of a fetched package.
type PackageInfo struct {
	Name    string
	Version string
}

// Catalog maps fully qualified type names to definitions. A Catalog is not
// modified after it is built; Filter returns a new one.
type Catalog struct {
	types    map[string]*flow.TypeDefinition
	packages map[string]PackageInfo
	active   []string
	filtered bool
	logger   *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for data-shape warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// Empty returns a catalog without types. It is the fallback when the package
// listing cannot be fetched.
func Empty(active []string) *Catalog {
	return &Catalog{
		types:    map[string]*flow.TypeDefinition{},
		packages: map[string]PackageInfo{},
		active:   append([]string{}, active...),
		filtered: true,
		logger:   slog.Default(),
	}
}

// Build flattens packages and keeps only the entries whose top-level
// namespace is one of the active package names.
func Build(packages []flow.Package, active []string, opts ...Option) *Catalog {
	return Flatten(packages, opts...).Filter(active)
}

// Flatten inserts every type of every package under its fully qualified name:
// the crate name followed by the module path, joined by Separator. Types of
// the RootNamespace crate keep their bare name.
func Flatten(packages []flow.Package, opts ...Option) *Catalog {
	c := &Catalog{
		types:    map[string]*flow.TypeDefinition{},
		packages: map[string]PackageInfo{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, pkg := range packages {
		c.packages[pkg.Name] = PackageInfo{Name: pkg.Name, Version: pkg.Version}
		for _, crate := range slices.Sorted(maps.Keys(pkg.Crates)) {
			var path []string
			if crate != RootNamespace {
				path = []string{crate}
			}
			c.walk(pkg.Crates[crate], path, 0)
		}
	}
	return c
}

func (c *Catalog) walk(m flow.Module, path []string, depth int) {
	if depth > maxDepth {
		c.logger.Warn("catalog: module tree too deep, skipping",
			"path", strings.Join(path, Separator), "max_depth", maxDepth)
		return
	}

	prefix := strings.Join(path, Separator)
	for _, name := range slices.Sorted(maps.Keys(m.Types)) {
		def := m.Types[name]
		key := name
		if prefix != "" {
			key = prefix + Separator + name
		}
		c.types[key] = &def
	}

	for _, name := range slices.Sorted(maps.Keys(m.Modules)) {
		c.walk(m.Modules[name], append(slices.Clip(path), name), depth+1)
	}
}

// Filter returns a catalog holding the entries whose top-level namespace,
// with '_' normalized to '-', names an active package. Entries without a
// namespace are always kept.
func (c *Catalog) Filter(active []string) *Catalog {
	allowed := make(map[string]bool, len(active))
	for _, name := range active {
		allowed[normalize(name)] = true
	}

	out := &Catalog{
		types:    make(map[string]*flow.TypeDefinition, len(c.types)),
		packages: c.packages,
		active:   append([]string{}, active...),
		filtered: true,
		logger:   c.logger,
	}
	for name, def := range c.types {
		ns, _, found := strings.Cut(name, Separator)
		if !found || allowed[normalize(ns)] {
			out.types[name] = def
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// Lookup returns the definition of a fully qualified type name.
func (c *Catalog) Lookup(name string) (*flow.TypeDefinition, bool) {
	def, ok := c.types[name]
	return def, ok
}

// Has reports whether the catalog contains name.
func (c *Catalog) Has(name string) bool {
	_, ok := c.types[name]
	return ok
}

// Names returns all type names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.types))
}

// Len returns the number of types.
func (c *Catalog) Len() int {
	return len(c.types)
}

// Package returns the metadata of a fetched package by name.
func (c *Catalog) Package(name string) (PackageInfo, bool) {
	info, ok := c.packages[name]
	return info, ok
}

// Active returns the package names the catalog was filtered by, or nil if it
// was never filtered.
func (c *Catalog) Active() []string {
	if !c.filtered {
		return nil
	}
	return slices.Clone(c.active)
}

// WithConstructor returns, sorted, the names of every type that defines the
// given constructor kind.
func (c *Catalog) WithConstructor(kind string) []string {
	names := []string{}
	for name, def := range c.types {
		if _, ok := def.Constructors[kind]; ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
