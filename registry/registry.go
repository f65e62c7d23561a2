// Package registry serves packages from a folder of JSON package files, plus
// the built-in primitives package.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
)

const (
	BuiltInName    = "built-in"
	BuiltInVersion = "1.0.0"
)

var primitives = []string{
	"i8", "i16", "i32", "i64", "i128",
	"u8", "u16", "u32", "u64", "u128",
	"isize", "usize", "f32", "f64", "bool", "char",
}

// BuiltIn returns the package of primitive types. Each primitive can be
// constructed from its default value or from JSON.
func BuiltIn() flow.Package {
	types := make(map[string]flow.TypeDefinition, len(primitives))
	for _, name := range primitives {
		types[name] = flow.TypeDefinition{
			Inputs:  map[string]flow.Port{},
			Outputs: map[string]flow.Port{},
			Constructors: map[string]flow.Constructor{
				"Default":            {Variant: flow.CtorFromDefault},
				flow.JSONConstructor: {Variant: flow.CtorFromJSON},
			},
		}
	}
	return flow.Package{
		Name:    BuiltInName,
		Version: BuiltInVersion,
		Crates: map[string]flow.Module{
			catalog.RootNamespace: {Types: types, Modules: map[string]flow.Module{}},
		},
	}
}

// Registry is a thread-safe set of packages keyed by name.
type Registry struct {
	mu       sync.RWMutex
	folder   string
	packages map[string]flow.Package
	catalog  *catalog.Catalog
	logger   *slog.Logger
}

var _ flow.PackageSource = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New returns a registry over folder holding only the built-in package.
// Call Load to read the folder.
func New(folder string, opts ...Option) *Registry {
	r := &Registry{
		folder:   folder,
		packages: map[string]flow.Package{BuiltInName: BuiltIn()},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.catalog = r.flatten()
	return r
}

// Load replaces the folder packages with the current contents of the folder.
// Every *.json file is one package registered under its file stem; files
// that cannot be read or decoded are logged and skipped. The built-in package
// is kept unless a file of the same name overrides it.
func (r *Registry) Load() error {
	loaded := map[string]flow.Package{BuiltInName: BuiltIn()}
	if r.folder != "" {
		entries, err := os.ReadDir(r.folder)
		if err != nil {
			return fmt.Errorf("registry: read %s: %w", r.folder, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			name := strings.TrimSuffix(e.Name(), ".json")
			pkg, err := readPackage(filepath.Join(r.folder, e.Name()))
			if err != nil {
				r.logger.Warn("registry: skipping package file", "package", name, "error", err)
				continue
			}
			loaded[name] = pkg
		}
	}

	r.mu.Lock()
	r.packages = loaded
	r.catalog = r.flatten()
	r.mu.Unlock()
	r.logger.Info("registry: packages loaded", "folder", r.folder, "packages", len(loaded))
	return nil
}

func readPackage(path string) (flow.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return flow.Package{}, err
	}
	var pkg flow.Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return flow.Package{}, err
	}
	return pkg, nil
}

// Add registers pkg unless a package with its name exists. It reports
// whether pkg was added.
func (r *Registry) Add(pkg flow.Package) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.packages[pkg.Name]; ok {
		return false
	}
	r.packages[pkg.Name] = pkg
	r.catalog = r.flatten()
	return true
}

// ListPackages returns all packages ordered by registry key.
func (r *Registry) ListPackages(_ context.Context) ([]flow.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(), nil
}

func (r *Registry) sorted() []flow.Package {
	out := make([]flow.Package, 0, len(r.packages))
	for _, name := range slices.Sorted(maps.Keys(r.packages)) {
		out = append(out, r.packages[name])
	}
	return out
}

// GetPackage returns a package by registry key.
// Returns nil, nil if not found.
func (r *Registry) GetPackage(_ context.Context, name string) (*flow.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pkg, ok := r.packages[name]
	if !ok {
		return nil, nil
	}
	return &pkg, nil
}

// Catalog returns the unfiltered catalog of every registered type. It is
// rebuilt on Load and Add; callers must not modify it.
func (r *Registry) Catalog() *catalog.Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// flatten must be called with r.mu held or before r is shared.
func (r *Registry) flatten() *catalog.Catalog {
	return catalog.Flatten(r.sorted(), catalog.WithLogger(r.logger))
}
