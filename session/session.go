// Package session ties a project, the type catalog and the editable graph
// together for one editing session, and saves through the two-phase
// protocol that never replaces a stored project with one the backend
// rejects.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/codec"
	"github.com/meikuraledutech/flow/editor"
)

// TempPrefix names the temporary document created in the first phase of Save.
const TempPrefix = "tmp_"

type options struct {
	logger     *slog.Logger
	implicit   []string
	connPolicy codec.ConnectionPolicy
	ctorPolicy catalog.ConstraintPolicy
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithImplicitPackages sets the packages that are always active.
func WithImplicitPackages(names ...string) Option {
	return func(o *options) { o.implicit = slices.Clone(names) }
}

// WithConnectionPolicy sets how unresolved stored connections are handled on open.
func WithConnectionPolicy(p codec.ConnectionPolicy) Option {
	return func(o *options) { o.connPolicy = p }
}

// WithConstraintPolicy sets how generic parameter constraints combine.
func WithConstraintPolicy(p catalog.ConstraintPolicy) Option {
	return func(o *options) { o.ctorPolicy = p }
}

// Session owns the catalog, the graph and the project document being edited.
// It is not safe for concurrent use.
type Session struct {
	projects flow.ProjectStore
	packages flow.PackageSource
	opts     options
	logger   *slog.Logger

	project *flow.Project
	catalog *catalog.Catalog
	graph   *editor.Graph
}

// New returns a session reading projects from projects and the catalog from packages.
func New(projects flow.ProjectStore, packages flow.PackageSource, opts ...Option) *Session {
	o := options{
		logger:   slog.Default(),
		implicit: codec.DefaultImplicitPackages,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Session{projects: projects, packages: packages, opts: o, logger: o.logger}
}

func (s *Session) nodeOptions() []editor.Option {
	return []editor.Option{editor.WithLogger(s.logger), editor.WithConstraintPolicy(s.opts.ctorPolicy)}
}

func (s *Session) codecOptions() []codec.Option {
	return []codec.Option{
		codec.WithLogger(s.logger),
		codec.WithConnectionPolicy(s.opts.connPolicy),
		codec.WithImplicitPackages(s.opts.implicit...),
		codec.WithNodeOptions(s.nodeOptions()...),
	}
}

// Open fetches the named project and the package listing concurrently and
// materializes the graph. active lists the packages to filter the catalog by;
// when empty, the implicit packages and the project's own dependencies are
// used. A failed package fetch degrades to an empty catalog: the session is
// still opened and the returned error wraps flow.ErrCatalogFetch.
func (s *Session) Open(ctx context.Context, name string, active []string) error {
	var (
		project  *flow.Project
		packages []flow.Package
		fetchErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.projects.GetProject(gctx, name)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: %s", flow.ErrProjectNotFound, name)
		}
		project = p
		return nil
	})
	g.Go(func() error {
		pkgs, err := s.packages.ListPackages(gctx)
		if err != nil {
			fetchErr = fmt.Errorf("%w: %w", flow.ErrCatalogFetch, err)
			return nil
		}
		packages = pkgs
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return errors.Join(fetchErr, s.load(project, packages, active, fetchErr != nil))
}

// Load starts a session on a document that did not come from the store, such
// as an imported file. It fetches the package listing like Open.
func (s *Session) Load(ctx context.Context, doc *flow.Project, active []string) error {
	pkgs, err := s.packages.ListPackages(ctx)
	var fetchErr error
	if err != nil {
		fetchErr = fmt.Errorf("%w: %w", flow.ErrCatalogFetch, err)
	}
	return errors.Join(fetchErr, s.load(doc.Clone(), pkgs, active, fetchErr != nil))
}

func (s *Session) load(doc *flow.Project, packages []flow.Package, active []string, failed bool) error {
	if len(active) == 0 {
		active = s.defaultActive(doc)
	}
	if failed {
		s.logger.Error("session: package listing unavailable, using empty catalog", "project", doc.Name)
		s.catalog = catalog.Empty(active)
	} else {
		s.catalog = catalog.Build(packages, active, catalog.WithLogger(s.logger))
	}
	s.project = doc

	g, err := codec.FromDocument(doc, s.catalog, s.codecOptions()...)
	s.graph = g
	if err != nil {
		return err
	}
	s.logger.Info("session: project opened", "project", doc.Name,
		"nodes", g.Len(), "connections", g.ConnectionCount(), "types", s.catalog.Len())
	return nil
}

func (s *Session) defaultActive(doc *flow.Project) []string {
	active := slices.Clone(s.opts.implicit)
	for _, name := range doc.PackageNames() {
		if !slices.Contains(active, name) {
			active = append(active, name)
		}
	}
	return active
}

// RefreshCatalog rebuilds the catalog for a new active package set. The graph
// is kept as is; nodes whose type is no longer active fail at Save.
func (s *Session) RefreshCatalog(ctx context.Context, active []string) error {
	pkgs, err := s.packages.ListPackages(ctx)
	if err != nil {
		s.logger.Error("session: package listing unavailable, using empty catalog", "error", err)
		s.catalog = catalog.Empty(active)
		return fmt.Errorf("%w: %w", flow.ErrCatalogFetch, err)
	}
	s.catalog = catalog.Build(pkgs, active, catalog.WithLogger(s.logger))
	return nil
}

// Project returns the document the session was opened on.
func (s *Session) Project() *flow.Project {
	return s.project
}

// Catalog returns the current catalog.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Graph returns the graph being edited.
func (s *Session) Graph() *editor.Graph {
	return s.graph
}

// Constructables lists the types that can be added to the graph.
func (s *Session) Constructables() []editor.ConstructableType {
	return s.graph.Constructables(s.catalog)
}

// AddNode instantiates typeName through constructor kind and adds it to the graph.
func (s *Session) AddNode(typeName, kind string) (*editor.Node, error) {
	label := s.graph.NextLabel(editor.BaseLabel(typeName))
	n, err := editor.NewNode(label, typeName, nil, kind, nil, s.catalog, s.nodeOptions()...)
	if err != nil {
		return nil, err
	}
	if err := s.graph.AddNode(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Connect connects two nodes by label through the type-checked path.
func (s *Session) Connect(from, output, to, input string) (*editor.Connection, error) {
	src, ok := s.graph.NodeByLabel(from)
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, from)
	}
	dst, ok := s.graph.NodeByLabel(to)
	if !ok {
		return nil, fmt.Errorf("%w: %s", flow.ErrNodeNotFound, to)
	}
	return s.graph.AddConnection(src, output, dst, input)
}

// Document serializes the graph into the session's project.
func (s *Session) Document() (*flow.Project, error) {
	return codec.ToDocument(s.graph, s.catalog, s.project, s.codecOptions()...)
}
