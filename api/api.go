// Package api serves projects and packages over HTTP with fiber.
package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/codec"
)

// Packages is the package source of the server. Catalog returns the
// unfiltered catalog documents are checked against.
type Packages interface {
	flow.PackageSource
	Catalog() *catalog.Catalog
}

// SchemaManager is implemented by stores that manage their own schema.
type SchemaManager interface {
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
}

type options struct {
	logger   *slog.Logger
	registry *prometheus.Registry
}

// Option configures the app.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry sets the prometheus registry metrics are registered on.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) { o.registry = r }
}

type metrics struct {
	requests *prometheus.CounterVec
	projects *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flow",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		projects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flow",
			Name:      "project_operations_total",
			Help:      "Project writes by outcome.",
		}, []string{"op"}),
	}
}

// New returns the fiber app serving store and packages.
func New(store flow.ProjectStore, packages Packages, opts ...Option) *fiber.App {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	m := newMetrics(o.registry)
	log := o.logger

	app := fiber.New()

	app.Use(func(c fiber.Ctx) error {
		err := c.Next()
		route := c.Route().Path
		m.requests.WithLabelValues(c.Method(), route, strconv.Itoa(c.Response().StatusCode())).Inc()
		return err
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})))

	// ── Schema ────────────────────────────────────────────────────────
	if sm, ok := store.(SchemaManager); ok {
		app.Post("/schema", func(c fiber.Ctx) error {
			if err := sm.CreateSchema(c.Context()); err != nil {
				return c.Status(500).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"message": "schema created"})
		})

		app.Delete("/schema", func(c fiber.Ctx) error {
			if err := sm.DropSchema(c.Context()); err != nil {
				return c.Status(500).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(fiber.Map{"message": "schema dropped"})
		})
	}

	// ── Packages ──────────────────────────────────────────────────────
	app.Get("/packages/", func(c fiber.Ctx) error {
		pkgs, err := packages.ListPackages(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(pkgs)
	})

	app.Get("/packages/:name", func(c fiber.Ctx) error {
		pkg, err := packages.GetPackage(c.Context(), c.Params("name"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if pkg == nil {
			return c.Status(404).JSON(fiber.Map{"error": "package not found"})
		}
		return c.JSON(pkg)
	})

	// ── Projects ──────────────────────────────────────────────────────
	app.Get("/projects/", func(c fiber.Ctx) error {
		projects, err := store.ListProjects(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(projects)
	})

	app.Post("/projects/", func(c fiber.Ctx) error {
		var p flow.Project
		if err := c.Bind().JSON(&p); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := codec.Check(&p, packages.Catalog()); err != nil {
			m.projects.WithLabelValues("rejected").Inc()
			log.Info("api: project rejected", "project", p.Name, "error", err)
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		created, err := store.CreateProject(c.Context(), &p)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		m.projects.WithLabelValues("created").Inc()
		return c.Status(201).JSON(created)
	})

	app.Delete("/projects/:name/", func(c fiber.Ctx) error {
		if err := store.DeleteProject(c.Context(), c.Params("name")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		m.projects.WithLabelValues("deleted").Inc()
		return c.SendStatus(204)
	})

	// ── Builds ────────────────────────────────────────────────────────
	notBuilding := func(c fiber.Ctx) error {
		return c.Status(501).JSON(fiber.Map{"error": errBuildUnavailable.Error()})
	}
	app.Post("/projects/:name/compile", notBuilding)
	app.Get("/projects/:name/last_compile", notBuilding)
	app.Post("/projects/:name/run", notBuilding)
	app.Post("/processes/:id/stop", notBuilding)
	app.Get("/processes/:id/logs", notBuilding)

	return app
}

var errBuildUnavailable = errors.New("api: this server stores projects only, builds are not available")
