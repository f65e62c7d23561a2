// Package client talks to the build backend over HTTP. It implements
// flow.Backend.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"

	"github.com/meikuraledutech/flow"
)

// StatusError is a non-success response from the backend.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("client: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("client: %s %s: status %d: %s", e.Method, e.Path, e.Status, body)
}

// Client is a backend client.
type Client struct {
	http   *client.Client
	logger *slog.Logger
}

var _ flow.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.http.AddHeader(key, value) }
}

// New returns a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:   client.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	method string
	path   string
	query  map[string]string
	body   any
}

// do sends the request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	cfg := client.Config{Ctx: ctx, Param: r.query}
	if r.body != nil {
		cfg.Body = r.body
		cfg.Header = map[string]string{"Content-Type": "application/json"}
	}

	var (
		resp *client.Response
		err  error
	)
	switch r.method {
	case "GET":
		resp, err = c.http.Get(r.path, cfg)
	case "POST":
		resp, err = c.http.Post(r.path, cfg)
	case "DELETE":
		resp, err = c.http.Delete(r.path, cfg)
	default:
		return nil, fmt.Errorf("client: unsupported method %s", r.method)
	}
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", r.method, r.path, err)
	}
	defer resp.Close()

	body := append([]byte(nil), resp.Body()...)
	status := resp.StatusCode()
	c.logger.Debug("client: request", "method", r.method, "path", r.path, "status", status)
	if status < 200 || status > 299 {
		return body, &StatusError{Method: r.method, Path: r.path, Status: status, Body: string(body)}
	}
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	body, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("client: %s %s: decode: %w", r.method, r.path, err)
	}
	return nil
}

func projectPath(name string) string {
	return "/projects/" + url.PathEscape(name) + "/"
}

func processPath(id int64) string {
	return "/processes/" + strconv.FormatInt(id, 10)
}

// ListPackages returns every package the backend serves.
func (c *Client) ListPackages(ctx context.Context) ([]flow.Package, error) {
	var pkgs []flow.Package
	if err := c.doJSON(ctx, request{method: "GET", path: "/packages/"}, &pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// GetPackage returns a package by name.
// Returns nil, nil if not found.
func (c *Client) GetPackage(ctx context.Context, name string) (*flow.Package, error) {
	var pkg *flow.Package
	err := c.doJSON(ctx, request{method: "GET", path: "/packages/" + url.PathEscape(name)}, &pkg)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// ListProjects returns every stored project.
func (c *Client) ListProjects(ctx context.Context) ([]flow.Project, error) {
	var projects []flow.Project
	if err := c.doJSON(ctx, request{method: "GET", path: "/projects/"}, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns a project by name. The backend has no single-project
// route, so the listing is filtered.
// Returns nil, nil if not found.
func (c *Client) GetProject(ctx context.Context, name string) (*flow.Project, error) {
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}
	return nil, nil
}

// CreateProject stores p and returns the stored document.
func (c *Client) CreateProject(ctx context.Context, p *flow.Project) (*flow.Project, error) {
	var created flow.Project
	if err := c.doJSON(ctx, request{method: "POST", path: "/projects/", body: p}, &created); err != nil {
		return nil, err
	}
	if created.Name == "" {
		return p.Clone(), nil
	}
	return &created, nil
}

// DeleteProject deletes a project by name.
func (c *Client) DeleteProject(ctx context.Context, name string) error {
	_, err := c.do(ctx, request{method: "DELETE", path: projectPath(name)})
	return err
}

// Compile compiles a stored project and returns the build log. A failed
// build is returned as a *CompileError carrying the log and its diagnostics.
func (c *Client) Compile(ctx context.Context, project string, bt flow.BuildType) (string, error) {
	body, err := c.do(ctx, request{
		method: "POST",
		path:   projectPath(project) + "compile",
		query:  map[string]string{"build_type": string(bt)},
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return "", &CompileError{Status: se.Status, Log: se.Body, Diagnostics: ExtractCompileErrors(se.Body)}
		}
		return "", err
	}
	return decodeLog(body), nil
}

// LastCompile returns when the project was last compiled for bt.
func (c *Client) LastCompile(ctx context.Context, project string, bt flow.BuildType) (*flow.LastCompile, error) {
	var lc flow.LastCompile
	err := c.doJSON(ctx, request{
		method: "GET",
		path:   projectPath(project) + "last_compile",
		query:  map[string]string{"build_type": string(bt)},
	}, &lc)
	if err != nil {
		return nil, err
	}
	return &lc, nil
}

// Run starts a compiled project and returns its process.
func (c *Client) Run(ctx context.Context, project string, bt flow.BuildType) (*flow.Process, error) {
	var p flow.Process
	err := c.doJSON(ctx, request{
		method: "POST",
		path:   projectPath(project) + "run",
		query:  map[string]string{"build_type": string(bt)},
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// StopProcess stops a running process.
func (c *Client) StopProcess(ctx context.Context, processID int64) error {
	_, err := c.do(ctx, request{
		method: "POST",
		path:   processPath(processID) + "/stop",
		body:   flow.Process{ProcessID: processID},
	})
	return err
}

// ProcessLogs returns the log lines of a process in order.
func (c *Client) ProcessLogs(ctx context.Context, processID int64) ([]string, error) {
	var lines []string
	if err := c.doJSON(ctx, request{method: "GET", path: processPath(processID) + "/logs"}, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == 404
}

// decodeLog unwraps a JSON string body and returns anything else verbatim.
func decodeLog(body []byte) string {
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return s
	}
	return string(body)
}
