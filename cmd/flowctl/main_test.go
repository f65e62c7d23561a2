package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/api"
	"github.com/meikuraledutech/flow/internal/flowtest"
	"github.com/meikuraledutech/flow/memory"
	"github.com/meikuraledutech/flow/registry"
)

func startBackend(t *testing.T) string {
	t.Helper()
	reg := registry.New("")
	require.True(t, reg.Add(flowtest.Std()))
	srv := httptest.NewServer(adaptor.FiberApp(api.New(memory.New(), reg)))
	t.Cleanup(srv.Close)
	return srv.URL
}

func writeProject(t *testing.T, p *flow.Project) string {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), p.Name+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportAndList(t *testing.T) {
	url := startBackend(t)
	path := writeProject(t, flowtest.Project("demo"))

	out, err := run(t, "--api", url, "check", path)
	require.NoError(t, err)
	assert.Equal(t, "demo: ok\n", out)

	out, err = run(t, "--api", url, "import", path)
	require.NoError(t, err)
	assert.Equal(t, "saved demo: 2 nodes, 1 connections\n", out)

	out, err = run(t, "--api", url, "projects", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "demo")
	assert.Contains(t, out, "2 nodes, 1 connections")

	out, err = run(t, "--api", url, "export", "demo")
	require.NoError(t, err)
	var exported flow.Project
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	assert.Equal(t, flowtest.Project("demo").Flow.Nodes, exported.Flow.Nodes)
}

func TestCheckReportsProblems(t *testing.T) {
	url := startBackend(t)
	p := flowtest.Project("demo")
	p.Flow.Connections[0].ToInput = "missing"

	_, err := run(t, "--api", url, "check", writeProject(t, p))
	assert.ErrorIs(t, err, flow.ErrPortNotFound)
}

func TestTypesYAML(t *testing.T) {
	url := startBackend(t)

	out, err := run(t, "--api", url, "-o", "yaml", "types", "--active", "built-in,flowrs-std")
	require.NoError(t, err)

	var names []string
	require.NoError(t, yaml.Unmarshal([]byte(out), &names))
	assert.Contains(t, names, flowtest.Timer)
	assert.Contains(t, names, "i32")
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "-o", "xml", "packages")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, flow.TypeDescription{Kind: flow.TypeGeneric, Name: "T"}))
	assert.Equal(t, "Generic:\n  name: T\n  type_parameters: null\n", buf.String())
}
