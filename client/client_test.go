package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/api"
	"github.com/meikuraledutech/flow/client"
	"github.com/meikuraledutech/flow/internal/flowtest"
	"github.com/meikuraledutech/flow/memory"
	"github.com/meikuraledutech/flow/registry"
)

func newServer(t *testing.T) *client.Client {
	t.Helper()
	reg := registry.New("")
	require.True(t, reg.Add(flowtest.Std()))
	srv := httptest.NewServer(adaptor.FiberApp(api.New(memory.New(), reg)))
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", client.WithTimeout(5*time.Second))
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	created, err := c.CreateProject(ctx, flowtest.Project("demo"))
	require.NoError(t, err)
	assert.Equal(t, "demo", created.Name)

	list, err := c.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err := c.GetProject(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, flowtest.Project("demo").Flow.Nodes, got.Flow.Nodes)
	assert.JSONEq(t, `{"n":42}`, string(got.Flow.Data["value"].Value))

	require.NoError(t, c.DeleteProject(ctx, "demo"))
	got, err = c.GetProject(ctx, "demo")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateRejected(t *testing.T) {
	c := newServer(t)

	p := flowtest.Project("demo")
	p.Flow.Nodes["value"] = flow.NodeModel{NodeType: flowtest.Value, Constructor: "New"}
	_, err := c.CreateProject(context.Background(), p)

	var se *client.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
	assert.Contains(t, se.Error(), "type parameters")
}

func TestPackages(t *testing.T) {
	ctx := context.Background()
	c := newServer(t)

	pkgs, err := c.ListPackages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)

	pkg, err := c.GetPackage(ctx, flowtest.StdPackage)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Contains(t, pkg.Crates, "flowrs_std")

	pkg, err = c.GetPackage(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, pkg)
}

const rustcLog = `   Compiling flow-project v0.1.0 (/build/demo)
error[E0308]: mismatched types
 --> src/main.rs:3:5
  |
3 |     x
  |     ^ expected ` + "`i32`" + `, found ` + "`bool`" + `

error: cannot find value ` + "`y`" + ` in this scope
 --> src/main.rs:4:5

error: aborting due to 2 previous errors

For more information about this error, try ` + "`rustc --explain E0308`" + `.
error: could not compile ` + "`flow-project`" + ` (bin "flow-project") due to 2 previous errors
`

func newBuildServer(t *testing.T) (*client.Client, *[]string) {
	t.Helper()
	var stopped []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /projects/{name}/compile", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") == "broken" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(rustcLog))
			return
		}
		_ = json.NewEncoder(w).Encode("Finished build_type=" + r.URL.Query().Get("build_type"))
	})
	mux.HandleFunc("GET /projects/{name}/last_compile", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(flow.LastCompile{ModifiedTime: "2026-10-19T10:00:00Z"})
	})
	mux.HandleFunc("POST /projects/{name}/run", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(flow.Process{ProcessID: 4242})
	})
	mux.HandleFunc("POST /processes/{id}/stop", func(w http.ResponseWriter, r *http.Request) {
		var p flow.Process
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		stopped = append(stopped, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /processes/{id}/logs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]string{"tick", "tock"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return client.New(srv.URL), &stopped
}

func TestCompile(t *testing.T) {
	c, _ := newBuildServer(t)

	log, err := c.Compile(context.Background(), "demo", flow.BuildCargo)
	require.NoError(t, err)
	assert.Equal(t, "Finished build_type=cargo", log)

	_, err = c.Compile(context.Background(), "broken", flow.BuildWasm)
	var ce *client.CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusBadRequest, ce.Status)
	assert.Equal(t, rustcLog, ce.Log)
	require.Len(t, ce.Diagnostics, 2)
	assert.Equal(t, "E0308", ce.Diagnostics[0].Code)
	assert.Contains(t, ce.Error(), "mismatched types")
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	c, stopped := newBuildServer(t)

	lc, err := c.LastCompile(ctx, "demo", flow.BuildCargo)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19T10:00:00Z", lc.ModifiedTime)

	proc, err := c.Run(ctx, "demo", flow.BuildCargo)
	require.NoError(t, err)
	assert.Equal(t, int64(4242), proc.ProcessID)

	lines, err := c.ProcessLogs(ctx, proc.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tick", "tock"}, lines)

	require.NoError(t, c.StopProcess(ctx, proc.ProcessID))
	assert.Equal(t, []string{"4242"}, *stopped)
}
