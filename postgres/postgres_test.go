package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/internal/flowtest"
	"github.com/meikuraledutech/flow/postgres"
)

// newStore connects to FLOW_TEST_DATABASE_URL and resets the schema.
func newStore(t *testing.T) *postgres.PGStore {
	t.Helper()
	url := os.Getenv("FLOW_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLOW_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := postgres.New(pool)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	return s
}

func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	want := flowtest.Project("demo")
	want.Flow.Nodes["add"] = flow.NodeModel{NodeType: flowtest.Add, TypeParameters: map[string]string{}, Constructor: "New"}
	want.Flow.Connections = append(want.Flow.Connections,
		flow.ConnectionModel{FromNode: "value", FromOutput: "output", ToNode: "add", ToInput: "a"})

	_, err := s.CreateProject(ctx, want)
	require.NoError(t, err)

	got, err := s.GetProject(ctx, "demo")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Packages, got.Packages)
	assert.Equal(t, want.Flow.Nodes, got.Flow.Nodes)
	assert.Equal(t, want.Flow.Connections, got.Flow.Connections)
	require.Contains(t, got.Flow.Data, "value")
	assert.JSONEq(t, `{"n":42}`, string(got.Flow.Data["value"].Value))
	assert.NotContains(t, got.Flow.Data, "debug")

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteProject(ctx, "demo"))
	got, err = s.GetProject(ctx, "demo")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateExistingKeepsStored(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.CreateProject(ctx, flowtest.Project("demo"))
	require.NoError(t, err)

	got, err := s.CreateProject(ctx, flow.NewProject("demo", "2.0.0"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1.0.0", got.Version)
	assert.Len(t, got.Flow.Nodes, 2)
}
