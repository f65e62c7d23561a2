package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/internal/flowtest"
	"github.com/meikuraledutech/flow/memory"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	p, err := s.GetProject(ctx, "demo")
	require.NoError(t, err)
	assert.Nil(t, p)

	created, err := s.CreateProject(ctx, flowtest.Project("demo"))
	require.NoError(t, err)
	assert.Equal(t, flowtest.Project("demo"), created)

	_, err = s.CreateProject(ctx, flowtest.Project("alpha"))
	require.NoError(t, err)

	list, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "demo", list[1].Name)

	require.NoError(t, s.DeleteProject(ctx, "demo"))
	require.NoError(t, s.DeleteProject(ctx, "demo"))
	p, err = s.GetProject(ctx, "demo")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCreateKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	_, err := s.CreateProject(ctx, flowtest.Project("demo"))
	require.NoError(t, err)

	got, err := s.CreateProject(ctx, flow.NewProject("demo", "2.0.0"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", got.Version)
	assert.Len(t, got.Flow.Nodes, 2)
}

func TestDocumentsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	p := flowtest.Project("demo")
	_, err := s.CreateProject(ctx, p)
	require.NoError(t, err)

	p.Flow.Nodes["value"].TypeParameters["I"] = "f64"
	got, err := s.GetProject(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "i32", got.Flow.Nodes["value"].TypeParameters["I"])

	got.Flow.Connections = nil
	again, err := s.GetProject(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, again.Flow.Connections, 1)
}
