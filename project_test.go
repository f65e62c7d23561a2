package flow_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/internal/flowtest"
)

func TestProjectJSONShape(t *testing.T) {
	data, err := json.Marshal(flowtest.Project("demo"))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"name": "demo",
		"version": "1.0.0",
		"packages": [{"name": "flowrs-std", "version": "0.1.0"}],
		"flow": {
			"nodes": {
				"value": {"node_type": "flowrs_std::value::ValueNode", "type_parameters": {"I": "i32"}, "constructor": "New"},
				"debug": {"node_type": "flowrs_std::debug::DebugNode", "type_parameters": {"I": "i32"}, "constructor": "New"}
			},
			"connections": [{"from_node": "value", "from_output": "output", "to_node": "debug", "to_input": "input"}],
			"data": {"value": {"value": {"n": 42}}}
		}
	}`, string(data))
}

func TestProjectClone(t *testing.T) {
	p := flowtest.Project("demo")
	c := p.Clone()
	require.Equal(t, p, c)

	c.Flow.Nodes["value"].TypeParameters["I"] = "f64"
	c.Flow.Connections[0].ToInput = "other"
	c.Flow.Data["value"].Value[2] = 'm'
	c.Packages[0].Version = "9.9.9"

	assert.Equal(t, "i32", p.Flow.Nodes["value"].TypeParameters["I"])
	assert.Equal(t, "input", p.Flow.Connections[0].ToInput)
	assert.JSONEq(t, `{"n":42}`, string(p.Flow.Data["value"].Value))
	assert.Equal(t, "0.1.0", p.Packages[0].Version)

	var nilProject *flow.Project
	assert.Nil(t, nilProject.Clone())
}

func TestProjectValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, flowtest.Project("demo").Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		p := flowtest.Project("")
		assert.ErrorIs(t, p.Validate(), flow.ErrInvalidProject)
	})

	t.Run("path and git are exclusive", func(t *testing.T) {
		p := flowtest.Project("demo")
		p.Packages[0].Path = "../flowrs-std"
		p.Packages[0].Git = "https://github.com/flow-rs/flowrs-std"
		assert.ErrorIs(t, p.Validate(), flow.ErrInvalidProject)
	})

	t.Run("branch needs git", func(t *testing.T) {
		p := flowtest.Project("demo")
		p.Packages[0].Branch = "main"
		assert.ErrorIs(t, p.Validate(), flow.ErrInvalidProject)

		p.Packages[0].Git = "https://github.com/flow-rs/flowrs-std"
		assert.NoError(t, p.Validate())
	})

	t.Run("unknown connection endpoint", func(t *testing.T) {
		p := flowtest.Project("demo")
		p.Flow.Connections[0].ToNode = "missing"
		assert.ErrorIs(t, p.Validate(), flow.ErrUnresolvedEndpoint)
	})

	t.Run("data without node", func(t *testing.T) {
		p := flowtest.Project("demo")
		p.Flow.Data["ghost"] = flow.NodeData{Value: []byte(`1`)}
		err := p.Validate()
		require.ErrorIs(t, err, flow.ErrNodeNotFound)

		var ne *flow.NodeError
		require.True(t, errors.As(err, &ne))
		assert.Equal(t, "ghost", ne.Label)
	})
}

func TestNodeErrorMessage(t *testing.T) {
	err := &flow.NodeError{Label: "timer", Err: flow.ErrInvalidPayload}
	assert.Equal(t, `flow: node "timer": payload is not valid JSON`, err.Error())
	assert.ErrorIs(t, err, flow.ErrInvalidPayload)
}

func TestParseBuildType(t *testing.T) {
	bt, err := flow.ParseBuildType("wasm")
	require.NoError(t, err)
	assert.Equal(t, flow.BuildWasm, bt)

	_, err = flow.ParseBuildType("docker")
	assert.Error(t, err)
}
