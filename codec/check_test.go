package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/codec"
	"github.com/meikuraledutech/flow/internal/flowtest"
)

func TestCheck(t *testing.T) {
	cat := catalog.Flatten(flowtest.Packages())

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, codec.Check(flowtest.Project("demo"), cat))
	})

	tests := []struct {
		name   string
		mutate func(p *flow.Project)
		want   error
	}{
		{"unknown type", func(p *flow.Project) {
			p.Flow.Nodes["value"] = flow.NodeModel{NodeType: "gone::Ghost", Constructor: "New"}
		}, flow.ErrTypeNotFound},
		{"unknown constructor", func(p *flow.Project) {
			n := p.Flow.Nodes["debug"]
			n.Constructor = "Build"
			p.Flow.Nodes["debug"] = n
		}, flow.ErrUnknownConstructor},
		{"unbound parameter", func(p *flow.Project) {
			p.Flow.Nodes["debug"] = flow.NodeModel{NodeType: flowtest.Debug, Constructor: "New"}
		}, flow.ErrTypeParametersUnset},
		{"unknown port", func(p *flow.Project) {
			p.Flow.Connections[0].ToInput = "nope"
		}, flow.ErrPortNotFound},
		{"unknown endpoint", func(p *flow.Project) {
			p.Flow.Connections[0].FromNode = "nope"
		}, flow.ErrUnresolvedEndpoint},
		{"structural", func(p *flow.Project) {
			p.Version = ""
		}, flow.ErrInvalidProject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := flowtest.Project("demo")
			tt.mutate(p)
			assert.ErrorIs(t, codec.Check(p, cat), tt.want)
		})
	}
}

func TestParseConnectionPolicy(t *testing.T) {
	p, ok := codec.ParseConnectionPolicy("skip")
	assert.True(t, ok)
	assert.Equal(t, codec.SkipUnresolved, p)

	_, ok = codec.ParseConnectionPolicy("retry")
	assert.False(t, ok)
}
