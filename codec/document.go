package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/editor"
)

// ToDocument serializes the graph into a copy of existing, replacing its flow
// section and reconciling its package list with the catalog's active
// packages. existing is never modified; on error nothing is returned.
func ToDocument(g *editor.Graph, cat *catalog.Catalog, existing *flow.Project, opts ...Option) (*flow.Project, error) {
	if existing == nil {
		return nil, errors.New("codec: no project to serialize into")
	}
	o := newOptions(opts)

	doc := existing.Clone()
	doc.Flow = flow.Flow{
		Nodes:       make(map[string]flow.NodeModel, g.Len()),
		Connections: make([]flow.ConnectionModel, 0, g.ConnectionCount()),
		Data:        map[string]flow.NodeData{},
	}

	for _, n := range g.Nodes() {
		if !cat.Has(n.TypeName) {
			return nil, &flow.NodeError{Label: n.Label, Err: fmt.Errorf("%w: %s", flow.ErrNotInPackageList, n.TypeName)}
		}
		if !n.Complete() {
			return nil, &flow.NodeError{Label: n.Label, Err: fmt.Errorf("%w: %d declared, %d bound",
				flow.ErrTypeParametersUnset, len(n.TypeParameters()), len(n.Bindings()))}
		}
		doc.Flow.Nodes[n.Label] = flow.NodeModel{
			NodeType:       n.TypeName,
			TypeParameters: n.Bindings(),
			Constructor:    n.Constructor,
		}

		text, ok := n.Payload()
		if !ok {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(strings.TrimSpace(text))); err != nil {
			return nil, &flow.NodeError{Label: n.Label, Err: fmt.Errorf("%w: %v", flow.ErrInvalidPayload, err)}
		}
		doc.Flow.Data[n.Label] = flow.NodeData{Value: buf.Bytes()}
	}

	for _, c := range g.Connections() {
		src, ok := g.Node(c.Source)
		if !ok {
			return nil, fmt.Errorf("%w: connection %s source %s", flow.ErrUnresolvedEndpoint, c.ID, c.Source)
		}
		dst, ok := g.Node(c.Target)
		if !ok {
			return nil, fmt.Errorf("%w: connection %s target %s", flow.ErrUnresolvedEndpoint, c.ID, c.Target)
		}
		doc.Flow.Connections = append(doc.Flow.Connections, flow.ConnectionModel{
			FromNode:   src.Label,
			FromOutput: c.SourceOutput,
			ToNode:     dst.Label,
			ToInput:    c.TargetInput,
		})
	}

	if active := cat.Active(); active != nil {
		doc.Packages = reconcile(doc.Packages, active, cat, o)
	}
	return doc, nil
}
