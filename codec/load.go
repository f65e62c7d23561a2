package codec

import (
	"fmt"
	"maps"
	"slices"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/editor"
)

// FromDocument materializes a graph from a stored document. Nodes whose type
// is missing from the catalog are skipped with a warning. Connections are
// wired as stored, without a type check; the handling of a connection whose
// endpoint was skipped follows the connection policy. Under AbortWiring the
// partially wired graph is returned together with the error.
func FromDocument(doc *flow.Project, cat *catalog.Catalog, opts ...Option) (*editor.Graph, error) {
	o := newOptions(opts)
	nodeOpts := append([]editor.Option{editor.WithLogger(o.logger)}, o.nodeOpts...)
	g := editor.NewGraph(nodeOpts...)

	// Keys that are already valid labels keep them; keys holding a namespace
	// separator are labeled afterwards and take a suffix on collision.
	keys := slices.Sorted(maps.Keys(doc.Flow.Nodes))
	var plain, qualified []string
	for _, key := range keys {
		if editor.BaseLabel(key) == key {
			plain = append(plain, key)
		} else {
			qualified = append(qualified, key)
		}
	}

	byKey := make(map[string]*editor.Node, len(doc.Flow.Nodes))
	for _, key := range slices.Concat(plain, qualified) {
		model := doc.Flow.Nodes[key]
		if !cat.Has(model.NodeType) {
			o.logger.Warn("codec: node type not in catalog, node skipped", "node", key, "type", model.NodeType)
			continue
		}

		var payload []byte
		if d, ok := doc.Flow.Data[key]; ok {
			payload = d.Value
		}
		label := key
		if _, taken := g.NodeByLabel(key); taken || editor.BaseLabel(key) != key {
			label = g.NextLabel(editor.BaseLabel(key))
		}
		n, err := editor.NewNode(label, model.NodeType, payload, model.Constructor, model.TypeParameters, cat, nodeOpts...)
		if err != nil {
			o.logger.Warn("codec: node skipped", "node", key, "error", err)
			continue
		}
		if err := g.AddNode(n); err != nil {
			return g, err
		}
		byKey[key] = n
	}

	for i, c := range doc.Flow.Connections {
		src, srcOK := byKey[c.FromNode]
		dst, dstOK := byKey[c.ToNode]
		if !srcOK || !dstOK {
			err := fmt.Errorf("%w: connection %d %s.%s -> %s.%s",
				flow.ErrUnresolvedEndpoint, i, c.FromNode, c.FromOutput, c.ToNode, c.ToInput)
			if o.policy == SkipUnresolved {
				o.logger.Warn("codec: connection skipped", "error", err)
				continue
			}
			return g, err
		}
		if _, err := g.Restore(src, c.FromOutput, dst, c.ToInput); err != nil {
			return g, err
		}
	}
	return g, nil
}
