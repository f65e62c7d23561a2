package postgres

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/flow"
)

// insertNodes writes the nodes of p together with their data.
func insertNodes(ctx context.Context, tx pgx.Tx, p *flow.Project) error {
	for _, label := range slices.Sorted(maps.Keys(p.Flow.Nodes)) {
		n := p.Flow.Nodes[label]
		params := n.TypeParameters
		if params == nil {
			params = map[string]string{}
		}
		var data []byte
		if d, ok := p.Flow.Data[label]; ok {
			data = d.Value
			if data == nil {
				data = []byte("null")
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO flow_nodes (project, label, node_type, constructor, type_parameters, data)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.Name, label, n.NodeType, n.Constructor, params, data,
		); err != nil {
			return fmt.Errorf("flow: insert node %s: %w", label, err)
		}
	}
	return nil
}

// loadNodes fills p.Flow.Nodes and p.Flow.Data from the stored nodes.
func (s *PGStore) loadNodes(ctx context.Context, p *flow.Project) error {
	rows, err := s.db.Query(ctx,
		`SELECT label, node_type, constructor, type_parameters, data
		 FROM flow_nodes WHERE project = $1 ORDER BY label`, p.Name)
	if err != nil {
		return fmt.Errorf("flow: list nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			label string
			n     flow.NodeModel
			data  []byte
		)
		if err := rows.Scan(&label, &n.NodeType, &n.Constructor, &n.TypeParameters, &data); err != nil {
			return fmt.Errorf("flow: scan node: %w", err)
		}
		if n.TypeParameters == nil {
			n.TypeParameters = map[string]string{}
		}
		p.Flow.Nodes[label] = n
		if data != nil {
			p.Flow.Data[label] = flow.NodeData{Value: data}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("flow: rows nodes: %w", err)
	}
	return nil
}
