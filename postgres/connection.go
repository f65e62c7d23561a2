package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meikuraledutech/flow"
)

// insertConnections writes conns keeping their order.
func insertConnections(ctx context.Context, tx pgx.Tx, project string, conns []flow.ConnectionModel) error {
	for i, c := range conns {
		if _, err := tx.Exec(ctx,
			`INSERT INTO flow_connections (project, position, from_node, from_output, to_node, to_input)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			project, i, c.FromNode, c.FromOutput, c.ToNode, c.ToInput,
		); err != nil {
			return fmt.Errorf("flow: insert connection %d: %w", i, err)
		}
	}
	return nil
}

// listConnections returns the connections of a project in stored order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) listConnections(ctx context.Context, project string) ([]flow.ConnectionModel, error) {
	rows, err := s.db.Query(ctx,
		`SELECT from_node, from_output, to_node, to_input
		 FROM flow_connections WHERE project = $1 ORDER BY position`, project)
	if err != nil {
		return nil, fmt.Errorf("flow: list connections: %w", err)
	}
	defer rows.Close()

	conns := []flow.ConnectionModel{}
	for rows.Next() {
		var c flow.ConnectionModel
		if err := rows.Scan(&c.FromNode, &c.FromOutput, &c.ToNode, &c.ToInput); err != nil {
			return nil, fmt.Errorf("flow: scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows connections: %w", err)
	}
	return conns, nil
}
