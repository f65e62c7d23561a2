package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flow_projects (
    name       TEXT PRIMARY KEY,
    version    TEXT NOT NULL,
    packages   JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flow_nodes (
    project         TEXT NOT NULL REFERENCES flow_projects(name) ON DELETE CASCADE,
    label           TEXT NOT NULL,
    node_type       TEXT NOT NULL,
    constructor     TEXT NOT NULL,
    type_parameters JSONB NOT NULL DEFAULT '{}',
    data            JSONB,
    PRIMARY KEY (project, label)
);

CREATE TABLE IF NOT EXISTS flow_connections (
    id          BIGSERIAL PRIMARY KEY,
    project     TEXT NOT NULL REFERENCES flow_projects(name) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    from_node   TEXT NOT NULL,
    from_output TEXT NOT NULL,
    to_node     TEXT NOT NULL,
    to_input    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flow_connections_project ON flow_connections(project, position);
`

// CreateSchema creates the project, node and connection tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the flow tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS flow_connections, flow_nodes, flow_projects CASCADE;`)
	return err
}
