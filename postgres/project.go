package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// CreateProject saves a full project (nodes, data, connections) in one
// transaction. Creating a name that already exists leaves the stored
// document as is and returns it.
func (s *PGStore) CreateProject(ctx context.Context, p *flow.Project) (*flow.Project, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	packages := p.Packages
	if packages == nil {
		packages = []flow.PackageRef{}
	}
	ct, err := tx.Exec(ctx,
		`INSERT INTO flow_projects (name, version, packages) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		p.Name, p.Version, packages,
	)
	if err != nil {
		return nil, fmt.Errorf("flow: insert project %s: %w", p.Name, err)
	}
	if ct.RowsAffected() == 0 {
		if err := tx.Rollback(ctx); err != nil {
			return nil, fmt.Errorf("flow: rollback: %w", err)
		}
		return s.GetProject(ctx, p.Name)
	}

	if err := insertNodes(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := insertConnections(ctx, tx, p.Name, p.Flow.Connections); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("flow: commit: %w", err)
	}
	return p.Clone(), nil
}

// GetProject retrieves a full project by name.
// Returns nil, nil if not found.
func (s *PGStore) GetProject(ctx context.Context, name string) (*flow.Project, error) {
	p := flow.NewProject(name, "")
	err := s.db.QueryRow(ctx,
		`SELECT version, packages FROM flow_projects WHERE name = $1`, name,
	).Scan(&p.Version, &p.Packages)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("flow: get project: %w", err)
	}
	if p.Packages == nil {
		p.Packages = []flow.PackageRef{}
	}

	if err := s.loadNodes(ctx, p); err != nil {
		return nil, err
	}
	conns, err := s.listConnections(ctx, name)
	if err != nil {
		return nil, err
	}
	p.Flow.Connections = conns
	return p, nil
}

// ListProjects returns every project, ordered by name.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListProjects(ctx context.Context) ([]flow.Project, error) {
	rows, err := s.db.Query(ctx, `SELECT name FROM flow_projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("flow: list projects: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("flow: scan project: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("flow: rows projects: %w", err)
	}

	projects := []flow.Project{}
	for _, name := range names {
		p, err := s.GetProject(ctx, name)
		if err != nil {
			return nil, err
		}
		// deleted between the two queries
		if p == nil {
			continue
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// DeleteProject removes a project with its nodes and connections.
// No error if the project doesn't exist.
func (s *PGStore) DeleteProject(ctx context.Context, name string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM flow_projects WHERE name = $1`, name); err != nil {
		return fmt.Errorf("flow: delete project: %w", err)
	}
	return nil
}
