package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/meikuraledutech/flow"
)

// Save persists the graph under the project's name:
//
//  1. serialize the graph under TempPrefix+name
//  2. create the temporary document; on failure stop, the stored project is untouched
//  3. delete the temporary document (best-effort)
//  4. delete the stored project; on failure stop, since the create below would
//     return the old document unchanged
//  5. create the final document under the original name
//
// A failure in step 5 leaves no document under the original name. A step 5
// result that differs from the serialized graph is reported as
// flow.ErrSaveRejected.
func (s *Session) Save(ctx context.Context) error {
	doc, err := s.Document()
	if err != nil {
		return err
	}
	name := doc.Name

	tmp := doc.Clone()
	tmp.Name = TempPrefix + name
	if _, err := s.projects.CreateProject(ctx, tmp); err != nil {
		return fmt.Errorf("%w: %s: %w", flow.ErrSaveRejected, tmp.Name, err)
	}

	if err := s.projects.DeleteProject(ctx, tmp.Name); err != nil {
		s.logger.Warn("session: could not delete temporary project", "project", tmp.Name, "error", err)
	}
	if err := s.projects.DeleteProject(ctx, name); err != nil {
		return fmt.Errorf("%w: delete %s before rewrite: %w", flow.ErrSaveRejected, name, err)
	}

	saved, err := s.projects.CreateProject(ctx, doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", flow.ErrSaveRejected, name, err)
	}
	if saved == nil {
		saved = doc
	}
	if !sameDocument(saved, doc) {
		return fmt.Errorf("%w: %s: backend kept a different document", flow.ErrSaveRejected, name)
	}
	s.project = saved
	s.logger.Info("session: project saved", "project", name, "nodes", len(saved.Flow.Nodes))
	return nil
}

// sameDocument compares the parts of two projects Save writes, through their
// JSON form so payload whitespace does not matter.
func sameDocument(a, b *flow.Project) bool {
	ja, errA := json.Marshal(normalized(a))
	jb, errB := json.Marshal(normalized(b))
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func normalized(p *flow.Project) *flow.Project {
	c := p.Clone()
	for k, d := range c.Flow.Data {
		var buf bytes.Buffer
		if err := json.Compact(&buf, d.Value); err == nil {
			c.Flow.Data[k] = flow.NodeData{Value: buf.Bytes()}
		}
	}
	for k, n := range c.Flow.Nodes {
		if n.TypeParameters == nil {
			n.TypeParameters = map[string]string{}
			c.Flow.Nodes[k] = n
		}
	}
	return c
}
