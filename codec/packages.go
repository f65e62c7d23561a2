package codec

import (
	"slices"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/catalog"
)

// ReconcilePackages returns existing updated to match the active package set:
// listed packages that are no longer active are dropped, and active packages
// that are neither listed nor implicit are appended with the name and version
// the catalog fetched. Kept entries are returned unchanged, path and git
// sources included.
func ReconcilePackages(existing []flow.PackageRef, active []string, cat *catalog.Catalog, opts ...Option) []flow.PackageRef {
	return reconcile(existing, active, cat, newOptions(opts))
}

func reconcile(existing []flow.PackageRef, active []string, cat *catalog.Catalog, o options) []flow.PackageRef {
	out := make([]flow.PackageRef, 0, len(existing)+len(active))
	listed := map[string]bool{}
	for _, ref := range existing {
		if !slices.Contains(active, ref.Name) {
			o.logger.Debug("codec: package no longer active, removed", "package", ref.Name)
			continue
		}
		listed[ref.Name] = true
		out = append(out, ref)
	}

	for _, name := range active {
		if listed[name] || slices.Contains(o.implicit, name) {
			continue
		}
		info, ok := cat.Package(name)
		if !ok {
			o.logger.Warn("codec: active package unknown to catalog, not listed", "package", name)
			continue
		}
		listed[name] = true
		out = append(out, flow.PackageRef{Name: info.Name, Version: info.Version})
	}
	return out
}
