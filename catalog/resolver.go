package catalog

import (
	"slices"

	"github.com/meikuraledutech/flow"
)

// ConstraintPolicy decides how several constructor arguments constraining the
// same generic parameter combine.
type ConstraintPolicy int

const (
	// ConstraintLastWins keeps the candidates of the last constraining argument.
	ConstraintLastWins ConstraintPolicy = iota
	// ConstraintIntersect keeps the candidates accepted by every constraining argument.
	ConstraintIntersect
)

// ParseConstraintPolicy maps "last" and "intersect" to a policy.
func ParseConstraintPolicy(s string) (ConstraintPolicy, bool) {
	switch s {
	case "", "last":
		return ConstraintLastWins, true
	case "intersect":
		return ConstraintIntersect, true
	}
	return ConstraintLastWins, false
}

// CompatibleTypes computes, for each generic parameter constrained by the
// constructor, the catalog types that can bind it. An argument constrains a
// parameter when its type is that parameter and it is built by a named
// constructor kind K; the candidates are the types defining K. Arguments of
// concrete type or reusing an existing object add no constraint. A nil
// constructor yields an empty map.
func CompatibleTypes(ctor *flow.Constructor, c *Catalog, policy ConstraintPolicy) map[string][]string {
	result := map[string][]string{}
	if ctor == nil {
		return result
	}
	for _, arg := range ctor.Arguments {
		if arg.Type.Kind != flow.TypeGeneric {
			continue
		}
		kind, ok := arg.Construction.ConstructorKind()
		if !ok {
			continue
		}
		candidates := c.WithConstructor(kind)
		if prev, seen := result[arg.Type.Name]; seen && policy == ConstraintIntersect {
			candidates = slices.DeleteFunc(candidates, func(name string) bool {
				_, found := slices.BinarySearch(prev, name)
				return !found
			})
		}
		result[arg.Type.Name] = candidates
	}
	return result
}
