// Package tree flattens parsed operator trees into the id-stable node and
// edge lists that diagram rendering and plan diffing build on.
package tree

import (
	"github.com/planbench/planbench/internal/model"
)

// Assemble fills FlatNodes and Edges on the plan by a deterministic
// pre-order depth-first traversal of Roots: visit a node, then each child
// left to right, assigning consecutive ids starting at 0 in visitation
// order. Given the same tree shape and child ordering the assignment is
// identical across runs.
//
// Nodes reachable by more than one path are visited once, keyed by node
// identity; plans are trees by construction, but a DAG-ish source must not
// duplicate entries.
func Assemble(plan *model.Plan) {
	if plan == nil {
		return
	}
	plan.FlatNodes, plan.Edges = Flatten(plan.Roots)
}

// Flatten returns the flat node list and parent/child edge pairs for the
// given roots. Ids are first-visit DFS order.
func Flatten(roots []*model.OperatorNode) ([]model.FlatNode, []model.Edge) {
	var (
		flat  []model.FlatNode
		edges []model.Edge
		ids   = map[*model.OperatorNode]int{}
	)

	var visit func(n *model.OperatorNode) int
	visit = func(n *model.OperatorNode) int {
		if id, seen := ids[n]; seen {
			return id
		}
		id := len(flat)
		ids[n] = id
		flat = append(flat, model.FlatNode{ID: id, Node: n})
		for _, child := range n.Children {
			childID := visit(child)
			edges = append(edges, model.Edge{Parent: id, Child: childID})
		}
		return id
	}

	for _, root := range roots {
		visit(root)
	}
	return flat, edges
}
