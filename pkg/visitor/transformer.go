package visitor

import "minivm.dev/miniml/pkg/ast"

// ----------------------------------------------------------------------------
// Mutating transformer

// An ExprTransformer is like ExprVisitor but receives the containing node
// itself (as *ast.Expr) rather than destructured fields, so a handler may
// replace an entire sub-tree (assign through the pointer) in addition to
// mutating fields of the node it points at. The alpha renamer is the only
// user of this abstraction (pkg/rename); it never replaces a sub-tree
// wholesale, only rewrites binder names and VarRef.Name in place, but the contract still
// requires the containing-node shape per §4.H.
type ExprTransformer[R any] interface {
	// Transform is called once per node, before recursing into children.
	// It receives a pointer to the slot holding the node so it may
	// overwrite *self with a different ast.Expr. Implementations that only
	// care about one or two variants type-switch on *self themselves.
	Transform(self *ast.Expr) R

	// JoinResults combines the results of a node's already-transformed
	// children, in traversal order. Mirrors ExprVisitor.JoinResults.
	JoinResults(results []R) R
}

// TransformChildren recurses into every direct child of 'e' (whatever
// concrete variant it is), calling t.Transform on each child slot and
// collecting results via t.JoinResults. This is the Go analogue of the
// Rust trait's default 'visit_children': a transformer that only overrides
// Transform for e.g. Let/Abs/LetRec/VarRef can call TransformChildren from
// inside its own Transform to recurse into the rest of the tree unchanged.
func TransformChildren[R any](t ExprTransformer[R], e ast.Expr) R {
	var results []R
	recurse := func(slot *ast.Expr) {
		results = append(results, t.Transform(slot))
	}

	switch n := e.(type) {
	case *ast.Binary:
		recurse(&n.Lhs)
		recurse(&n.Rhs)
	case *ast.Unary:
		recurse(&n.Sub)
	case *ast.App:
		recurse(&n.Fun)
		recurse(&n.Arg)
	case *ast.Seq:
		for i := range n.Subs {
			recurse(&n.Subs[i])
		}
	case *ast.Abs:
		recurse(&n.Body)
	case *ast.Let:
		recurse(&n.Val)
		recurse(&n.Body)
	case *ast.Tuple:
		for i := range n.Subs {
			recurse(&n.Subs[i])
		}
	case *ast.Nth:
		recurse(&n.Sub)
	case *ast.Ite:
		recurse(&n.Cond)
		recurse(&n.Then)
		recurse(&n.Else)
	case *ast.LetRec:
		for i := range n.Arms {
			recurse(&n.Arms[i].Body)
		}
		recurse(&n.Body)
	case *ast.Match:
		recurse(&n.Sub)
		for i := range n.Arms {
			recurse(&n.Arms[i].Result)
		}
	case *ast.IntLit, *ast.UnitLit, *ast.VarRef, *ast.Builtin:
		// Leaves: nothing to recurse into.
	default:
		panic("visitor.TransformChildren: unknown ast.Expr variant")
	}

	return t.JoinResults(results)
}
