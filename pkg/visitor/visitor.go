package visitor

import "minivm.dev/miniml/pkg/ast"

// ----------------------------------------------------------------------------
// Immutable visitor

// An ExprVisitor never mutates the tree; it pre-decomposes the visited node
// into its fields (so implementers never need a type switch of their own)
// and returns a value of type R for every variant. The code generator is
// the only user of this abstraction (pkg/secd), where R is []secd.Instr.
//
// Rust's trait gives every visit_* method a default body that recurses into
// children and calls join_results; Go interfaces cannot carry default
// method bodies, so each concrete visitor implements every Visit* method
// directly. The per-variant decomposition and fixed recursion order
// (mirrored by the package-level Visit dispatcher below) is what the
// contract in §4.H actually requires; the "free default recursion" is
// convenience the Rust trait system offers that a Go interface cannot, and
// every concrete visitor in this repo (just the code generator) needs
// variant-specific behaviour for all of them anyway.
type ExprVisitor[R any] interface {
	VisitIntLit(val int64, self ast.Expr) R
	VisitUnitLit(self ast.Expr) R
	VisitVarRef(name string, self ast.Expr) R
	VisitBuiltin(op ast.BuiltinOp, self ast.Expr) R

	VisitBinary(lhs ast.Expr, op ast.BinOp, rhs ast.Expr, self ast.Expr) R
	VisitUnary(op ast.UnaOp, sub ast.Expr, self ast.Expr) R
	VisitApp(fun, arg ast.Expr, self ast.Expr) R
	VisitSeq(subs []ast.Expr, self ast.Expr) R
	VisitAbs(argName string, argTy ast.Ty, body ast.Expr, self ast.Expr) R
	VisitLet(name string, ty ast.Ty, val, body ast.Expr, self ast.Expr) R
	VisitTuple(subs []ast.Expr, self ast.Expr) R
	VisitNth(idx int64, sub ast.Expr, self ast.Expr) R
	VisitIte(cond, then, els ast.Expr, self ast.Expr) R
	VisitLetRec(arms []ast.LetRecArm, body ast.Expr, self ast.Expr) R
	VisitMatch(sub ast.Expr, arms []ast.MatchArm, self ast.Expr) R

	// JoinResults combines the already-visited results of a node's direct
	// children, in traversal order, into the result for that node. Callers
	// that implement every Visit* method explicitly (as the code generator
	// does) are free to never call this; it exists so a simpler visitor
	// (one that only overrides a few variants) has somewhere to fall back
	// to, mirroring the Rust trait's 'join_results' + 'visit_children' pair.
	JoinResults(results []R) R
}

// Visit dispatches on the concrete type of 'e' and calls the matching
// Visit* method with the node's fields destructured out, exactly as
// promised by the §4.H contract. Unlike Walk, Visit does not recurse on the
// caller's behalf: each Visit* implementation decides for itself whether
// and in what order to recurse (by calling Visit on its children), since
// the result type R is caller-defined and generic recursion cannot know
// how to combine children without calling back into the same interface.
func Visit[R any](v ExprVisitor[R], e ast.Expr) R {
	switch n := e.(type) {
	case *ast.IntLit:
		return v.VisitIntLit(n.Value, e)
	case *ast.UnitLit:
		return v.VisitUnitLit(e)
	case *ast.VarRef:
		return v.VisitVarRef(n.Name, e)
	case *ast.Builtin:
		return v.VisitBuiltin(n.Op, e)
	case *ast.Binary:
		return v.VisitBinary(n.Lhs, n.Op, n.Rhs, e)
	case *ast.Unary:
		return v.VisitUnary(n.Op, n.Sub, e)
	case *ast.App:
		return v.VisitApp(n.Fun, n.Arg, e)
	case *ast.Seq:
		return v.VisitSeq(n.Subs, e)
	case *ast.Abs:
		return v.VisitAbs(n.ArgName, n.ArgTy, n.Body, e)
	case *ast.Let:
		return v.VisitLet(n.Name, n.Ty, n.Val, n.Body, e)
	case *ast.Tuple:
		return v.VisitTuple(n.Subs, e)
	case *ast.Nth:
		return v.VisitNth(n.Idx, n.Sub, e)
	case *ast.Ite:
		return v.VisitIte(n.Cond, n.Then, n.Else, e)
	case *ast.LetRec:
		return v.VisitLetRec(n.Arms, n.Body, e)
	case *ast.Match:
		return v.VisitMatch(n.Sub, n.Arms, e)
	default:
		panic("visitor.Visit: unknown ast.Expr variant")
	}
}
