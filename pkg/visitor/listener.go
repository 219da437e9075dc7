package visitor

import "minivm.dev/miniml/pkg/ast"

// ----------------------------------------------------------------------------
// Listener

// A Listener is driven by the package-level Walk function: it never decides
// traversal order itself, it only reacts to enter/exit/walk hooks that Walk
// calls in a fixed, documented order (§4.H). The de Bruijn resolver is the
// only user of this abstraction (pkg/debruijn), since it needs to push a
// scope on 'enter' and pop it on the matching 'exit' regardless of whether
// the sub-walk below errored.
//
// Go has no trait default-methods, so ExprListener is implemented by
// embedding DefaultListener and overriding only the hooks a given pass
// cares about -- every hook is a no-op unless overridden.
type ExprListener interface {
	WalkIntLit(val int64, self ast.Expr)
	WalkUnitLit(self ast.Expr)
	WalkVarRef(name string, self ast.Expr)
	WalkBuiltin(op ast.BuiltinOp, self ast.Expr)

	EnterBinary(lhs ast.Expr, op ast.BinOp, rhs ast.Expr, self ast.Expr)
	ExitBinary(lhs ast.Expr, op ast.BinOp, rhs ast.Expr, self ast.Expr)

	EnterUnary(op ast.UnaOp, sub ast.Expr, self ast.Expr)
	ExitUnary(op ast.UnaOp, sub ast.Expr, self ast.Expr)

	EnterApp(fun, arg ast.Expr, self ast.Expr)
	ExitApp(fun, arg ast.Expr, self ast.Expr)

	EnterSeq(subs []ast.Expr, self ast.Expr)
	ExitSeq(subs []ast.Expr, self ast.Expr)

	EnterAbs(argName string, argTy ast.Ty, body ast.Expr, self ast.Expr)
	ExitAbs(argName string, argTy ast.Ty, body ast.Expr, self ast.Expr)

	EnterLet(name string, ty ast.Ty, val, body ast.Expr, self ast.Expr)
	// EnterLetBody/ExitLetBody bracket just the 'body' child, after 'val'
	// has already been walked: 'name' only enters scope here, never while
	// 'val' is being visited (§4.C/§4.D). This is a deliberate addition
	// beyond the plain enter/exit pair the rest of the variants use,
	// needed because Let is the one node whose two children live in
	// different scopes.
	EnterLetBody(name string, ty ast.Ty, val, body ast.Expr, self ast.Expr)
	ExitLetBody(name string, ty ast.Ty, val, body ast.Expr, self ast.Expr)
	ExitLet(name string, ty ast.Ty, val, body ast.Expr, self ast.Expr)

	EnterTuple(subs []ast.Expr, self ast.Expr)
	ExitTuple(subs []ast.Expr, self ast.Expr)

	EnterNth(idx int64, sub ast.Expr, self ast.Expr)
	ExitNth(idx int64, sub ast.Expr, self ast.Expr)

	EnterIte(cond, then, els ast.Expr, self ast.Expr)
	ExitIte(cond, then, els ast.Expr, self ast.Expr)

	EnterLetRec(arms []ast.LetRecArm, body ast.Expr, self ast.Expr)
	ExitLetRec(arms []ast.LetRecArm, body ast.Expr, self ast.Expr)
	EnterLetRecArm(arm ast.LetRecArm)
	ExitLetRecArm(arm ast.LetRecArm)

	EnterMatch(sub ast.Expr, arms []ast.MatchArm, self ast.Expr)
	ExitMatch(sub ast.Expr, arms []ast.MatchArm, self ast.Expr)
	EnterMatchArm(arm ast.MatchArm)
	ExitMatchArm(arm ast.MatchArm)
}

// DefaultListener implements every ExprListener hook as a no-op; embed it to
// pick only the handful of hooks a concrete listener actually needs.
type DefaultListener struct{}

func (DefaultListener) WalkIntLit(int64, ast.Expr)                               {}
func (DefaultListener) WalkUnitLit(ast.Expr)                                      {}
func (DefaultListener) WalkVarRef(string, ast.Expr)                              {}
func (DefaultListener) WalkBuiltin(ast.BuiltinOp, ast.Expr)                      {}
func (DefaultListener) EnterBinary(ast.Expr, ast.BinOp, ast.Expr, ast.Expr)       {}
func (DefaultListener) ExitBinary(ast.Expr, ast.BinOp, ast.Expr, ast.Expr)        {}
func (DefaultListener) EnterUnary(ast.UnaOp, ast.Expr, ast.Expr)                  {}
func (DefaultListener) ExitUnary(ast.UnaOp, ast.Expr, ast.Expr)                   {}
func (DefaultListener) EnterApp(ast.Expr, ast.Expr, ast.Expr)                     {}
func (DefaultListener) ExitApp(ast.Expr, ast.Expr, ast.Expr)                      {}
func (DefaultListener) EnterSeq([]ast.Expr, ast.Expr)                             {}
func (DefaultListener) ExitSeq([]ast.Expr, ast.Expr)                              {}
func (DefaultListener) EnterAbs(string, ast.Ty, ast.Expr, ast.Expr)               {}
func (DefaultListener) ExitAbs(string, ast.Ty, ast.Expr, ast.Expr)                {}
func (DefaultListener) EnterLet(string, ast.Ty, ast.Expr, ast.Expr, ast.Expr)     {}
func (DefaultListener) EnterLetBody(string, ast.Ty, ast.Expr, ast.Expr, ast.Expr) {}
func (DefaultListener) ExitLetBody(string, ast.Ty, ast.Expr, ast.Expr, ast.Expr)  {}
func (DefaultListener) ExitLet(string, ast.Ty, ast.Expr, ast.Expr, ast.Expr)      {}
func (DefaultListener) EnterTuple([]ast.Expr, ast.Expr)                           {}
func (DefaultListener) ExitTuple([]ast.Expr, ast.Expr)                            {}
func (DefaultListener) EnterNth(int64, ast.Expr, ast.Expr)                        {}
func (DefaultListener) ExitNth(int64, ast.Expr, ast.Expr)                         {}
func (DefaultListener) EnterIte(ast.Expr, ast.Expr, ast.Expr, ast.Expr)           {}
func (DefaultListener) ExitIte(ast.Expr, ast.Expr, ast.Expr, ast.Expr)            {}
func (DefaultListener) EnterLetRec([]ast.LetRecArm, ast.Expr, ast.Expr)           {}
func (DefaultListener) ExitLetRec([]ast.LetRecArm, ast.Expr, ast.Expr)            {}
func (DefaultListener) EnterLetRecArm(ast.LetRecArm)                             {}
func (DefaultListener) ExitLetRecArm(ast.LetRecArm)                              {}
func (DefaultListener) EnterMatch(ast.Expr, []ast.MatchArm, ast.Expr)            {}
func (DefaultListener) ExitMatch(ast.Expr, []ast.MatchArm, ast.Expr)             {}
func (DefaultListener) EnterMatchArm(ast.MatchArm)                               {}
func (DefaultListener) ExitMatchArm(ast.MatchArm)                                {}

// Walk dispatches on the concrete type of 'e' and drives 'l' through the
// matching enter/walk/exit hooks, recursing into children in the fixed
// order the contract in §4.H demands. This is the free function that plays
// the role the Rust trait's 'walk'/'default_walk' pair played: Go has no
// virtual dispatch on 'self' inside an interface's default method, so the
// traversal logic lives here instead of on DefaultListener.
func Walk(l ExprListener, e ast.Expr) {
	switch n := e.(type) {
	case *ast.IntLit:
		l.WalkIntLit(n.Value, e)
	case *ast.UnitLit:
		l.WalkUnitLit(e)
	case *ast.VarRef:
		l.WalkVarRef(n.Name, e)
	case *ast.Builtin:
		l.WalkBuiltin(n.Op, e)

	case *ast.Binary:
		l.EnterBinary(n.Lhs, n.Op, n.Rhs, e)
		Walk(l, n.Lhs)
		Walk(l, n.Rhs)
		l.ExitBinary(n.Lhs, n.Op, n.Rhs, e)

	case *ast.Unary:
		l.EnterUnary(n.Op, n.Sub, e)
		Walk(l, n.Sub)
		l.ExitUnary(n.Op, n.Sub, e)

	case *ast.App:
		l.EnterApp(n.Fun, n.Arg, e)
		Walk(l, n.Fun)
		Walk(l, n.Arg)
		l.ExitApp(n.Fun, n.Arg, e)

	case *ast.Seq:
		l.EnterSeq(n.Subs, e)
		for _, s := range n.Subs {
			Walk(l, s)
		}
		l.ExitSeq(n.Subs, e)

	case *ast.Abs:
		l.EnterAbs(n.ArgName, n.ArgTy, n.Body, e)
		Walk(l, n.Body)
		l.ExitAbs(n.ArgName, n.ArgTy, n.Body, e)

	case *ast.Let:
		l.EnterLet(n.Name, n.Ty, n.Val, n.Body, e)
		Walk(l, n.Val)
		l.EnterLetBody(n.Name, n.Ty, n.Val, n.Body, e)
		Walk(l, n.Body)
		l.ExitLetBody(n.Name, n.Ty, n.Val, n.Body, e)
		l.ExitLet(n.Name, n.Ty, n.Val, n.Body, e)

	case *ast.Tuple:
		l.EnterTuple(n.Subs, e)
		for _, s := range n.Subs {
			Walk(l, s)
		}
		l.ExitTuple(n.Subs, e)

	case *ast.Nth:
		l.EnterNth(n.Idx, n.Sub, e)
		Walk(l, n.Sub)
		l.ExitNth(n.Idx, n.Sub, e)

	case *ast.Ite:
		l.EnterIte(n.Cond, n.Then, n.Else, e)
		Walk(l, n.Cond)
		Walk(l, n.Then)
		Walk(l, n.Else)
		l.ExitIte(n.Cond, n.Then, n.Else, e)

	case *ast.LetRec:
		l.EnterLetRec(n.Arms, n.Body, e)
		for _, arm := range n.Arms {
			l.EnterLetRecArm(arm)
			Walk(l, arm.Body)
			l.ExitLetRecArm(arm)
		}
		Walk(l, n.Body)
		l.ExitLetRec(n.Arms, n.Body, e)

	case *ast.Match:
		l.EnterMatch(n.Sub, n.Arms, e)
		Walk(l, n.Sub)
		for _, arm := range n.Arms {
			l.EnterMatchArm(arm)
			Walk(l, arm.Result)
			l.ExitMatchArm(arm)
		}
		l.ExitMatch(n.Sub, n.Arms, e)

	default:
		panic("visitor.Walk: unknown ast.Expr variant")
	}
}
