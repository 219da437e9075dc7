package debruijn

import (
	"fmt"

	"minivm.dev/miniml/pkg/ast"
	"minivm.dev/miniml/pkg/utils"
	"minivm.dev/miniml/pkg/visitor"
)

// ----------------------------------------------------------------------------
// De Bruijn resolution

// This section implements §4.D: an annotation-only pass (no AST mutation)
// that attaches an Index to every VarRef node, keyed by NodeID in a
// side-table rather than by mutating the node. It is grounded on
// original_source/src/debrujin.rs, generalized from that file's single
// Var-only frame kind to the dual Var/Rec frame kind §4.D actually
// requires (the older reference file predates LetRec support entirely).

// IndexKind distinguishes an ordinary binder reference from a reference
// into a mutually-recursive bundle.
type IndexKind int

const (
	VarIndex IndexKind = iota
	RecIndex
)

// Index is the de Bruijn pair attached to a resolved VarRef: Var(i) carries
// only I, Rec(i, j) carries both I (the frame's depth) and J (the name's
// position within that frame's Rec bundle).
type Index struct {
	Kind IndexKind
	I, J int
}

func (idx Index) String() string {
	if idx.Kind == RecIndex {
		return fmt.Sprintf("Rec(%d, %d)", idx.I, idx.J)
	}
	return fmt.Sprintf("Var(%d)", idx.I)
}

// frame is one entry in the resolver's environment-frame deque (§4.D):
// either a single-name Var frame or an ordered-list Rec frame.
type frame interface{ names() []string }

type varFrame struct{ name string }

func (f varFrame) names() []string { return []string{f.name} }

type recFrame struct{ names_ []string }

func (f recFrame) names() []string { return f.names_ }

// Resolver walks a renamed AST (via the shared Listener/Walk scaffolding,
// §4.H) and builds a NodeID -> Index side-table. It owns its deque of
// frames and the side-table for the duration of a single pass; both are
// returned to the caller and then discarded (§5).
type Resolver struct {
	visitor.DefaultListener
	frames utils.Deque[frame]
	info   map[ast.NodeID]Index
}

func NewResolver() *Resolver {
	return &Resolver{info: make(map[ast.NodeID]Index)}
}

// nodeID extracts the identity of whatever concrete Expr variant a VarRef
// self-reference happens to be; VarRef is the only variant WalkVarRef ever
// receives, so this is a direct type assertion rather than a full switch.
func nodeID(self ast.Expr) ast.NodeID {
	return self.(*ast.VarRef).ID
}

func (r *Resolver) WalkVarRef(name string, self ast.Expr) {
	for i := 0; i < r.frames.Count(); i++ {
		f, err := r.frames.At(i)
		if err != nil {
			panic(err)
		}

		switch fr := f.(type) {
		case varFrame:
			if fr.name == name {
				r.info[nodeID(self)] = Index{Kind: VarIndex, I: i}
				return
			}
		case recFrame:
			for j, n := range fr.names_ {
				if n == name {
					r.info[nodeID(self)] = Index{Kind: RecIndex, I: i, J: j}
					return
				}
			}
		}
	}
	// A renamed program guarantees every VarRef resolves (§3 invariants);
	// reaching here means the renamer and resolver have fallen out of
	// sync with each other.
	panic(fmt.Sprintf("debruijn: unresolved variable reference %q", name))
}

func (r *Resolver) EnterAbs(argName string, _ ast.Ty, _ ast.Expr, _ ast.Expr) {
	r.frames.PushFront(varFrame{name: argName})
}

func (r *Resolver) ExitAbs(string, ast.Ty, ast.Expr, ast.Expr) {
	if _, err := r.frames.PopFront(); err != nil {
		panic(err)
	}
}

// EnterLetBody/ExitLetBody bracket exactly the 'body' child: 'val' is
// resolved in the outer scope (no frame pushed yet), matching the
// renamer's own treatment of Let (§4.C/§4.D).
func (r *Resolver) EnterLetBody(name string, _ ast.Ty, _, _ ast.Expr, _ ast.Expr) {
	r.frames.PushFront(varFrame{name: name})
}

func (r *Resolver) ExitLetBody(string, ast.Ty, ast.Expr, ast.Expr, ast.Expr) {
	if _, err := r.frames.PopFront(); err != nil {
		panic(err)
	}
}

func (r *Resolver) EnterLetRec(arms []ast.LetRecArm, _ ast.Expr, _ ast.Expr) {
	names := make([]string, len(arms))
	for i, arm := range arms {
		names[i] = arm.FnName
	}
	r.frames.PushFront(recFrame{names_: names})
}

func (r *Resolver) ExitLetRec([]ast.LetRecArm, ast.Expr, ast.Expr) {
	if _, err := r.frames.PopFront(); err != nil {
		panic(err)
	}
}

func (r *Resolver) EnterLetRecArm(arm ast.LetRecArm) {
	r.frames.PushFront(varFrame{name: arm.ArgName})
}

func (r *Resolver) ExitLetRecArm(ast.LetRecArm) {
	if _, err := r.frames.PopFront(); err != nil {
		panic(err)
	}
}

// EnterMatchArm/ExitMatchArm first push an unnamed frame for the environment
// slot the code generator stores the scrutinee in (see VisitMatch in
// pkg/secd), then one Var frame per name the arm's pattern binds, left to
// right, mirroring the renamer's own scoping of match patterns (see
// pkg/rename). The unnamed frame never matches a VarRef; it only keeps the
// depths of variables bound outside the match in step with the machine's
// environment. A pattern with no binders (a lone LitPat, or an unreachable
// CtorPat) pushes only the unnamed frame.
func (r *Resolver) EnterMatchArm(arm ast.MatchArm) {
	r.frames.PushFront(varFrame{name: ""})
	for _, name := range ast.PatternBinders(arm.Pattern) {
		r.frames.PushFront(varFrame{name: name})
	}
}

func (r *Resolver) ExitMatchArm(arm ast.MatchArm) {
	for range append(ast.PatternBinders(arm.Pattern), "") {
		if _, err := r.frames.PopFront(); err != nil {
			panic(err)
		}
	}
}

// Table is the read-only result of a resolution pass: a lookup from
// NodeID to the attached de Bruijn Index, consumed by the code generator.
type Table map[ast.NodeID]Index

func (t Table) Lookup(id ast.NodeID) (Index, bool) {
	idx, ok := t[id]
	return idx, ok
}

// Resolve runs the de Bruijn resolution pass over 'e' (the renamed main
// expression) and returns the resulting side-table.
func Resolve(e ast.Expr) Table {
	r := NewResolver()
	visitor.Walk(r, e)
	return Table(r.info)
}
