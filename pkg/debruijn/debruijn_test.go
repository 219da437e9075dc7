package debruijn_test

import (
	"strings"
	"testing"

	"minivm.dev/miniml/pkg/ast"
	"minivm.dev/miniml/pkg/debruijn"
	"minivm.dev/miniml/pkg/parser"
	"minivm.dev/miniml/pkg/rename"
)

func resolve(t *testing.T, src string) (*ast.Prog, debruijn.Table) {
	t.Helper()
	p := parser.NewParser(strings.NewReader(src))
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	if err := rename.Rename(prog); err != nil {
		t.Fatalf("unexpected rename error: %s", err)
	}
	return prog, debruijn.Resolve(prog.Main)
}

func TestVarIndexDepth(t *testing.T) {
	// '\x -> \y -> x': x is one frame further out than the innermost scope.
	prog, table := resolve(t, `\x : int -> \y : int -> x`)
	outer := prog.Main.(*ast.Abs)
	inner := outer.Body.(*ast.Abs)
	ref := inner.Body.(*ast.VarRef)

	idx, ok := table.Lookup(ref.ID)
	if !ok {
		t.Fatalf("expected a resolved index for %q", ref.Name)
	}
	if idx.Kind != debruijn.VarIndex || idx.I != 1 {
		t.Fatalf("expected Var(1), got %s", idx)
	}
}

func TestVarIndexInnermostIsZero(t *testing.T) {
	prog, table := resolve(t, `\x : int -> x`)
	abs := prog.Main.(*ast.Abs)
	ref := abs.Body.(*ast.VarRef)

	idx, ok := table.Lookup(ref.ID)
	if !ok || idx.Kind != debruijn.VarIndex || idx.I != 0 {
		t.Fatalf("expected Var(0), got %v, ok=%v", idx, ok)
	}
}

func TestLetValIsResolvedInOuterScope(t *testing.T) {
	// The outer binder is one frame further from 'body' than from 'val'.
	prog, table := resolve(t, `\x : int -> let y : int = x in x`)
	abs := prog.Main.(*ast.Abs)
	let := abs.Body.(*ast.Let)

	valRef := let.Val.(*ast.VarRef)
	valIdx, ok := table.Lookup(valRef.ID)
	if !ok || valIdx.Kind != debruijn.VarIndex || valIdx.I != 0 {
		t.Fatalf("expected val's reference to be Var(0) (no 'y' frame pushed yet), got %v", valIdx)
	}

	bodyRef := let.Body.(*ast.VarRef)
	bodyIdx, ok := table.Lookup(bodyRef.ID)
	if !ok || bodyIdx.Kind != debruijn.VarIndex || bodyIdx.I != 1 {
		t.Fatalf("expected body's reference to be Var(1) (one frame past 'y'), got %v", bodyIdx)
	}
}

func TestLetRecArmsResolveAsRecIndex(t *testing.T) {
	prog, table := resolve(t, `
		let rec even : int = \n : int -> if n == 0 then true else odd (n - 1)
		and odd : int = \n : int -> if n == 0 then false else even (n - 1)
		in even
	`)
	letrec := prog.Main.(*ast.LetRec)

	evenArm := letrec.Arms[0]
	evenAbs := evenArm.Body.(*ast.Ite).Else.(*ast.App).Fun.(*ast.VarRef)
	idx, ok := table.Lookup(evenAbs.ID)
	if !ok || idx.Kind != debruijn.RecIndex {
		t.Fatalf("expected a Rec index for the recursive call to 'odd', got %v", idx)
	}
	if idx.J != 1 {
		t.Fatalf("expected J=1 (odd is the second arm), got %s", idx)
	}

	finalRef := letrec.Body.(*ast.VarRef)
	finalIdx, ok := table.Lookup(finalRef.ID)
	if !ok || finalIdx.Kind != debruijn.RecIndex || finalIdx.J != 0 {
		t.Fatalf("expected the final 'even' reference to resolve to Rec(_, 0), got %v", finalIdx)
	}
}

func TestMatchPatternBinderDepthOrdering(t *testing.T) {
	// The last name PatternBinders reports for a tuple pattern ('b') must
	// land at depth 0; the first ('a') lands one frame further out.
	prog, table := resolve(t, `match (1, 2) | (a, b) -> (a, b) end`)
	m := prog.Main.(*ast.Match)
	result := m.Arms[0].Result.(*ast.Tuple)

	aRef := result.Subs[0].(*ast.VarRef)
	bRef := result.Subs[1].(*ast.VarRef)

	aIdx, ok := table.Lookup(aRef.ID)
	if !ok {
		t.Fatalf("expected a resolved index for 'a'")
	}
	bIdx, ok := table.Lookup(bRef.ID)
	if !ok {
		t.Fatalf("expected a resolved index for 'b'")
	}
	if bIdx.I != 0 {
		t.Fatalf("expected the last pattern binder 'b' at depth 0, got %s", bIdx)
	}
	if aIdx.I != 1 {
		t.Fatalf("expected 'a' one frame further out at depth 1, got %s", aIdx)
	}
}
