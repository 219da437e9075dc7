package rename_test

import (
	"strings"
	"testing"

	"minivm.dev/miniml/pkg/ast"
	"minivm.dev/miniml/pkg/parser"
	"minivm.dev/miniml/pkg/rename"
)

func parseProg(t *testing.T, src string) *ast.Prog {
	t.Helper()
	p := parser.NewParser(strings.NewReader(src))
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	return prog
}

func TestRenameProducesGloballyUniqueNames(t *testing.T) {
	// Two lambdas binding the same surface name 'x' must end up with
	// distinct renamed identifiers.
	prog := parseProg(t, `(\x : int -> x) (\x : int -> x)`)
	if err := rename.Rename(prog); err != nil {
		t.Fatalf("unexpected rename error: %s", err)
	}

	app := prog.Main.(*ast.App)
	left := app.Fun.(*ast.Abs)
	right := app.Arg.(*ast.Abs)
	if left.ArgName == right.ArgName {
		t.Fatalf("expected distinct renamed binders, both got %q", left.ArgName)
	}
	if !strings.HasPrefix(left.ArgName, "_x@") || !strings.HasPrefix(right.ArgName, "_x@") {
		t.Fatalf("expected '_x@N' renamed shape, got %q and %q", left.ArgName, right.ArgName)
	}

	leftRef := left.Body.(*ast.VarRef)
	rightRef := right.Body.(*ast.VarRef)
	if leftRef.Name != left.ArgName {
		t.Fatalf("left body should reference the left binder, got %q != %q", leftRef.Name, left.ArgName)
	}
	if rightRef.Name != right.ArgName {
		t.Fatalf("right body should reference the right binder, got %q != %q", rightRef.Name, right.ArgName)
	}
}

func TestLetValIsRenamedInOuterScope(t *testing.T) {
	// 'x' in 'val' must refer to the OUTER x, not the one this Let defines.
	prog := parseProg(t, `\x : int -> let x : int = x + 1 in x`)
	if err := rename.Rename(prog); err != nil {
		t.Fatalf("unexpected rename error: %s", err)
	}

	outer := prog.Main.(*ast.Abs)
	let := outer.Body.(*ast.Let)

	val := let.Val.(*ast.Binary)
	valRef := val.Lhs.(*ast.VarRef)
	if valRef.Name != outer.ArgName {
		t.Fatalf("'val' should reference the outer binder %q, got %q", outer.ArgName, valRef.Name)
	}

	bodyRef := let.Body.(*ast.VarRef)
	if bodyRef.Name != let.Name {
		t.Fatalf("'body' should reference the Let's own binder %q, got %q", let.Name, bodyRef.Name)
	}
	if bodyRef.Name == outer.ArgName {
		t.Fatalf("'body' must shadow the outer binder, both resolved to %q", bodyRef.Name)
	}
}

func TestUnknownVarRefIsAnError(t *testing.T) {
	prog := parseProg(t, "y")
	err := rename.Rename(prog)
	if err == nil {
		t.Fatal("expected an UnknownVarRef error")
	}
	if _, ok := err.(*rename.UnknownVarRef); !ok {
		t.Fatalf("expected *rename.UnknownVarRef, got %T: %s", err, err)
	}
}

func TestDuplicateLetRecFnNameIsAnError(t *testing.T) {
	prog := parseProg(t, `
		let rec f : int = \x : int -> x
		and f : int = \x : int -> x
		in f
	`)
	err := rename.Rename(prog)
	if err == nil {
		t.Fatal("expected a DuplicateLetRecFn error")
	}
	if _, ok := err.(*rename.DuplicateLetRecFn); !ok {
		t.Fatalf("expected *rename.DuplicateLetRecFn, got %T: %s", err, err)
	}
}

func TestMatchPatternBindersAreScopedToTheirArm(t *testing.T) {
	prog := parseProg(t, `match 1 | x -> x | y -> y end`)
	if err := rename.Rename(prog); err != nil {
		t.Fatalf("unexpected rename error: %s", err)
	}

	m := prog.Main.(*ast.Match)
	arm0Pat := m.Arms[0].Pattern.(ast.BinderPat)
	arm1Pat := m.Arms[1].Pattern.(ast.BinderPat)
	if arm0Pat.Name == arm1Pat.Name {
		t.Fatalf("each arm's binder should be independently renamed, both got %q", arm0Pat.Name)
	}

	arm0Result := m.Arms[0].Result.(*ast.VarRef)
	arm1Result := m.Arms[1].Result.(*ast.VarRef)
	if arm0Result.Name != arm0Pat.Name {
		t.Fatalf("arm 0's result should reference arm 0's own binder %q, got %q", arm0Pat.Name, arm0Result.Name)
	}
	if arm1Result.Name != arm1Pat.Name {
		t.Fatalf("arm 1's result should reference arm 1's own binder %q, got %q", arm1Pat.Name, arm1Result.Name)
	}
}

func TestMatchSubIsRenamedInOuterScope(t *testing.T) {
	prog := parseProg(t, `\x : int -> match x | y -> y end`)
	if err := rename.Rename(prog); err != nil {
		t.Fatalf("unexpected rename error: %s", err)
	}

	abs := prog.Main.(*ast.Abs)
	m := abs.Body.(*ast.Match)
	sub := m.Sub.(*ast.VarRef)
	if sub.Name != abs.ArgName {
		t.Fatalf("match's scrutinee should reference the outer binder %q, got %q", abs.ArgName, sub.Name)
	}
}
