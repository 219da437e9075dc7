package parser_test

import (
	"strings"
	"testing"

	"minivm.dev/miniml/pkg/ast"
	"minivm.dev/miniml/pkg/parser"
)

func parse(t *testing.T, src string) *ast.Prog {
	t.Helper()
	p := parser.NewParser(strings.NewReader(src))
	prog, err := p.Parse()
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %s", src, err)
	}
	return prog
}

func parseErr(t *testing.T, src string) {
	t.Helper()
	p := parser.NewParser(strings.NewReader(src))
	if _, err := p.Parse(); err == nil {
		t.Fatalf("expected a parse error for %q, got none", src)
	}
}

func TestAtoms(t *testing.T) {
	t.Run("Int literal", func(t *testing.T) {
		prog := parse(t, "42")
		lit, ok := prog.Main.(*ast.IntLit)
		if !ok || lit.Value != 42 {
			t.Fatalf("expected IntLit{42}, got %#v", prog.Main)
		}
	})

	t.Run("Unit literal", func(t *testing.T) {
		prog := parse(t, "()")
		if _, ok := prog.Main.(*ast.UnitLit); !ok {
			t.Fatalf("expected UnitLit, got %#v", prog.Main)
		}
	})

	t.Run("Parenthesised expression is not wrapped", func(t *testing.T) {
		prog := parse(t, "(42)")
		if _, ok := prog.Main.(*ast.IntLit); !ok {
			t.Fatalf("expected a bare IntLit, got %#v", prog.Main)
		}
	})

	t.Run("Tuple requires at least two elements", func(t *testing.T) {
		prog := parse(t, "(1, 2, 3)")
		tup, ok := prog.Main.(*ast.Tuple)
		if !ok || len(tup.Subs) != 3 {
			t.Fatalf("expected a 3-element Tuple, got %#v", prog.Main)
		}
	})

	t.Run("Named builtins", func(t *testing.T) {
		for name, op := range map[string]ast.BuiltinOp{"true": ast.True, "false": ast.False, "println": ast.Println} {
			prog := parse(t, name)
			b, ok := prog.Main.(*ast.Builtin)
			if !ok || b.Op != op {
				t.Fatalf("expected Builtin{%s}, got %#v", op, prog.Main)
			}
		}
	})

	t.Run("Plain identifier", func(t *testing.T) {
		prog := parse(t, "x")
		ref, ok := prog.Main.(*ast.VarRef)
		if !ok || ref.Name != "x" {
			t.Fatalf("expected VarRef{x}, got %#v", prog.Main)
		}
	})
}

func TestNth(t *testing.T) {
	// 'nth k e': verifies the identifier-peek fix keeps this reachable,
	// unlike original_source's own atom() alternation order (see DESIGN.md).
	prog := parse(t, "nth 0 (1, 2)")
	nth, ok := prog.Main.(*ast.Nth)
	if !ok || nth.Idx != 0 {
		t.Fatalf("expected Nth{Idx: 0, ...}, got %#v", prog.Main)
	}
	if _, ok := nth.Sub.(*ast.Tuple); !ok {
		t.Fatalf("expected Nth.Sub to be a Tuple, got %#v", nth.Sub)
	}

	t.Run("sub captures a full expression, not just an atom", func(t *testing.T) {
		prog := parse(t, "nth 0 x + 1")
		nth, ok := prog.Main.(*ast.Nth)
		if !ok {
			t.Fatalf("expected Nth, got %#v", prog.Main)
		}
		if _, ok := nth.Sub.(*ast.Binary); !ok {
			t.Fatalf("expected Nth.Sub to be the full 'x + 1' Binary, got %#v", nth.Sub)
		}
	})
}

func TestApplicationIsLeftAssociative(t *testing.T) {
	prog := parse(t, "f x y")
	outer, ok := prog.Main.(*ast.App)
	if !ok {
		t.Fatalf("expected App, got %#v", prog.Main)
	}
	inner, ok := outer.Fun.(*ast.App)
	if !ok {
		t.Fatalf("expected ((f x) y), found App.Fun = %#v", outer.Fun)
	}
	if ref, ok := inner.Fun.(*ast.VarRef); !ok || ref.Name != "f" {
		t.Fatalf("expected innermost Fun to be VarRef{f}, got %#v", inner.Fun)
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	// '1 + 2 * 3' should parse as '1 + (2 * 3)'.
	prog := parse(t, "1 + 2 * 3")
	bin, ok := prog.Main.(*ast.Binary)
	if !ok || bin.Op != ast.Add {
		t.Fatalf("expected an Add at the top, got %#v", prog.Main)
	}
	rhs, ok := bin.Rhs.(*ast.Binary)
	if !ok || rhs.Op != ast.Mul {
		t.Fatalf("expected the rhs to be a Mul, got %#v", bin.Rhs)
	}
}

func TestRelationalOperatorsPreferLongerToken(t *testing.T) {
	for src, want := range map[string]ast.BinOp{
		"1 >= 2": ast.Ge, "1 <= 2": ast.Le, "1 > 2": ast.Gt, "1 < 2": ast.Lt,
	} {
		prog := parse(t, src)
		bin, ok := prog.Main.(*ast.Binary)
		if !ok || bin.Op != want {
			t.Fatalf("%q: expected Binary{%s}, got %#v", src, want, prog.Main)
		}
	}
}

func TestUnaryChainsRightToLeftWithLeftmostOutermost(t *testing.T) {
	// '- ! x' should parse as 'Neg(Not(x))': the leftmost operator ends up
	// outermost.
	prog := parse(t, "- !x")
	outer, ok := prog.Main.(*ast.Unary)
	if !ok || outer.Op != ast.Neg {
		t.Fatalf("expected outermost Neg, got %#v", prog.Main)
	}
	inner, ok := outer.Sub.(*ast.Unary)
	if !ok || inner.Op != ast.Not {
		t.Fatalf("expected innermost Not, got %#v", outer.Sub)
	}
}

func TestLet(t *testing.T) {
	prog := parse(t, "let x : int = 1 in x")
	let, ok := prog.Main.(*ast.Let)
	if !ok || let.Name != "x" {
		t.Fatalf("expected Let{Name: x}, got %#v", prog.Main)
	}
	if _, ok := let.Ty.(ast.IntTy); !ok {
		t.Fatalf("expected Let.Ty to be IntTy, got %#v", let.Ty)
	}
}

func TestLetWithoutAnnotationDefaultsToUnknownTy(t *testing.T) {
	prog := parse(t, "let x = 1 in x")
	let, ok := prog.Main.(*ast.Let)
	if !ok {
		t.Fatalf("expected Let, got %#v", prog.Main)
	}
	if _, ok := let.Ty.(ast.UnknownTy); !ok {
		t.Fatalf("expected Let.Ty to default to UnknownTy, got %#v", let.Ty)
	}
}

func TestLetRecMutualArms(t *testing.T) {
	src := `
		let rec even : int -> bool = \n : int -> if n == 0 then true else odd (n - 1)
		and odd : int -> bool = \n : int -> if n == 0 then false else even (n - 1)
		in even 10
	`
	prog := parse(t, src)
	lr, ok := prog.Main.(*ast.LetRec)
	if !ok || len(lr.Arms) != 2 {
		t.Fatalf("expected a 2-arm LetRec, got %#v", prog.Main)
	}
	if lr.Arms[0].FnName != "even" || lr.Arms[1].FnName != "odd" {
		t.Fatalf("expected arms [even, odd] in source order, got %#v", lr.Arms)
	}
}

func TestLambdaBodyIsFullExpression(t *testing.T) {
	prog := parse(t, `\x : int -> x + 1`)
	abs, ok := prog.Main.(*ast.Abs)
	if !ok || abs.ArgName != "x" {
		t.Fatalf("expected Abs{ArgName: x}, got %#v", prog.Main)
	}
	if _, ok := abs.Body.(*ast.Binary); !ok {
		t.Fatalf("expected Abs.Body to be the full 'x + 1', got %#v", abs.Body)
	}
}

func TestIteElseRecursesWithoutExtraParens(t *testing.T) {
	prog := parse(t, "if 1 == 1 then 10 else if 2 == 2 then 20 else 30")
	ite, ok := prog.Main.(*ast.Ite)
	if !ok {
		t.Fatalf("expected Ite, got %#v", prog.Main)
	}
	if _, ok := ite.Else.(*ast.Ite); !ok {
		t.Fatalf("expected a nested Ite in the else branch, got %#v", ite.Else)
	}
}

func TestSeq(t *testing.T) {
	t.Run("Two or more elements build a Seq", func(t *testing.T) {
		prog := parse(t, "println 1; println 2; 3")
		seq, ok := prog.Main.(*ast.Seq)
		if !ok || len(seq.Subs) != 3 {
			t.Fatalf("expected a 3-element Seq, got %#v", prog.Main)
		}
	})

	t.Run("A single element collapses to itself", func(t *testing.T) {
		prog := parse(t, "42")
		if _, ok := prog.Main.(*ast.Seq); ok {
			t.Fatalf("a lone expression must never produce a Seq, got %#v", prog.Main)
		}
	})
}

func TestDataTypeDeclaration(t *testing.T) {
	prog := parse(t, `
		datatype List =
			| Nil
			| Cons int List
		end
		0
	`)
	if len(prog.DataTypes) != 1 {
		t.Fatalf("expected one DataType, got %d", len(prog.DataTypes))
	}
	dt := prog.DataTypes[0]
	if dt.Name != "List" || len(dt.Arms) != 2 {
		t.Fatalf("expected List with 2 arms, got %#v", dt)
	}
	if dt.Arms[0].Ctor != "Nil" || len(dt.Arms[0].ArgTys) != 0 {
		t.Fatalf("expected Nil with 0 arg types, got %#v", dt.Arms[0])
	}
	if dt.Arms[1].Ctor != "Cons" || len(dt.Arms[1].ArgTys) != 2 {
		t.Fatalf("expected Cons with 2 arg types, got %#v", dt.Arms[1])
	}
}

func TestFuncTyIsRightAssociative(t *testing.T) {
	prog := parse(t, `let f : int -> int -> int = \x : int -> \y : int -> x in f`)
	let, ok := prog.Main.(*ast.Let)
	if !ok {
		t.Fatalf("expected Let, got %#v", prog.Main)
	}
	outer, ok := let.Ty.(ast.FuncTy)
	if !ok {
		t.Fatalf("expected FuncTy, got %#v", let.Ty)
	}
	if _, ok := outer.Arg.(ast.IntTy); !ok {
		t.Fatalf("expected leftmost arg to be IntTy, got %#v", outer.Arg)
	}
	inner, ok := outer.Ret.(ast.FuncTy)
	if !ok {
		t.Fatalf("expected 'int -> int -> int' to be right-associative, got %#v", outer.Ret)
	}
	if _, ok := inner.Ret.(ast.IntTy); !ok {
		t.Fatalf("expected innermost Ret to be IntTy, got %#v", inner.Ret)
	}
}

func TestMatchPatterns(t *testing.T) {
	t.Run("Binder pattern", func(t *testing.T) {
		prog := parse(t, "match 1 | x -> x end")
		m, ok := prog.Main.(*ast.Match)
		if !ok || len(m.Arms) != 1 {
			t.Fatalf("expected a 1-arm Match, got %#v", prog.Main)
		}
		if _, ok := m.Arms[0].Pattern.(ast.BinderPat); !ok {
			t.Fatalf("expected BinderPat, got %#v", m.Arms[0].Pattern)
		}
	})

	t.Run("Literal pattern", func(t *testing.T) {
		prog := parse(t, "match 1 | 0 -> 10 | x -> x end")
		m := prog.Main.(*ast.Match)
		lit, ok := m.Arms[0].Pattern.(ast.LitPat)
		if !ok {
			t.Fatalf("expected LitPat, got %#v", m.Arms[0].Pattern)
		}
		if _, ok := lit.Lit.(*ast.IntLit); !ok {
			t.Fatalf("expected an IntLit literal, got %#v", lit.Lit)
		}
	})

	t.Run("Tuple pattern", func(t *testing.T) {
		prog := parse(t, "match (1, 2) | (a, b) -> a end")
		m := prog.Main.(*ast.Match)
		tp, ok := m.Arms[0].Pattern.(ast.TuplePat)
		if !ok || len(tp.Subs) != 2 {
			t.Fatalf("expected a 2-element TuplePat, got %#v", m.Arms[0].Pattern)
		}
	})

	t.Run("Constructor pattern needs at least one sub-pattern", func(t *testing.T) {
		prog := parse(t, "match 1 | Cons x xs -> x end")
		m := prog.Main.(*ast.Match)
		cp, ok := m.Arms[0].Pattern.(ast.CtorPat)
		if !ok || cp.Name != "Cons" || len(cp.Subs) != 2 {
			t.Fatalf("expected CtorPat{Cons, [x, xs]}, got %#v", m.Arms[0].Pattern)
		}
	})

	t.Run("Bare identifier with no trailing atom is a binder, not a 0-arg constructor", func(t *testing.T) {
		prog := parse(t, "match 1 | Nil -> 0 end")
		m := prog.Main.(*ast.Match)
		if _, ok := m.Arms[0].Pattern.(ast.BinderPat); !ok {
			t.Fatalf("expected BinderPat (no sub-patterns followed), got %#v", m.Arms[0].Pattern)
		}
	})

	t.Run("Nested constructor pattern requires parens", func(t *testing.T) {
		prog := parse(t, "match 1 | Cons x (Cons y z) -> x end")
		m := prog.Main.(*ast.Match)
		cp := m.Arms[0].Pattern.(ast.CtorPat)
		if _, ok := cp.Subs[1].(ast.CtorPat); !ok {
			t.Fatalf("expected the parenthesised sub-pattern to itself be a CtorPat, got %#v", cp.Subs[1])
		}
	})

	t.Run("Requires at least one arm", func(t *testing.T) {
		parseErr(t, "match 1 end")
	})
}

func TestErrors(t *testing.T) {
	t.Run("Unclosed paren", func(t *testing.T) {
		parseErr(t, "(1 + 2")
	})

	t.Run("Keyword used as identifier", func(t *testing.T) {
		parseErr(t, "let in = 1 in in")
	})

	t.Run("Trailing garbage after a complete program", func(t *testing.T) {
		parseErr(t, "1 2 )")
	})

	t.Run("Missing 'in'", func(t *testing.T) {
		parseErr(t, "let x = 1 x")
	})
}

func TestComments(t *testing.T) {
	prog := parse(t, `
		-- this is a comment
		1 + 2 -- trailing comment
	`)
	bin, ok := prog.Main.(*ast.Binary)
	if !ok || bin.Op != ast.Add {
		t.Fatalf("expected comments to be skipped like whitespace, got %#v", prog.Main)
	}
}
