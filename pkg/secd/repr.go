package secd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Textual round-trip format

// This section implements §4.F: the flat, line-oriented instruction text
// this repo uses both to dump a compiled program for inspection and to read
// one back in. It is grounded directly on pkg/asm/parsing.go's combinator
// style (an 'ast.AST' of named parser combinators plus a DFS of Handle*
// functions turning parsed nodes into typed values) -- unlike §4.B's
// expression grammar, this instruction grammar is exactly the kind of flat,
// single-pass token stream goparsec was built for, which is why it is the
// one place in this repo that reaches for it (see DESIGN.md).
//
// original_source/src/secd/repr.rs's own 'secd_parse' is a plain
// string-split decoder, not a parser-combinator one; it is used here only
// as ground truth for the opcode vocabulary (BINOPS_PARSE/UNAOPS_PARSE/
// BROPS_PARSE) and the Display formatting, not for the parsing technique.

var ast = pc.NewAST("secd", 0)

var (
	pProgram = ast.ManyUntil("program", nil, ast.OrdChoice("item", nil, pComment, pInstr), pc.End())

	pComment = ast.And("comment", nil, pc.Atom("#", "#"), pc.Token(`(?m).*$`, "COMMENT"))

	pLabelIdent = pc.Token(`[A-Za-z_][0-9a-zA-Z_]*`, "LABEL")

	pInstr = ast.OrdChoice("instr", nil,
		pHalt, pFail, pPop,
		pConstUnit, pConstInt,
		pAccess,
		pClosures, pClosure, // "closures" before "closure": shared prefix
		pFocus, pApply, pReturn,
		pBuiltin,
		pBinary, pUnary,
		pBrfl, pBr, // "brfl" before "br": shared prefix
		pPushEnv, pMakeTuple,
		pLabelStmt,
	)

	pHalt   = ast.And("halt", nil, pc.Atom("halt", "halt"))
	pFail   = ast.And("fail", nil, pc.Atom("fail", "fail"))
	pPop    = ast.And("pop", nil, pc.Atom("pop", "pop"), pc.Int())
	pAccess = ast.And("access", nil, pc.Atom("access", "access"), pc.Int())

	pConstUnit = ast.And("const-unit", nil, pc.Atom("const", "const"), pc.Atom("unit", "unit"))
	pConstInt  = ast.And("const-int", nil, pc.Atom("const", "const"), pc.Int())

	pClosure  = ast.And("closure", nil, pc.Atom("closure", "closure"), pLabelIdent)
	pClosures = ast.And("closures", nil, pc.Atom("closures", "closures"), ast.Many("labels", nil, pLabelIdent))
	pFocus    = ast.And("focus", nil, pc.Atom("focus", "focus"), pc.Int())
	pApply    = ast.And("apply", nil, pc.Atom("apply", "apply"))
	pReturn   = ast.And("return", nil, pc.Atom("return", "return"))

	pBuiltin = ast.And("builtin", nil, pc.Atom("builtin", "builtin"), ast.OrdChoice("builtin-op", nil,
		pc.Atom("println", "println"), pc.Atom("nth", "nth"),
	))

	pBinary = ast.And("binary", nil, pc.Atom("binary", "binary"), ast.OrdChoice("binop", nil,
		pc.Atom("land", "land"), pc.Atom("lor", "lor"), pc.Atom("lxor", "lxor"),
		pc.Atom("add", "add"), pc.Atom("sub", "sub"), pc.Atom("mul", "mul"),
		pc.Atom("div", "div"), pc.Atom("rem", "rem"),
		pc.Atom("ge", "ge"), pc.Atom("gt", "gt"), pc.Atom("le", "le"), pc.Atom("lt", "lt"),
		pc.Atom("eq", "eq"), pc.Atom("ne", "ne"),
	))

	pUnary = ast.And("unary", nil, pc.Atom("unary", "unary"), ast.OrdChoice("unaop", nil,
		pc.Atom("neg", "neg"), pc.Atom("lnot", "lnot"),
	))

	pBrfl      = ast.And("brfl", nil, pc.Atom("brfl", "brfl"), pLabelIdent)
	pBr        = ast.And("br", nil, pc.Atom("br", "br"), pLabelIdent)
	pPushEnv   = ast.And("pushenv", nil, pc.Atom("pushenv", "pushenv"))
	pMakeTuple = ast.And("maketuple", nil, pc.Atom("maketuple", "maketuple"), pc.Int())

	pLabelStmt = ast.And("label", nil, pLabelIdent, pc.Atom(":", ":"))
)

// Decoder parses the flat textual instruction format (§4.F) into a slice of
// Instr, mirroring pkg/asm.Parser's 'reader -> AST -> typed IR' shape.
type Decoder struct{ reader io.Reader }

func NewDecoder(r io.Reader) Decoder { return Decoder{reader: r} }

func (d *Decoder) Decode() ([]Instr, error) {
	content, err := io.ReadAll(d.reader)
	if err != nil {
		return nil, fmt.Errorf("secd: cannot read from reader: %w", err)
	}

	root, ok := ast.Parsewith(pProgram, pc.NewScanner(content))
	if !ok || root == nil {
		return nil, fmt.Errorf("secd: failed to parse instruction program")
	}
	return fromAST(root)
}

func fromAST(root pc.Queryable) ([]Instr, error) {
	if root.GetName() != "program" {
		return nil, fmt.Errorf("secd: expected node 'program', found %q", root.GetName())
	}

	var program []Instr
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}
		instr, err := handleInstr(child)
		if err != nil {
			return nil, err
		}
		program = append(program, instr)
	}
	return program, nil
}

func handleInt(node pc.Queryable) (int64, error) {
	n, err := strconv.ParseInt(node.GetValue(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("secd: expected integer literal, got %q: %w", node.GetValue(), err)
	}
	return n, nil
}

func handleInstr(node pc.Queryable) (Instr, error) {
	children := node.GetChildren()
	switch node.GetName() {
	case "halt":
		return IHalt{}, nil

	case "fail":
		return IFail{}, nil

	case "pop":
		n, err := handleInt(children[1])
		if err != nil {
			return nil, err
		}
		return IPop{N: int(n)}, nil

	case "const-unit":
		return IConst{Value: UnitVal{}}, nil

	case "const-int":
		n, err := handleInt(children[1])
		if err != nil {
			return nil, err
		}
		return IConst{Value: IntVal{Value: n}}, nil

	case "access":
		n, err := handleInt(children[1])
		if err != nil {
			return nil, err
		}
		return IAccess{N: int(n)}, nil

	case "closure":
		return IClosure{Label: children[1].GetValue()}, nil

	case "closures":
		labelsNode := children[1]
		labels := make([]string, len(labelsNode.GetChildren()))
		for i, c := range labelsNode.GetChildren() {
			labels[i] = c.GetValue()
		}
		return IClosures{Labels: labels}, nil

	case "focus":
		n, err := handleInt(children[1])
		if err != nil {
			return nil, err
		}
		return IFocus{K: int(n)}, nil

	case "apply":
		return IApply{}, nil

	case "return":
		return IReturn{}, nil

	case "builtin":
		return IBuiltin{Op: BuiltinOp(children[1].GetValue())}, nil

	case "binary":
		return IBinary{Op: BinOp(children[1].GetValue())}, nil

	case "unary":
		return IUnary{Op: UnaOp(children[1].GetValue())}, nil

	case "br":
		return IBranch{Op: Br, Label: children[1].GetValue()}, nil

	case "brfl":
		return IBranch{Op: BrFalse, Label: children[1].GetValue()}, nil

	case "pushenv":
		return IPushEnv{}, nil

	case "maketuple":
		n, err := handleInt(children[1])
		if err != nil {
			return nil, err
		}
		return IMakeTuple{N: int(n)}, nil

	case "label":
		return ILabel{Name: children[0].GetValue()}, nil

	default:
		return nil, fmt.Errorf("secd: unrecognized node %q", node.GetName())
	}
}

// ----------------------------------------------------------------------------
// Printer

// Format renders a single instruction in the same textual form Decode
// accepts, so that Decode(Format(i)) == i for every Instr this package
// produces -- the round-trip property §8 asks for.
func Format(instr Instr) string {
	switch i := instr.(type) {
	case IHalt:
		return "halt"
	case IFail:
		return "fail"
	case IPop:
		return fmt.Sprintf("pop %d", i.N)
	case IConst:
		switch v := i.Value.(type) {
		case UnitVal:
			return "const unit"
		case IntVal:
			return fmt.Sprintf("const %d", v.Value)
		default:
			panic(fmt.Sprintf("secd: cannot format const value %T", v))
		}
	case IAccess:
		return fmt.Sprintf("access %d", i.N)
	case IClosure:
		return fmt.Sprintf("closure %s", i.Label)
	case IClosures:
		return fmt.Sprintf("closures %s", strings.Join(i.Labels, " "))
	case IFocus:
		return fmt.Sprintf("focus %d", i.K)
	case IApply:
		return "apply"
	case IReturn:
		return "return"
	case IBuiltin:
		return fmt.Sprintf("builtin %s", i.Op)
	case IBinary:
		return fmt.Sprintf("binary %s", i.Op)
	case IUnary:
		return fmt.Sprintf("unary %s", i.Op)
	case IBranch:
		return fmt.Sprintf("%s %s", i.Op, i.Label)
	case IPushEnv:
		return "pushenv"
	case IMakeTuple:
		return fmt.Sprintf("maketuple %d", i.N)
	case ILabel:
		return fmt.Sprintf("%s:", i.Name)
	default:
		panic(fmt.Sprintf("secd: cannot format instruction %T", i))
	}
}

// FormatProgram renders a whole instruction stream, one instruction per
// line, in source order.
func FormatProgram(prog []Instr) string {
	lines := make([]string, len(prog))
	for i, instr := range prog {
		lines[i] = Format(instr)
	}
	return strings.Join(lines, "\n")
}
