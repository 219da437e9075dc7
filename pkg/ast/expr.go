package ast

// ----------------------------------------------------------------------------
// Node identity

// Every expression node is assigned a NodeID at construction time by the
// parser's single monotonic counter (see pkg/parser). Go interface values
// holding structs copy by value across a type switch, so pointer identity
// cannot be used to key the de Bruijn side-table the way the original
// implementation keys on AST-node address; NodeID is the substitute.
type NodeID int

// ----------------------------------------------------------------------------
// Operators

type BinOp string // Enum for the binary operators allowed in a 'Binary' expr

const (
	Add BinOp = "add"
	Sub BinOp = "sub"
	Mul BinOp = "mul"
	Div BinOp = "div"
	Mod BinOp = "mod"

	Gt BinOp = "gt"
	Lt BinOp = "lt"
	Ge BinOp = "ge"
	Le BinOp = "le"
	Eq BinOp = "eq"
	Ne BinOp = "ne"

	And BinOp = "and"
	Or  BinOp = "or"
	Xor BinOp = "xor"
)

type UnaOp string // Enum for the unary operators allowed in a 'Unary' expr

const (
	Neg UnaOp = "neg" // Arithmetic negation ('-e')
	Not UnaOp = "not" // Logical negation ('!e')
)

type BuiltinOp string // Enum for the builtins reachable only by name

const (
	Println BuiltinOp = "println"
	True    BuiltinOp = "true"
	False   BuiltinOp = "false"
	NthOp   BuiltinOp = "nth"
)

// ----------------------------------------------------------------------------
// Expressions

// Shared marker interface for every expression variant. We lean on a plain
// Go interface{} plus a type switch rather than a closed sum type: this is
// the same idiom the teacher uses for its own 'Expression'/'Statement'/
// 'Operation' unions (pkg/jack, pkg/vm, pkg/asm).
type Expr interface{}

type IntLit struct {
	ID    NodeID
	Value int64
}

type UnitLit struct {
	ID NodeID
}

type Binary struct {
	ID       NodeID
	Lhs, Rhs Expr
	Op       BinOp
}

type Unary struct {
	ID  NodeID
	Sub Expr
	Op  UnaOp
}

// A variable reference. Name starts as the surface identifier, is rewritten
// in place by the renamer to a globally-unique name, and is annotated
// (without further mutation) by the de Bruijn resolver via the side-table
// keyed on ID -- the resolved index is never stored on the node itself so
// that the resolver stays a pure annotation pass (pkg/debruijn.Index).
type VarRef struct {
	ID   NodeID
	Name string
}

type Builtin struct {
	ID NodeID
	Op BuiltinOp
}

// Single-argument function application ('f x'); curried application of
// multiple arguments is left-folded by the parser into nested App nodes.
type App struct {
	ID       NodeID
	Fun, Arg Expr
}

// A left-to-right evaluated sequence; the value of the sequence is the
// value of its last element. The parser never produces a Seq with fewer
// than two elements -- a lone expression collapses to itself (§8 boundary
// case: "Empty Seq never arises").
type Seq struct {
	ID   NodeID
	Subs []Expr
}

// A single-argument function literal.
type Abs struct {
	ID      NodeID
	ArgName string
	ArgTy   Ty
	Body    Expr
}

type Let struct {
	ID   NodeID
	Name string
	Ty   Ty
	Val  Expr
	Body Expr
}

// One arm of a 'let rec ... and ...' bundle.
type LetRecArm struct {
	FnName  string
	FnTy    Ty
	ArgName string
	ArgTy   Ty
	Body    Expr
}

type LetRec struct {
	ID   NodeID
	Arms []LetRecArm
	Body Expr
}

type Tuple struct {
	ID   NodeID
	Subs []Expr
}

// Tuple projection; 'Idx' is parsed as a literal integer, not a general
// sub-expression, since a polymorphic projection would require dependent
// unification (§4.B).
type Nth struct {
	ID  NodeID
	Idx int64
	Sub Expr
}

type Ite struct {
	ID               NodeID
	Cond, Then, Else Expr
}

// One arm of a 'match' expression.
type MatchArm struct {
	Pattern Pattern
	Result  Expr
}

type Match struct {
	ID   NodeID
	Sub  Expr
	Arms []MatchArm
}

// ----------------------------------------------------------------------------
// Patterns

// Shared marker interface for every pattern variant reachable inside a
// 'match' arm.
type Pattern interface{}

// A bare lowercase identifier at pattern position is always a binder -- see
// §9 "Tuple vs binder patterns" for why a zero-argument constructor pattern
// is unreachable by construction rather than by a dedicated check.
type BinderPat struct {
	Name string
}

// A literal sub-pattern (only integer/unit literals are meaningful here;
// the grammar reuses the expression atom for literals so 'Lit' simply
// wraps whatever atom the parser already built).
type LitPat struct {
	Lit Expr
}

type TuplePat struct {
	Subs []Pattern
}

// A constructor pattern always carries at least one sub-pattern; see §9.
type CtorPat struct {
	Name string
	Subs []Pattern
}

// PatternBinders returns the names a pattern binds, left to right as they
// appear in source. CtorPat never contributes a name: the surface grammar
// has no constructor-application expression, so no runtime value can ever
// carry a constructor tag for such a pattern to destructure (§9) -- its
// sub-patterns are therefore never visited either.
func PatternBinders(p Pattern) []string {
	switch pat := p.(type) {
	case BinderPat:
		return []string{pat.Name}
	case LitPat:
		return nil
	case TuplePat:
		var names []string
		for _, sub := range pat.Subs {
			names = append(names, PatternBinders(sub)...)
		}
		return names
	case CtorPat:
		return nil
	default:
		panic("ast.PatternBinders: unknown Pattern variant")
	}
}
