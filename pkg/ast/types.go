package ast

// ----------------------------------------------------------------------------
// Types

// This section contains the type annotations carried by a MiniML program.
//
// Types here are never inferred and never checked for consistency: the core
// accepts whatever annotation the parser attaches to a binder and threads it
// through unexamined. A mismatched annotation is not a rejection in this
// pipeline, it is simply data that nothing downstream inspects beyond the
// odd diagnostic dump.

// Shared marker interface for every type-annotation variant.
type Ty interface{}

type UnitTy struct{}  // The '()' / 'unit' annotation
type IntTy struct{}   // The 'int' annotation
type BoolTy struct{}  // The 'bool' annotation
type UnknownTy struct{} // Placeholder used when the surface syntax omits an annotation

// A single-argument function type, right-associative at the surface
// ('T1 -> T2 -> T3' parses as 'T1 -> (T2 -> T3)').
type FuncTy struct {
	Arg Ty
	Ret Ty
}

// A reference to a user 'datatype' declaration by name.
type DataTy struct {
	Name string
}
