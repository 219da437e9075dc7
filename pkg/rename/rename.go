package rename

import (
	"fmt"

	"minivm.dev/miniml/pkg/ast"
	"minivm.dev/miniml/pkg/utils"
	"minivm.dev/miniml/pkg/visitor"
)

// ----------------------------------------------------------------------------
// Alpha renamer

// This section implements §4.C: a single pass over the AST that replaces
// every binder with a globally-unique name of the form '_<old>@<k>' and
// rewrites every VarRef to point at the correct one. It is grounded on
// original_source/src/namer.rs, with one deliberate ordering change: the
// original visits a Let's 'val' under the *new* binding already pushed,
// while §4.C of the spec requires 'val' to be renamed in the outer scope
// (name enters scope for 'body' only) -- this implementation follows the
// spec's explicit rule, not the original's looser ordering.

type binding struct{ old, new string }

// Namer carries the per-old-name counter and the active binding stack for
// the duration of a single renaming pass; both are released once Rename
// returns (§5: no state outlives a single pass).
type Namer struct {
	nameCnt map[string]int64
	vars    utils.Stack[binding]
}

func NewNamer() *Namer {
	return &Namer{nameCnt: make(map[string]int64)}
}

// UnknownVarRef is returned when a VarRef has no matching binder anywhere
// on the active scope stack.
type UnknownVarRef struct{ ID string }

func (e *UnknownVarRef) Error() string {
	return fmt.Sprintf("rename: unknown variable reference %q", e.ID)
}

// DuplicateLetRecFn is returned when two arms of the same LetRec share a
// fn_name.
type DuplicateLetRecFn struct{ Name string }

func (e *DuplicateLetRecFn) Error() string {
	return fmt.Sprintf("rename: duplicate let rec function name %q", e.Name)
}

func (n *Namer) genName(old string) string {
	suffix := n.nameCnt[old]
	n.nameCnt[old] = suffix + 1
	return fmt.Sprintf("_%s@%d", old, suffix)
}

func (n *Namer) defVar(old string) string {
	newName := n.genName(old)
	n.vars.Push(binding{old: old, new: newName})
	return newName
}

func (n *Namer) undefVar(newName string) {
	top, err := n.vars.Pop()
	if err != nil {
		panic("rename: undefVar called on empty binding stack")
	}
	if top.new != newName {
		panic(fmt.Sprintf("rename: undefVar mismatch: %s != %s", newName, top.new))
	}
}

// resolve scans the binding stack top-down (most recently pushed first)
// and returns the live new name for 'old', per §4.C.
func (n *Namer) resolve(old string) (string, bool) {
	var result string
	found := false
	n.vars.Iterator()(func(b binding) bool {
		if b.old != old {
			return true // keep scanning
		}
		result, found = b.new, true
		return false // stop at the most recent match
	})
	return result, found
}

func (n *Namer) JoinResults(results []error) error {
	for _, r := range results {
		if r != nil {
			return r
		}
	}
	return nil
}

func (n *Namer) Transform(self *ast.Expr) error {
	switch e := (*self).(type) {
	case *ast.VarRef:
		newName, ok := n.resolve(e.Name)
		if !ok {
			return &UnknownVarRef{ID: e.Name}
		}
		e.Name = newName
		return nil

	case *ast.Abs:
		newArg := n.defVar(e.ArgName)
		e.ArgName = newArg
		if err := n.Transform(&e.Body); err != nil {
			return err
		}
		n.undefVar(newArg)
		return nil

	case *ast.Let:
		// 'val' is renamed in the outer scope (§4.C); 'name' enters scope
		// for 'body' only.
		if err := n.Transform(&e.Val); err != nil {
			return err
		}
		newName := n.defVar(e.Name)
		e.Name = newName
		if err := n.Transform(&e.Body); err != nil {
			n.undefVar(newName)
			return err
		}
		n.undefVar(newName)
		return nil

	case *ast.LetRec:
		seen := make(map[string]bool, len(e.Arms))
		for _, arm := range e.Arms {
			if seen[arm.FnName] {
				return &DuplicateLetRecFn{Name: arm.FnName}
			}
			seen[arm.FnName] = true
		}

		// All fn_names enter scope together before any arm body is visited.
		for i := range e.Arms {
			e.Arms[i].FnName = n.defVar(e.Arms[i].FnName)
		}

		for i := range e.Arms {
			newArg := n.defVar(e.Arms[i].ArgName)
			e.Arms[i].ArgName = newArg
			if err := n.Transform(&e.Arms[i].Body); err != nil {
				return err
			}
			n.undefVar(newArg)
		}

		if err := n.Transform(&e.Body); err != nil {
			return err
		}

		for i := len(e.Arms) - 1; i >= 0; i-- {
			n.undefVar(e.Arms[i].FnName)
		}
		return nil

	case *ast.Match:
		// 'sub' is renamed in the outer scope, same as a Let's 'val'; each
		// arm's pattern binders enter scope only for that arm's Result, and
		// go out of scope again before the next arm is renamed (DESIGN.md's
		// match-pattern scoping note extends §4.C's binding-site list to
		// cover match patterns, a case the distilled spec leaves unstated).
		if err := n.Transform(&e.Sub); err != nil {
			return err
		}
		for i := range e.Arms {
			bound := n.renamePattern(&e.Arms[i].Pattern)
			if err := n.Transform(&e.Arms[i].Result); err != nil {
				n.undefPattern(bound)
				return err
			}
			n.undefPattern(bound)
		}
		return nil

	default:
		return visitor.TransformChildren[error](n, *self)
	}
}

// renamePattern renames every BinderPat reachable inside 'self' in place and
// pushes each onto the binding stack, left to right, returning the new names
// so the caller can pop them again with undefPattern once the arm's Result
// has been visited.
func (n *Namer) renamePattern(self *ast.Pattern) []string {
	switch pat := (*self).(type) {
	case ast.BinderPat:
		newName := n.defVar(pat.Name)
		pat.Name = newName
		*self = pat
		return []string{newName}

	case ast.LitPat:
		return nil

	case ast.TuplePat:
		var bound []string
		for i := range pat.Subs {
			bound = append(bound, n.renamePattern(&pat.Subs[i])...)
		}
		return bound

	case ast.CtorPat:
		// Unreachable at runtime (see ast.PatternBinders); nothing to rename.
		return nil

	default:
		panic("rename.renamePattern: unknown ast.Pattern variant")
	}
}

func (n *Namer) undefPattern(names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		n.undefVar(names[i])
	}
}

// Rename runs the alpha-renaming pass over 'prog's main expression in
// place, returning the first error encountered (§4.C errors).
func Rename(prog *ast.Prog) error {
	n := NewNamer()
	return n.Transform(&prog.Main)
}
