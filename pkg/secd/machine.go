package secd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"minivm.dev/miniml/pkg/utils"
)

// ----------------------------------------------------------------------------
// Abstract machine

// This section implements §4.G: a deterministic step function over the
// state triple (pc, stack, env) plus an append-only effect log. It is
// grounded on original_source/src/secd/machine.rs's match-over-instruction
// shape, filling in the println/unary/nth cases that file leaves as
// todo!() (see VisitApp's doc comment in codegen.go for why println in
// particular needed a codegen-side decision before the machine could do
// anything sensible with it).

// Effect is the shared marker interface for every entry the machine's
// append-only log can hold. 'println' is the only builtin that produces
// one (§3).
type Effect interface{}

type PrintlnEffect struct{ Text string }

// ----------------------------------------------------------------------------
// Errors

// Every failure mode below is its own Go type implementing error (§7), so
// callers can type-switch on the specific condition rather than parse a
// message.
type StackUnderflow struct{ Op string }

func (e *StackUnderflow) Error() string {
	return fmt.Sprintf("secd: stack underflow executing %q", e.Op)
}

type EnvOutOfRange struct{ N, EnvLen int }

func (e *EnvOutOfRange) Error() string {
	return fmt.Sprintf("secd: access %d out of range for environment of size %d", e.N, e.EnvLen)
}

type UnknownLabel struct{ Name string }

func (e *UnknownLabel) Error() string {
	return fmt.Sprintf("secd: unknown label %q", e.Name)
}

type DuplicateLabel struct{ Name string }

func (e *DuplicateLabel) Error() string {
	return fmt.Sprintf("secd: duplicate label %q", e.Name)
}

type TypeMismatch struct {
	Op   string
	Want string
	Got  Val
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("secd: %s expected %s, got %T", e.Op, e.Want, e.Got)
}

type DivisionByZero struct{ Op string }

func (e *DivisionByZero) Error() string {
	return fmt.Sprintf("secd: division by zero executing %q", e.Op)
}

type FocusOutOfRange struct{ K, NArms int }

func (e *FocusOutOfRange) Error() string {
	return fmt.Sprintf("secd: focus %d out of range for bundle of %d arms", e.K, e.NArms)
}

type NthOutOfRange struct {
	Idx int64
	Len int
}

func (e *NthOutOfRange) Error() string {
	return fmt.Sprintf("secd: nth %d out of range for tuple of length %d", e.Idx, e.Len)
}

// NonExhaustiveMatch is raised by IFail: a compiled match ran off the end
// of its arms without any of them matching the scrutinee. See IFail's doc
// comment for why this is distinct from a normal Halt.
type NonExhaustiveMatch struct{}

func (e *NonExhaustiveMatch) Error() string { return "secd: no match arm matched the scrutinee" }

type MaxStepsExceeded struct{ Steps int }

func (e *MaxStepsExceeded) Error() string {
	return fmt.Sprintf("secd: exceeded maximum step count of %d", e.Steps)
}

// ----------------------------------------------------------------------------
// Machine

// Machine holds the full mutable state of a single run: the program, a
// label -> pc index, and the (pc, stack, env) triple plus the effect log.
// None of this is safe for concurrent use -- a run is strictly sequential
// (§5 Concurrency & Resource Model).
type Machine struct {
	Prog   []Instr
	labels map[string]int

	PC    int
	Stack utils.Stack[Val]
	Env   []Val
	Log   []Effect

	// Tracer, when set, is called once per Step before the instruction
	// executes. New installs a tracer that prints one line per step to
	// stderr when MINIML_TRACE is set in the environment (§2.1/§4.G) -- it is
	// deliberately separate from Log, which records only user-visible
	// effects (println), not every machine transition.
	Tracer func(step int, pc int, instr Instr)

	steps int
}

// New builds a Machine over a fully-assembled instruction stream,
// resolving every label up front so a bad jump target is reported at
// construction time rather than mid-run.
func New(prog []Instr) (*Machine, error) {
	labels := make(map[string]int, len(prog))
	for i, instr := range prog {
		l, ok := instr.(ILabel)
		if !ok {
			continue
		}
		if _, dup := labels[l.Name]; dup {
			return nil, &DuplicateLabel{Name: l.Name}
		}
		labels[l.Name] = i
	}
	for _, instr := range prog {
		var refs []string
		switch i := instr.(type) {
		case IClosure:
			refs = []string{i.Label}
		case IClosures:
			refs = i.Labels
		case IBranch:
			refs = []string{i.Label}
		}
		for _, ref := range refs {
			if _, ok := labels[ref]; !ok {
				return nil, &UnknownLabel{Name: ref}
			}
		}
	}

	m := &Machine{Prog: prog, labels: labels}
	if os.Getenv("MINIML_TRACE") != "" {
		m.Tracer = func(step, pc int, instr Instr) {
			fmt.Fprintf(os.Stderr, "step %d: pc=%d %s\n", step, pc, Format(instr))
		}
	}
	return m, nil
}

func (m *Machine) jump(label string) (int, error) {
	pc, ok := m.labels[label]
	if !ok {
		return 0, &UnknownLabel{Name: label}
	}
	return pc, nil
}

// Run drives the machine to completion (IHalt) or failure, returning the
// final value on success. maxSteps <= 0 means unbounded; a positive
// maxSteps enforces cmd/miniml_run's '--max-steps' option.
func (m *Machine) Run(maxSteps int) (Val, error) {
	for {
		if maxSteps > 0 && m.steps >= maxSteps {
			return nil, &MaxStepsExceeded{Steps: maxSteps}
		}
		halted, err := m.Step()
		if err != nil {
			return nil, err
		}
		if halted {
			break
		}
	}
	top, err := m.Stack.Top()
	if err != nil {
		return UnitVal{}, nil
	}
	return top, nil
}

// Step executes exactly one instruction at the current pc, per the step
// table in §4.G. It returns (true, nil) exactly when IHalt ran.
func (m *Machine) Step() (bool, error) {
	if m.PC < 0 || m.PC >= len(m.Prog) {
		return false, fmt.Errorf("secd: program counter %d out of range for program of length %d", m.PC, len(m.Prog))
	}
	instr := m.Prog[m.PC]
	if m.Tracer != nil {
		m.Tracer(m.steps, m.PC, instr)
	}
	m.steps++

	switch i := instr.(type) {
	case IHalt:
		return true, nil

	case IFail:
		return false, &NonExhaustiveMatch{}

	case ILabel:
		m.PC++
		return false, nil

	case IPop:
		for j := 0; j < i.N; j++ {
			if _, err := m.Stack.Pop(); err != nil {
				return false, &StackUnderflow{Op: "pop"}
			}
		}
		m.PC++
		return false, nil

	case IConst:
		m.Stack.Push(i.Value)
		m.PC++
		return false, nil

	case IAccess:
		if i.N < 1 || i.N > len(m.Env) {
			return false, &EnvOutOfRange{N: i.N, EnvLen: len(m.Env)}
		}
		m.Stack.Push(m.Env[len(m.Env)-i.N])
		m.PC++
		return false, nil

	case IPushEnv:
		v, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "pushenv"}
		}
		m.Env = append(m.Env, v)
		m.PC++
		return false, nil

	case IClosure:
		pc, err := m.jump(i.Label)
		if err != nil {
			return false, err
		}
		m.Stack.Push(ClosureVal{Focused: pc, Env: append([]Val(nil), m.Env...)})
		m.PC++
		return false, nil

	// Closures builds a single unfocused bundle and installs it directly
	// into the environment -- the one instruction that mutates Env instead
	// of Stack, since the bundle is only ever meaningful once bound (§4.E).
	case IClosures:
		pcs := make([]int, len(i.Labels))
		for idx, l := range i.Labels {
			pc, err := m.jump(l)
			if err != nil {
				return false, err
			}
			pcs[idx] = pc
		}
		bundle := ClosureVal{Focused: -1, Mutrec: pcs, Env: append([]Val(nil), m.Env...)}
		m.Env = append(m.Env, bundle)
		m.PC++
		return false, nil

	case IFocus:
		v, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "focus"}
		}
		bundle, ok := v.(ClosureVal)
		if !ok || bundle.isFocused() || bundle.Mutrec == nil {
			return false, &TypeMismatch{Op: "focus", Want: "unfocused closure bundle", Got: v}
		}
		// i.K is 1-based (the wire/textual format's Focus k, 1 <= k <= NArms);
		// Focused stores the 0-based arm index used directly as Mutrec[Focused].
		if i.K < 1 || i.K > len(bundle.Mutrec) {
			return false, &FocusOutOfRange{K: i.K, NArms: len(bundle.Mutrec)}
		}
		m.Stack.Push(ClosureVal{Focused: i.K - 1, Mutrec: bundle.Mutrec, Env: bundle.Env})
		m.PC++
		return false, nil

	case IApply:
		argVal, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "apply"}
		}
		funVal, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "apply"}
		}
		clos, ok := funVal.(ClosureVal)
		if !ok || !clos.isFocused() {
			return false, &TypeMismatch{Op: "apply", Want: "closure", Got: funVal}
		}

		// Push the return frame (EnvVal below PCVal, so PCVal is popped
		// first by Return -- see IReturn below) before switching to the
		// callee's own environment.
		m.Stack.Push(EnvVal{Env: m.Env})
		m.Stack.Push(PCVal{PC: m.PC + 1})

		var newEnv []Val
		var calleePC int
		if clos.Mutrec != nil {
			// This closure came from a Closures bundle: Focused holds the
			// arm index, not a pc directly, so the jump target is
			// Mutrec[Focused]. Reconstruct the unfocused bundle fresh from
			// what the focused closure already carries, rather than storing
			// it inside its own captured Env (which would require a
			// circular value). Env grows at the end (index 0 = bottom,
			// last = most-recently-bound), matching IAccess/IPushEnv below:
			// the bundle is pushed first, then the argument on top, giving
			// Access(1) the argument and Access(2)+Focus the bundle.
			calleePC = clos.Mutrec[clos.Focused]
			bundle := ClosureVal{Focused: -1, Mutrec: clos.Mutrec, Env: clos.Env}
			newEnv = append(append(append([]Val{}, clos.Env...), bundle), argVal)
		} else {
			calleePC = clos.Focused
			newEnv = append(append([]Val{}, clos.Env...), argVal)
		}
		m.Env = newEnv
		m.PC = calleePC
		return false, nil

	case IReturn:
		resVal, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "return"}
		}
		pcRaw, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "return"}
		}
		pcVal, ok := pcRaw.(PCVal)
		if !ok {
			return false, &TypeMismatch{Op: "return", Want: "return-pc marker", Got: pcRaw}
		}
		envRaw, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "return"}
		}
		envVal, ok := envRaw.(EnvVal)
		if !ok {
			return false, &TypeMismatch{Op: "return", Want: "return-env marker", Got: envRaw}
		}
		m.Env = envVal.Env
		m.PC = pcVal.PC
		m.Stack.Push(resVal)
		return false, nil

	case IBuiltin:
		return false, m.stepBuiltin(i.Op)

	case IBinary:
		rhsRaw, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "binary"}
		}
		lhsRaw, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "binary"}
		}
		result, err := evalBinary(i.Op, lhsRaw, rhsRaw)
		if err != nil {
			return false, err
		}
		m.Stack.Push(result)
		m.PC++
		return false, nil

	case IUnary:
		subRaw, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "unary"}
		}
		result, err := evalUnary(i.Op, subRaw)
		if err != nil {
			return false, err
		}
		m.Stack.Push(result)
		m.PC++
		return false, nil

	case IBranch:
		if i.Op == Br {
			pc, err := m.jump(i.Label)
			if err != nil {
				return false, err
			}
			m.PC = pc
			return false, nil
		}
		condRaw, err := m.Stack.Pop()
		if err != nil {
			return false, &StackUnderflow{Op: "brfl"}
		}
		cond, ok := condRaw.(IntVal)
		if !ok {
			return false, &TypeMismatch{Op: "brfl", Want: "int", Got: condRaw}
		}
		if cond.Value == 0 {
			pc, err := m.jump(i.Label)
			if err != nil {
				return false, err
			}
			m.PC = pc
		} else {
			m.PC++
		}
		return false, nil

	case IMakeTuple:
		if i.N < 0 || i.N > m.Stack.Count() {
			return false, &StackUnderflow{Op: "maketuple"}
		}
		vals := make([]Val, i.N)
		for j := i.N - 1; j >= 0; j-- {
			v, err := m.Stack.Pop()
			if err != nil {
				return false, &StackUnderflow{Op: "maketuple"}
			}
			vals[j] = v
		}
		m.Stack.Push(TupleVal{Values: vals})
		m.PC++
		return false, nil

	default:
		return false, fmt.Errorf("secd: unknown instruction %T", i)
	}
}

func (m *Machine) stepBuiltin(op BuiltinOp) error {
	switch op {
	case Println:
		v, err := m.Stack.Pop()
		if err != nil {
			return &StackUnderflow{Op: "builtin println"}
		}
		m.Log = append(m.Log, PrintlnEffect{Text: FormatVal(v)})
		m.Stack.Push(UnitVal{})
		m.PC++
		return nil

	case NthOp:
		kRaw, err := m.Stack.Pop()
		if err != nil {
			return &StackUnderflow{Op: "builtin nth"}
		}
		k, ok := kRaw.(IntVal)
		if !ok {
			return &TypeMismatch{Op: "builtin nth", Want: "int", Got: kRaw}
		}
		tRaw, err := m.Stack.Pop()
		if err != nil {
			return &StackUnderflow{Op: "builtin nth"}
		}
		t, ok := tRaw.(TupleVal)
		if !ok {
			return &TypeMismatch{Op: "builtin nth", Want: "tuple", Got: tRaw}
		}
		if k.Value < 0 || int(k.Value) >= len(t.Values) {
			return &NthOutOfRange{Idx: k.Value, Len: len(t.Values)}
		}
		m.Stack.Push(t.Values[k.Value])
		m.PC++
		return nil

	default:
		return fmt.Errorf("secd: unknown builtin op %q", op)
	}
}

func boolVal(b bool) IntVal {
	if b {
		return IntVal{Value: 1}
	}
	return IntVal{Value: 0}
}

func evalBinary(op BinOp, lhsRaw, rhsRaw Val) (Val, error) {
	lhs, ok1 := lhsRaw.(IntVal)
	rhs, ok2 := rhsRaw.(IntVal)
	if !ok1 {
		return nil, &TypeMismatch{Op: "binary " + string(op), Want: "int", Got: lhsRaw}
	}
	if !ok2 {
		return nil, &TypeMismatch{Op: "binary " + string(op), Want: "int", Got: rhsRaw}
	}

	switch op {
	case Add:
		return IntVal{Value: lhs.Value + rhs.Value}, nil
	case Sub:
		return IntVal{Value: lhs.Value - rhs.Value}, nil
	case Mul:
		return IntVal{Value: lhs.Value * rhs.Value}, nil
	case Div:
		if rhs.Value == 0 {
			return nil, &DivisionByZero{Op: "div"}
		}
		return IntVal{Value: lhs.Value / rhs.Value}, nil
	case Rem:
		if rhs.Value == 0 {
			return nil, &DivisionByZero{Op: "rem"}
		}
		return IntVal{Value: lhs.Value % rhs.Value}, nil
	case Eq:
		return boolVal(lhs.Value == rhs.Value), nil
	case Ne:
		return boolVal(lhs.Value != rhs.Value), nil
	case Ge:
		return boolVal(lhs.Value >= rhs.Value), nil
	case Le:
		return boolVal(lhs.Value <= rhs.Value), nil
	case Gt:
		return boolVal(lhs.Value > rhs.Value), nil
	case Lt:
		return boolVal(lhs.Value < rhs.Value), nil
	case Lnd:
		return boolVal(lhs.Value != 0 && rhs.Value != 0), nil
	case Lor:
		return boolVal(lhs.Value != 0 || rhs.Value != 0), nil
	case Lxr:
		return boolVal((lhs.Value != 0) != (rhs.Value != 0)), nil
	default:
		return nil, fmt.Errorf("secd: unknown binary op %q", op)
	}
}

func evalUnary(op UnaOp, subRaw Val) (Val, error) {
	sub, ok := subRaw.(IntVal)
	if !ok {
		return nil, &TypeMismatch{Op: "unary " + string(op), Want: "int", Got: subRaw}
	}
	switch op {
	case Neg:
		return IntVal{Value: -sub.Value}, nil
	case Lnot:
		return boolVal(sub.Value == 0), nil
	default:
		return nil, fmt.Errorf("secd: unknown unary op %q", op)
	}
}

// FormatVal renders a value for the println effect log, and for the final
// result a caller (e.g. cmd/miniml_run) prints after a run. This is not the
// human-oriented debug pretty-printing §1 excludes from scope -- it is the
// one piece of value formatting the language's own 'println' builtin
// requires to produce any output at all.
func FormatVal(v Val) string {
	switch val := v.(type) {
	case IntVal:
		return strconv.FormatInt(val.Value, 10)
	case UnitVal:
		return "()"
	case TupleVal:
		parts := make([]string, len(val.Values))
		for i, sub := range val.Values {
			parts[i] = FormatVal(sub)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case ClosureVal:
		return "<closure>"
	case BuiltinVal:
		return fmt.Sprintf("<builtin %s>", val.Op)
	default:
		return fmt.Sprintf("%v", val)
	}
}
