package secd_test

import (
	"strings"
	"testing"

	"minivm.dev/miniml/pkg/secd"
)

// TestInstructionRoundTrip exercises §8's round-trip property: decoding the
// text Format produces for an instruction always yields that instruction
// back, for every Instr variant this package can emit.
func TestInstructionRoundTrip(t *testing.T) {
	cases := []secd.Instr{
		secd.IHalt{},
		secd.IFail{},
		secd.IPop{N: 3},
		secd.IConst{Value: secd.UnitVal{}},
		secd.IConst{Value: secd.IntVal{Value: -7}},
		secd.IAccess{N: 2},
		secd.IClosure{Label: "lambda_0"},
		secd.IClosures{Labels: []string{"arm_0", "arm_1", "arm_2"}},
		secd.IFocus{K: 1},
		secd.IApply{},
		secd.IReturn{},
		secd.IBuiltin{Op: secd.Println},
		secd.IBuiltin{Op: secd.NthOp},
		secd.IBinary{Op: secd.Add},
		secd.IBinary{Op: secd.Lnd},
		secd.IUnary{Op: secd.Neg},
		secd.IUnary{Op: secd.Lnot},
		secd.IBranch{Op: secd.Br, Label: "done"},
		secd.IBranch{Op: secd.BrFalse, Label: "else_0"},
		secd.IPushEnv{},
		secd.IMakeTuple{N: 4},
		secd.ILabel{Name: "main"},
	}

	for _, want := range cases {
		text := secd.Format(want)
		dec := secd.NewDecoder(strings.NewReader(text))
		got, err := dec.Decode()
		if err != nil {
			t.Fatalf("Format(%#v) = %q, failed to decode: %s", want, text, err)
		}
		if len(got) != 1 || got[0] != want {
			t.Fatalf("round trip mismatch for %#v: text=%q got=%#v", want, text, got)
		}
	}
}

func TestFormatProgramAndDecodeWholeStream(t *testing.T) {
	prog := []secd.Instr{
		secd.ILabel{Name: "main"},
		secd.IConst{Value: secd.IntVal{Value: 1}},
		secd.IConst{Value: secd.IntVal{Value: 2}},
		secd.IBinary{Op: secd.Add},
		secd.IHalt{},
	}

	text := secd.FormatProgram(prog)
	dec := secd.NewDecoder(strings.NewReader(text))
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("failed to decode formatted program: %s", err)
	}
	if len(got) != len(prog) {
		t.Fatalf("expected %d instructions back, got %d", len(prog), len(got))
	}
	for i := range prog {
		if got[i] != prog[i] {
			t.Fatalf("instruction %d mismatch: want %#v got %#v", i, prog[i], got[i])
		}
	}
}

func TestDecodeSkipsComments(t *testing.T) {
	text := "# a leading comment\nmain:\nconst 1\n# trailing\nhalt\n"
	dec := secd.NewDecoder(strings.NewReader(text))
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("unexpected decode error: %s", err)
	}
	want := []secd.Instr{
		secd.ILabel{Name: "main"},
		secd.IConst{Value: secd.IntVal{Value: 1}},
		secd.IHalt{},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d instructions, got %d: %#v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("instruction %d mismatch: want %#v got %#v", i, want[i], got[i])
		}
	}
}

func TestDecodeRejectsUnknownOpcode(t *testing.T) {
	dec := secd.NewDecoder(strings.NewReader("frobnicate 1\n"))
	if _, err := dec.Decode(); err == nil {
		t.Fatal("expected an error for an unrecognized instruction")
	}
}
