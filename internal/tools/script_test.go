package tools

import (
	"context"
	"strings"
	"testing"
)

func TestCalculatorTool(t *testing.T) {
	calc := NewCalculatorTool()
	ctx := context.Background()

	cases := []struct {
		expr string
		want string
	}{
		{"2 + 2 * 10", "22"},
		{"(1500 * 15) // 3", "7500"},
		{"2 ** 10", "1024"},
	}
	for _, tc := range cases {
		out, err := calc.Execute(ctx, `{"expression": "`+tc.expr+`"}`)
		if err != nil {
			t.Errorf("eval %q failed: %v", tc.expr, err)
			continue
		}
		if out != tc.want {
			t.Errorf("eval %q = %q, want %q", tc.expr, out, tc.want)
		}
	}

	if _, err := calc.Execute(ctx, `{"expression": ""}`); err == nil {
		t.Error("expected error for empty expression")
	}
	if _, err := calc.Execute(ctx, `{"expression": "not math ("}`); err == nil {
		t.Error("expected error for invalid expression")
	}
}

func TestScriptToolPrintAndResult(t *testing.T) {
	script := NewScriptTool()
	ctx := context.Background()

	code := "def total(xs):\n" +
		"  t = 0\n" +
		"  for x in xs:\n" +
		"    t += x\n" +
		"  return t\n" +
		"t = total([1, 2, 3])\n" +
		"print(t)\n" +
		"result = t * 2"
	input := `{"code": "` + strings.ReplaceAll(code, "\n", `\n`) + `"}`

	out, err := script.Execute(ctx, input)
	if err != nil {
		t.Fatalf("script failed: %v", err)
	}
	if !strings.Contains(out, "6") {
		t.Errorf("print output missing: %q", out)
	}
	if !strings.Contains(out, "result = 12") {
		t.Errorf("result value missing: %q", out)
	}
}

func TestScriptToolStepBudget(t *testing.T) {
	script := NewScriptTool()
	ctx := context.Background()

	// An unbounded loop must hit the step budget, not hang.
	code := "def spin():\n" +
		"  x = 0\n" +
		"  for i in range(100000000):\n" +
		"    x += 1\n" +
		"  return x\n" +
		"result = spin()"
	input := `{"code": "` + strings.ReplaceAll(code, "\n", `\n`) + `"}`
	if _, err := script.Execute(ctx, input); err == nil {
		t.Error("expected step budget error for runaway script")
	}
}

func TestScriptToolSyntaxError(t *testing.T) {
	script := NewScriptTool()
	if _, err := script.Execute(context.Background(), `{"code": "def broken(:"}`); err == nil {
		t.Error("expected error for invalid syntax")
	}
}
