package expr

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		src     string
		wantErr bool
	}{
		{"x * 2 + 1", false},
		{"-x", false},
		{"!(x > 3)", false},
		{`upper(trim(x)) + "?"`, false},
		{"clamp(x, 0, 10)", false},
		{"pow(x, 2) % 7", false},
		{"", true},
		{"x.y", true},
		{"x[0]", true},
		{"[]int{1}", true},
		{"func() {}", true},
		{"abs", true},
		{"fmt.Println(x)", true},
		{"float64(x)", true},
		{"abs(x, 1)", true},
		{"x << 2", true},
		{"&x", true},
		{"'c'", true},
		{"unknown(x)", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Check(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check(%q) error = %v, wantErr %v", tt.src, err, tt.wantErr)
			}
		})
	}
}

func TestCheck_ErrorShape(t *testing.T) {
	if _, err := Check("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("blank error = %v, want ErrEmpty", err)
	}

	_, err := Check("x + y")
	var re *RejectError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RejectError", err)
	}
	if re.Offset != 4 {
		t.Errorf("Offset = %d, want 4", re.Offset)
	}

	long := make([]byte, MaxSourceLen+1)
	for i := range long {
		long[i] = '1'
	}
	if _, err := Check(string(long)); !errors.As(err, &re) {
		t.Errorf("long expression error = %v", err)
	}
}

func compile(t *testing.T, src string, in Input) *Program {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := Compile(ctx, src, in)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return p
}

func TestProgram_Number(t *testing.T) {
	tests := []struct {
		src  string
		x    float64
		want interface{}
	}{
		{"x * 2", 3, 6.0},
		{"sqrt(x)", 16, 4.0},
		{"round(x)", 2.5, 2.0},
		{"clamp(x, 0, 10)", 42, 10.0},
		{"x > 1", 2, true},
		{"x == 5", 5, true},
		{"!(x > 1)", 2, false},
		{"str(x)", 3, "3.0"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := compile(t, tt.src, NumberInput).Eval(tt.x)
			if err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%v) = %#v, want %#v", tt.x, got, tt.want)
			}
		})
	}
}

func TestProgram_String(t *testing.T) {
	tests := []struct {
		src  string
		x    string
		want interface{}
	}{
		{`upper(x)`, "abc", "ABC"},
		{`title(x)`, "hello wide world", "Hello Wide World"},
		{`replace(x, "-", " ")`, "a-b-c", "a b c"},
		{`contains(lower(x), "go")`, "GoLang", true},
		{`num(x) + 1`, "$1,000", 1001.0},
		{`length(x)`, "héllo", 5.0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := compile(t, tt.src, StringInput).Eval(tt.x)
			if err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %#v, want %#v", tt.x, got, tt.want)
			}
		})
	}
}

func TestProgram_Failures(t *testing.T) {
	p := compile(t, "num(x)", StringInput)
	if _, err := p.Eval("not a number"); err == nil {
		t.Error("num on text should fail")
	}
	if _, err := p.Eval(1.5); err == nil {
		t.Error("wrong input type should fail")
	}

	ctx := context.Background()
	if _, err := Compile(ctx, "upper(x)", NumberInput); err == nil {
		t.Error("upper on a number should not compile")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(Builtins) {
		t.Fatalf("len(Names) = %d, want %d", len(names), len(Builtins))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted at %d: %q > %q", i, names[i-1], names[i])
		}
	}
}
