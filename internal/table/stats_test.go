package table

import (
	"errors"
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.05, 1.2},
		{0.95, 4.8},
		{1, 5},
	}
	for _, tt := range tests {
		got, err := Percentile(vals, tt.p)
		if err != nil {
			t.Fatalf("Percentile(%v): %v", tt.p, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if _, err := Percentile(nil, 0.5); !errors.Is(err, ErrNoValues) {
		t.Errorf("empty Percentile error = %v, want ErrNoValues", err)
	}
	if _, err := Percentile(vals, math.NaN()); !errors.Is(err, ErrBadPercentile) {
		t.Errorf("NaN Percentile error = %v, want ErrBadPercentile", err)
	}
}

func TestMeanMedian(t *testing.T) {
	col := NewColumn("v", KindFloat, []Cell{Float(1), Missing(), Float(2), Float(6)})

	mean, err := Mean(col)
	if err != nil || mean != 3 {
		t.Errorf("Mean = (%v, %v), want (3, nil)", mean, err)
	}
	median, err := Median(col)
	if err != nil || median != 2 {
		t.Errorf("Median = (%v, %v), want (2, nil)", median, err)
	}

	empty := NewColumn("e", KindFloat, []Cell{Missing(), Missing()})
	if _, err := Mean(empty); !errors.Is(err, ErrNoValues) {
		t.Errorf("Mean(all missing) error = %v, want ErrNoValues", err)
	}
}

func TestMode_TieBreaksOnFirstSeen(t *testing.T) {
	col := NewColumn("v", KindText, []Cell{Text("b"), Text("a"), Text("a"), Text("b"), Missing()})

	got, err := Mode(col)
	if err != nil {
		t.Fatalf("Mode: %v", err)
	}
	if s, _ := got.TextValue(); s != "b" {
		t.Errorf("Mode = %q, want %q", s, "b")
	}
}

func TestProfile(t *testing.T) {
	tbl := MustNew(
		NewColumn("a", KindInteger, []Cell{Int(1), Int(1), Missing()}),
		NewColumn("b", KindText, []Cell{Text("x"), Text("y"), Text("z")}),
	)
	prof := Profile(tbl)
	if len(prof) != 2 {
		t.Fatalf("len(Profile) = %d, want 2", len(prof))
	}
	if prof[0].Missing != 1 || prof[0].Unique != 1 {
		t.Errorf("profile a = %+v", prof[0])
	}
	if prof[1].Missing != 0 || prof[1].Unique != 3 {
		t.Errorf("profile b = %+v", prof[1])
	}

	counts := MissingCounts(tbl)
	if counts["a"] != 1 || len(counts) != 1 {
		t.Errorf("MissingCounts = %v", counts)
	}
}
