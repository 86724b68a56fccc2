package stats

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := Summary{Mean: 5, Min: 2, Max: 9, Std: 2}
	if s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
}

func TestSummarize_SingleValue(t *testing.T) {
	s, err := Summarize([]float64{42})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Mean != 42 || s.Min != 42 || s.Max != 42 || s.Std != 0 {
		t.Fatalf("got %+v", s)
	}
}

func TestSummarize_Seq16(t *testing.T) {
	vals := make([]float64, 16)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	s, err := Summarize(vals)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Mean != 8.5 || s.Min != 1 || s.Max != 16 {
		t.Fatalf("got %+v", s)
	}
	// population variance of 1..n is (n^2-1)/12
	if want := math.Sqrt(255.0 / 12); math.Abs(s.Std-want) > 1e-12 {
		t.Fatalf("std=%v want %v", s.Std, want)
	}
}

func TestEmpty(t *testing.T) {
	if _, err := Summarize(nil); err != ErrEmptySample {
		t.Fatalf("Summarize(nil) err=%v", err)
	}
	if _, err := Compute([]float64{}, Mean); err != ErrEmptySample {
		t.Fatalf("Compute(empty) err=%v", err)
	}
}

func TestCompute_Subset(t *testing.T) {
	m, err := Compute([]float64{3, 1, 2}, Max, Min)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(m) != 2 || m[Max] != 3 || m[Min] != 1 {
		t.Fatalf("got %v", m)
	}
	if _, err := Compute([]float64{1}, Kind(99)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"mean": Mean, "MIN": Min, " max ": Max, "stddev": Std} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("median"); err == nil {
		t.Fatal("expected error for median")
	}
	if Std.String() != "std" || Kind(9).String() != "Kind(9)" {
		t.Fatalf("String: %q %q", Std.String(), Kind(9).String())
	}
}
