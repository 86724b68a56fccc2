package catalog

import (
	"errors"
	"testing"
)

func TestLookup(t *testing.T) {
	c := SoilGrids()
	cases := map[string]string{
		"soc_0-5cm_mean":        "dg/kg",
		"ocs_0-30cm":            "t/ha",
		"bdod_100-200cm_Q0.95":  "cg/cm³",
		"cfvo_5-15cm_Q0.05":     "cm3/dm3 (vol‰)",
		"phh2o_0-5cm_mean":      "pHx10",
		"nitrogen_0-5cm_uncert": "cg/kg",
	}
	for layer, want := range cases {
		p, err := c.Lookup(layer)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", layer, err)
		}
		if p.Unit == nil || *p.Unit != want {
			t.Fatalf("Lookup(%q) unit=%v want %q", layer, p.Unit, want)
		}
	}
}

func TestLookup_NilUnit(t *testing.T) {
	p, err := SoilGrids().Lookup("wrb_MostProbable")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Unit != nil || p.UnitString() != "" {
		t.Fatalf("wrb unit=%v", p.Unit)
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := SoilGrids().Lookup("foo_0-5cm_mean")
	if !errors.Is(err, ErrUnknownProduct) {
		t.Fatalf("err=%v", err)
	}
}

func TestProducts_Sorted(t *testing.T) {
	ps := SoilGrids().Products()
	if len(ps) != 12 {
		t.Fatalf("got %d products", len(ps))
	}
	for i := 1; i < len(ps); i++ {
		if ps[i-1].Code >= ps[i].Code {
			t.Fatalf("not sorted at %d: %s %s", i, ps[i-1].Code, ps[i].Code)
		}
	}
}

func TestParseLayer(t *testing.T) {
	cases := []struct {
		in   string
		want Layer
	}{
		{"soc_0-5cm_mean", Layer{"soc", "0-5cm", "mean"}},
		{"ocs_0-30cm", Layer{"ocs", "0-30cm", ""}},
		{"bdod_100-200cm_Q0.95", Layer{"bdod", "100-200cm", "Q0.95"}},
		{"wrb_MostProbable", Layer{"wrb", "", "MostProbable"}},
		{"soc", Layer{"soc", "", ""}},
	}
	for _, tc := range cases {
		got, err := ParseLayer(tc.in)
		if err != nil {
			t.Fatalf("ParseLayer(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseLayer(%q)=%+v want %+v", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Fatalf("String()=%q want %q", got.String(), tc.in)
		}
	}
	if _, err := ParseLayer(""); err == nil {
		t.Fatal("expected error for empty id")
	}
	l, _ := ParseLayer("ocs_0-30cm")
	if got := l.WithQuantile(Uncertainty).String(); got != "ocs_0-30cm_uncertainty" {
		t.Fatalf("WithQuantile=%q", got)
	}
}
