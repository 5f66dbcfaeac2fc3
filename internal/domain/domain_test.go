package domain

import (
	"testing"

	"github.com/pushkindt/pushkind-crawlers/internal/core"
)

func TestParseAmountUnits(t *testing.T) {
	cases := []struct {
		in         string
		wantAmount float64
		wantUnits  string
	}{
		{"/100 г", 100.0, "г"},
		{"0,5 кг", 0.5, "кг"},
		{"", 1.0, "шт"},
		{"abc", 1.0, "шт"},
		{"250мл", 250.0, "мл"},
		{"5%", 5.0, "%"},
	}

	for _, tc := range cases {
		gotAmount, gotUnits := ParseAmountUnits(tc.in)
		if gotAmount != tc.wantAmount || gotUnits != tc.wantUnits {
			t.Errorf("ParseAmountUnits(%q) = (%v, %q), want (%v, %q)",
				tc.in, gotAmount, gotUnits, tc.wantAmount, tc.wantUnits)
		}
	}
}

func TestBuildProductRejectsEmptyIdentifiers(t *testing.T) {
	cases := []RawProduct{
		{SKU: "", Name: "n", Price: "1", URL: "http://x", AmountUnits: "1 шт"},
		{SKU: "s", Name: "", Price: "1", URL: "http://x", AmountUnits: "1 шт"},
		{SKU: "s", Name: "n", Price: "1", URL: "", AmountUnits: "1 шт"},
	}
	for i, raw := range cases {
		if _, err := BuildProduct(1, raw); err == nil {
			t.Errorf("case %d: expected a validation error, got none", i)
		}
	}
}

func TestBuildProductRejectsNonPositivePrice(t *testing.T) {
	raw := RawProduct{SKU: "s", Name: "n", Price: "0", URL: "http://x", AmountUnits: "1 шт"}
	if _, err := BuildProduct(1, raw); err == nil {
		t.Fatalf("expected a validation error for zero price")
	}
}

func TestBuildProductLocaleTolerantPrice(t *testing.T) {
	raw := RawProduct{SKU: "s", Name: "n", Price: "1 234,50", URL: "http://x", AmountUnits: "1 шт"}
	p, err := BuildProduct(7, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Price != 1234.50 {
		t.Errorf("price = %v, want 1234.50", p.Price)
	}
	if p.CrawlerID != 7 {
		t.Errorf("crawler id = %v, want 7", p.CrawlerID)
	}
	if p.CategoryAssignmentSource != core.CategoryAssignmentAutomatic {
		t.Errorf("new products must start as Automatic assignment source")
	}
}

func TestBuildProductVariantURLSuffix(t *testing.T) {
	raw := RawProduct{SKU: "S1", Name: "n", Price: "1", URL: "http://x/y#S1", AmountUnits: "1 шт"}
	p, err := BuildProduct(1, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.URL != "http://x/y#S1" {
		t.Errorf("url = %q, want variant-suffixed url preserved verbatim", p.URL)
	}
}
