package barcode

import "testing"

func strPtr(s string) *string { return &s }

func assertPtrEq(t *testing.T, name string, got *string, want *string) {
	t.Helper()
	switch {
	case got == nil && want == nil:
		return
	case got == nil || want == nil:
		t.Fatalf("%s: got %v, want %v", name, derefOrNil(got), derefOrNil(want))
	case *got != *want:
		t.Fatalf("%s: got %q, want %q", name, *got, *want)
	}
}

func derefOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// S1 — Simple barcode.
func TestParseSimpleBarcode(t *testing.T) {
	p := Parse("abc123")
	if p.Formatted != "abc123" {
		t.Fatalf("Formatted = %q, want \"abc123\"", p.Formatted)
	}
	assertPtrEq(t, "Stowage", p.Stowage, strPtr("abc123"))
	assertPtrEq(t, "FlightNo", p.FlightNo, nil)
	assertPtrEq(t, "OrderDate", p.OrderDate, nil)
}

// S2 — Parent with children and tilde.
func TestParseParentWithChildrenAndTilde(t *testing.T) {
	raw := "STW-FL123-05.11.24-CLS-L1-G1-B1-CC1-DES1-ACT-AA12-3~BB34-5"
	p := Parse(raw)

	wantParent := "STW-FL123-05.11.24-CLS-L1-G1-B1-CC1-DES1-ACT"
	wantFormatted := wantParent + " [AA12_3|BB34_5]"
	if p.Formatted != wantFormatted {
		t.Fatalf("Formatted = %q, want %q", p.Formatted, wantFormatted)
	}

	assertPtrEq(t, "Stowage", p.Stowage, strPtr("STW"))
	assertPtrEq(t, "FlightNo", p.FlightNo, strPtr("FL123"))
	assertPtrEq(t, "OrderDate", p.OrderDate, strPtr("2024-11-05"))
	assertPtrEq(t, "DACSClass", p.DACSClass, strPtr("CLS"))
	assertPtrEq(t, "Leg", p.Leg, strPtr("L1"))
	assertPtrEq(t, "Gally", p.Gally, strPtr("G1"))
	assertPtrEq(t, "BlockNo", p.BlockNo, strPtr("B1"))
	assertPtrEq(t, "ContainerCode", p.ContainerCode, strPtr("CC1"))
	assertPtrEq(t, "DES", p.DES, strPtr("DES1"))
	assertPtrEq(t, "DACSACType", p.DACSACType, strPtr("ACT"))
}

func TestParseOrderDatePivotYear(t *testing.T) {
	// yy=79 -> 2079 (pivot boundary, inclusive)
	p := Parse("X-Y-01.01.79")
	assertPtrEq(t, "OrderDate", p.OrderDate, strPtr("2079-01-01"))

	// yy=80 -> 1980
	p = Parse("X-Y-01.01.80")
	assertPtrEq(t, "OrderDate", p.OrderDate, strPtr("1980-01-01"))
}

func TestParseOrderDateMalformedYieldsNull(t *testing.T) {
	p := Parse("X-Y-not-a-date")
	assertPtrEq(t, "OrderDate", p.OrderDate, nil)
}

func TestParseNoBoundaryNoChildren(t *testing.T) {
	// Hyphens present but nothing resembling two item-qty chunks follows,
	// so there is no parent/child split: every hyphen-delimited segment
	// is positional parent data. The 3rd segment is the OrderDate slot,
	// and "CLS" does not parse as dd.mm.yy, so it comes back nil.
	p := Parse("STW-FL123-CLS")
	if p.Formatted != "STW-FL123-CLS" {
		t.Fatalf("Formatted = %q, want \"STW-FL123-CLS\"", p.Formatted)
	}
	assertPtrEq(t, "Stowage", p.Stowage, strPtr("STW"))
	assertPtrEq(t, "FlightNo", p.FlightNo, strPtr("FL123"))
	assertPtrEq(t, "OrderDate", p.OrderDate, nil)
	assertPtrEq(t, "DACSClass", p.DACSClass, nil)
}

func TestParseDropsNonMatchingChildTokens(t *testing.T) {
	// A trailing "junk" token does not match ITEM_QTY and is dropped,
	// while the two valid children before it still survive.
	raw := "P-AA12-3~BB34-5~junk"
	p := Parse(raw)
	want := "P [AA12_3|BB34_5]"
	if p.Formatted != want {
		t.Fatalf("Formatted = %q, want %q", p.Formatted, want)
	}
}

func TestParseTrailingHyphensTrimmed(t *testing.T) {
	p := Parse("STW---")
	if p.Formatted != "STW" {
		t.Fatalf("Formatted = %q, want \"STW\"", p.Formatted)
	}
}
