package table

import (
	"errors"
	"testing"

	"github.com/golang-sql/civil"
)

func TestNew_RejectsBadShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cols []Column
		rows []Row
	}{
		{"duplicate_column", []Column{{Name: "a"}, {Name: "a"}}, nil},
		{"empty_name", []Column{{Name: ""}}, nil},
		{"short_row", []Column{{Name: "a"}, {Name: "b"}}, []Row{{"x"}}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(c.cols, c.rows); err == nil {
				t.Fatalf("New(%v) expected error", c.cols)
			}
		})
	}
}

func TestLookupAndValue(t *testing.T) {
	t.Parallel()

	tb := MustNew(
		[]Column{{Name: "id", Kind: String}, {Name: "n", Kind: Int}},
		[]Row{{"a", int64(1)}, {"b", nil}},
	)
	if tb.Len() != 2 || tb.Width() != 2 {
		t.Fatalf("Len/Width = %d/%d, want 2/2", tb.Len(), tb.Width())
	}
	if got := tb.Value(0, "n"); got != int64(1) {
		t.Fatalf("Value(0,n) = %v, want 1", got)
	}
	if got := tb.Value(1, "n"); got != nil {
		t.Fatalf("Value(1,n) = %v, want nil", got)
	}
	if _, err := tb.Lookup("missing"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("Lookup(missing) err = %v, want ErrUnknownColumn", err)
	}

	// Columns returns a copy.
	cols := tb.Columns()
	cols[0].Name = "mutated"
	if tb.Names()[0] != "id" {
		t.Fatalf("schema mutated through Columns()")
	}
}

func TestFormatFloat_MatchesJVMShape(t *testing.T) {
	t.Parallel()

	cases := map[float64]string{
		2.5:               "2.5",
		100:               "100.0",
		0:                 "0.0",
		-3:                "-3.0",
		100.0 / 3:         "33.333333333333336",
		1e7:               "1.0E7",
		12345678.9:        "1.23456789E7",
		0.0001:            "1.0E-4",
		0.001:             "0.001",
		4.666666666666667: "4.666666666666667",
	}
	for in, want := range cases {
		if got := FormatFloat(in); got != want {
			t.Errorf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	d := civil.Date{Year: 2024, Month: 1, Day: 2}
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(-7), "-7"},
		{true, "true"},
		{d, "2024-01-02"},
	}
	for _, c := range cases {
		if got := Format(c.in); got != c.want {
			t.Errorf("Format(%#v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	d1 := civil.Date{Year: 2024, Month: 1, Day: 1}
	d2 := civil.Date{Year: 2024, Month: 1, Day: 2}

	cases := []struct {
		a, b any
		want int
	}{
		{"a", "b", -1},
		{"B", "a", -1}, // binary order, uppercase first
		{int64(2), int64(2), 0},
		{int64(3), 2.5, 1},
		{1.5, int64(2), -1},
		{d2, d1, 1},
		{false, true, -1},
	}
	for _, c := range cases {
		if got := Compare(c.a, c.b); got != c.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
