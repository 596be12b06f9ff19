package normalize

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/golang-sql/civil"

	"reviewetl/internal/table"
)

func rawTable(t *testing.T, rows ...table.Row) *table.Table {
	t.Helper()
	cols := []table.Column{
		{Name: "product_id", Kind: table.String},
		{Name: "rating", Kind: table.String},
		{Name: "review_date", Kind: table.String},
		{Name: "review_text", Kind: table.String},
		{Name: "customer_id", Kind: table.String},
	}
	tbl, err := table.New(cols, rows)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestNormalize_Scenario(t *testing.T) {
	t.Parallel()

	raw := rawTable(t,
		table.Row{"abc", "5", "2024-01-01", nil, "u1"},
		table.Row{"abc", "bad", "2024-01-01", "great", "ANONYMOUS_USER"},
	)
	got, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	wantNames := []string{"product_id", "rating", "review_date", "review_text", "customer_id", "product_id_upper"}
	if !reflect.DeepEqual(got.Names(), wantNames) {
		t.Fatalf("columns = %v, want %v", got.Names(), wantNames)
	}
	d := civil.Date{Year: 2024, Month: 1, Day: 1}
	want := []table.Row{
		{"abc", int64(5), d, "No review text", "u1", "ABC"},
		{"abc", int64(0), d, "great", "ANONYMOUS_USER", "ABC"},
	}
	if !reflect.DeepEqual(got.Rows(), want) {
		t.Fatalf("rows = %#v\nwant %#v", got.Rows(), want)
	}

	kinds := map[string]table.Kind{"rating": table.Int, "review_date": table.Date, "review_text": table.String}
	for name, k := range kinds {
		if c, _ := got.Column(name); c.Kind != k {
			t.Errorf("%s kind = %v, want %v", name, c.Kind, k)
		}
	}

	// Input is untouched.
	if v := raw.Value(0, "review_text"); v != nil {
		t.Fatalf("raw mutated: review_text = %#v", v)
	}
}

func TestNormalize_RowRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		in        table.Row
		rating    int64
		date      any
		text      any
		upperWant any
	}{
		{"all_null", table.Row{nil, nil, nil, nil, nil}, 0, nil, "No review text", nil},
		{"fraction_truncates", table.Row{"p", " 4.7 ", "2024-02-29", "", "c"}, 4, civil.Date{Year: 2024, Month: 2, Day: 29}, "", "P"},
		{"bad_date_is_null", table.Row{"p", "3", "2024-1-5", "x", "c"}, 3, nil, "x", "P"},
		{"impossible_date_is_null", table.Row{"p", "3", "2023-02-29", "x", "c"}, 3, nil, "x", "P"},
		{"date_with_time_is_null", table.Row{"p", "3", "2024-01-01 10:00", "x", "c"}, 3, nil, "x", "P"},
		{"overflow_defaults", table.Row{"p", "99999999999", nil, "x", "c"}, 0, nil, "x", "P"},
		{"unicode_upper", table.Row{"straße-ñ", "1", nil, "x", "c"}, 1, nil, "x", "STRASSE-Ñ"},
		{"text_not_trimmed", table.Row{"p", "2", nil, "  spaced  ", "c"}, 2, nil, "  spaced  ", "P"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			got, err := Normalize(rawTable(t, c.in), Options{})
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if v := got.Value(0, "rating"); v != c.rating {
				t.Errorf("rating = %#v, want %d", v, c.rating)
			}
			if v := got.Value(0, "review_date"); v != c.date {
				t.Errorf("review_date = %#v, want %#v", v, c.date)
			}
			if v := got.Value(0, "review_text"); v != c.text {
				t.Errorf("review_text = %#v, want %#v", v, c.text)
			}
			if v := got.Value(0, "product_id_upper"); v != c.upperWant {
				t.Errorf("product_id_upper = %#v, want %#v", v, c.upperWant)
			}
		})
	}
}

func TestNormalize_TypedInputs(t *testing.T) {
	t.Parallel()

	cols := []table.Column{
		{Name: "product_id", Kind: table.Int},
		{Name: "rating", Kind: table.Float},
		{Name: "review_date", Kind: table.String},
		{Name: "review_text", Kind: table.Int},
	}
	raw := table.MustNew(cols, []table.Row{{int64(42), 4.9, nil, int64(7)}})
	got, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := table.Row{int64(42), int64(4), nil, "7", "42"}
	if !reflect.DeepEqual(got.Row(0), want) {
		t.Fatalf("row = %#v, want %#v", got.Row(0), want)
	}
}

func TestNormalize_MissingColumn(t *testing.T) {
	t.Parallel()

	raw := table.MustNew([]table.Column{{Name: "product_id"}, {Name: "rating"}}, nil)
	_, err := Normalize(raw, Options{})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
}

func TestNormalize_ReplacesExistingUpperColumn(t *testing.T) {
	t.Parallel()

	cols := []table.Column{
		{Name: "product_id"}, {Name: "rating"}, {Name: "review_date"},
		{Name: "review_text"}, {Name: "product_id_upper"}, {Name: "extra"},
	}
	raw := table.MustNew(cols, []table.Row{{"ab", "1", nil, nil, "stale", "e"}})
	got, err := Normalize(raw, Options{})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Width() != 6 {
		t.Fatalf("width = %d, want 6", got.Width())
	}
	if v := got.Value(0, "product_id_upper"); v != "AB" {
		t.Fatalf("product_id_upper = %#v", v)
	}
	if v := got.Value(0, "extra"); v != "e" {
		t.Fatalf("extra = %#v", v)
	}
}

func TestNormalize_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	var rows []table.Row
	for i := 0; i < 10_000; i++ {
		rows = append(rows, table.Row{
			fmt.Sprintf("p%d", i%37),
			fmt.Sprint(i % 7),
			fmt.Sprintf("2024-03-%02d", i%31+1),
			nil,
			fmt.Sprintf("c%d", i%11),
		})
	}
	raw := rawTable(t, rows...)

	seq, err := Normalize(raw, Options{Workers: 1, ChunkSize: len(rows)})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := Normalize(raw, Options{Workers: 8, ChunkSize: 97})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if par.Len() != raw.Len() {
		t.Fatalf("cardinality %d, want %d", par.Len(), raw.Len())
	}
	if !reflect.DeepEqual(seq.Rows(), par.Rows()) {
		t.Fatal("parallel output differs from sequential")
	}
}

func TestParseInt32(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"5", 5, true},
		{"+5", 5, true},
		{"-5", -5, true},
		{"\t 3 \n", 3, true},
		{"4.", 4, true},
		{".5", 0, true},
		{"-4.9", -4, true},
		{"2147483647", 2147483647, true},
		{"-2147483648", -2147483648, true},
		{"2147483648", 0, false},
		{"-2147483649", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"1e3", 0, false},
		{"4.x", 0, false},
		{"five", 0, false},
	}
	for _, c := range cases {
		got, ok := parseInt32(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("parseInt32(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCastInt_NonString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want int64
	}{
		{int64(3), 3},
		{int64(1) << 32, 0},
		{2.99, 2},
		{-2.99, -2},
		{1e20, 2147483647},
		{true, 1},
		{false, 0},
	}
	for _, c := range cases {
		got, ok := castInt(c.in)
		if !ok || got != c.want {
			t.Errorf("castInt(%#v) = (%d, %v), want %d", c.in, got, ok, c.want)
		}
	}
}
