package knowledge

import "testing"

func TestParseFilterMatches(t *testing.T) {
	tests := []struct {
		expr string
		meta Metadata
		want bool
	}{
		{`eq("year", 2023)`, Metadata{2023, "Item 1"}, true},
		{`eq("year", "2023")`, Metadata{2022, "Item 1"}, false},
		{`in("year", ["2023", "2022"])`, Metadata{2022, "Item 7"}, true},
		{`nin("type", ["Item 8"])`, Metadata{2022, "Item 8"}, false},
		{`gte("year", 2022)`, Metadata{2021, "Item 1"}, false},
		{`lt("year", 2022)`, Metadata{2021, "Item 1"}, true},
		{`and(in("year", ["2023"]), in("type", ["Item 1"]))`, Metadata{2023, "Item 1"}, true},
		{`and(in("year", ["2023"]), in("type", ["Item 1"]))`, Metadata{2023, "Item 1A"}, false},
		{`or(eq("type", "Item 7"), eq("type", 'Item 7A'))`, Metadata{2020, "Item 7A"}, true},
		{`not(eq("type", "Item 7"))`, Metadata{2020, "Item 7"}, false},
	}

	for _, tt := range tests {
		f, err := ParseFilter(tt.expr)
		if err != nil {
			t.Errorf("ParseFilter(%s): %v", tt.expr, err)
			continue
		}
		if got := f.Match(tt.meta); got != tt.want {
			t.Errorf("%s on %v = %v, want %v", tt.expr, tt.meta, got, tt.want)
		}
	}
}

func TestParseFilterNoFilter(t *testing.T) {
	for _, expr := range []string{"", "NO_FILTER", "  NO_FILTER  "} {
		f, err := ParseFilter(expr)
		if err != nil || f != nil {
			t.Errorf("ParseFilter(%q) = %v, %v; want nil, nil", expr, f, err)
		}
	}
}

func TestParseFilterRejectsBadInput(t *testing.T) {
	bad := []string{
		`eq("company", "AAPL")`,
		`eq("year", ["2023", "2022"])`,
		`in("year", ["twenty"])`,
		`like("type", "Item")`,
		`and(eq("year", 2023)`,
		`eq("type", "Item 1") extra`,
		`not(eq("year", 1), eq("year", 2))`,
	}
	for _, expr := range bad {
		if _, err := ParseFilter(expr); err == nil {
			t.Errorf("ParseFilter(%s) should fail", expr)
		}
	}
}

func TestFilterStringRoundTrip(t *testing.T) {
	f := And(YearIn(2023, 2022), TypeIn("Item 1A"))
	want := `and(in("year", [2023, 2022]), in("type", ["Item 1A"]))`
	if f.String() != want {
		t.Fatalf("String() = %s, want %s", f.String(), want)
	}

	parsed, err := ParseFilter(f.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != want {
		t.Errorf("round trip changed filter: %s", parsed.String())
	}
}

func TestAndDropsNil(t *testing.T) {
	if And(nil, nil) != nil {
		t.Errorf("And of nils should be nil")
	}
	only := YearIn(2023)
	if And(nil, only) != only {
		t.Errorf("And with one filter should return it unchanged")
	}
	if Describe(nil) != NoFilter {
		t.Errorf("Describe(nil) should be %s", NoFilter)
	}
}
