package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filing_analyst/pkg/core/apperr"
)

func makeFilingDirs(t *testing.T, root string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := os.MkdirAll(filepath.Join(root, "AAPL", "10-K", id), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

func rawIDs(filings []Filing) []string {
	out := make([]string, len(filings))
	for i, f := range filings {
		out[i] = f.ID.Raw
	}
	return out
}

func TestLocateMostRecentFirst(t *testing.T) {
	root := t.TempDir()
	makeFilingDirs(t, root,
		"0000320193-20-000096",
		"0000320193-22-000108",
		"0000320193-21-000105",
		"0000320193-23-000106",
	)
	loc := NewFilingLocator(root, 25)

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"0000320193-23-000106", "0000320193-22-000108"}},
		{3, []string{"0000320193-23-000106", "0000320193-22-000108", "0000320193-21-000105"}},
		{10, []string{"0000320193-23-000106", "0000320193-22-000108", "0000320193-21-000105", "0000320193-20-000096"}},
	}

	for _, tt := range tests {
		filings, err := loc.Locate("AAPL", "10-K", tt.n)
		if err != nil {
			t.Fatalf("Locate(%d) failed: %v", tt.n, err)
		}
		got := rawIDs(filings)
		if len(got) != len(tt.want) {
			t.Fatalf("Locate(%d) = %v, want %v", tt.n, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Locate(%d)[%d] = %s, want %s", tt.n, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLocateExcludesYearsAtOrAfterCutoff(t *testing.T) {
	root := t.TempDir()
	makeFilingDirs(t, root,
		"0000320193-98-000105", // 1998 would sort as 2098
		"0000320193-25-000079",
		"0000320193-24-000123",
		"0000320193-23-000106",
	)

	filings, err := NewFilingLocator(root, 25).Locate("AAPL", "10-K", 10)
	if err != nil {
		t.Fatal(err)
	}
	got := rawIDs(filings)
	if len(got) != 2 || got[0] != "0000320193-24-000123" || got[1] != "0000320193-23-000106" {
		t.Errorf("unexpected selection %v", got)
	}
	if filings[0].Year != "2024" {
		t.Errorf("expected year 2024, got %s", filings[0].Year)
	}
	if filings[0].Path != filepath.Join(root, "AAPL", "10-K", "0000320193-24-000123", PrimaryDocument) {
		t.Errorf("unexpected document path %s", filings[0].Path)
	}
}

func TestLocateSkipsFilesAndMalformedNames(t *testing.T) {
	root := t.TempDir()
	makeFilingDirs(t, root, "0000320193-23-000106", "scratch", "0000320193-x1-000001")
	if err := os.WriteFile(filepath.Join(root, "AAPL", "10-K", "0000320193-22-000108"), []byte("not a dir"), 0644); err != nil {
		t.Fatal(err)
	}

	filings, err := NewFilingLocator(root, 25).Locate("AAPL", "10-K", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := rawIDs(filings); len(got) != 1 || got[0] != "0000320193-23-000106" {
		t.Errorf("unexpected selection %v", got)
	}
}

func TestLocateMissingDirectory(t *testing.T) {
	_, err := NewFilingLocator(t.TempDir(), 25).Locate("MSFT", "10-K", 3)
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
	if !errors.Is(err, apperr.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestParseFilingID(t *testing.T) {
	id, err := ParseFilingID("0000320193-21-000105")
	if err != nil {
		t.Fatal(err)
	}
	if id.CIK != "0000320193" || id.YY != 21 || id.Sequence != "000105" || id.Year() != 2021 {
		t.Errorf("unexpected parse %+v", id)
	}

	for _, bad := range []string{"", "0000320193", "0000320193-2021-000105", "a-b-c", "0000320193--000105"} {
		if _, err := ParseFilingID(bad); err == nil {
			t.Errorf("ParseFilingID(%q) should fail", bad)
		}
	}
}
