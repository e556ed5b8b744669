package catalog

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	csv := "Ticker,CompanyName\n7984,Kokuyo\n6758,Sony Group\n"

	entries, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Code != "7984" || entries[0].Name != "Kokuyo" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if got := entries[1].Symbol(".T"); got != "6758.T" {
		t.Errorf("symbol = %q, want 6758.T", got)
	}
}

func TestParseMissingRequiredColumn(t *testing.T) {
	csv := "Ticker,Sector\n7984,Office\n"

	if _, err := Parse(strings.NewReader(csv)); err == nil {
		t.Fatal("expected error for missing CompanyName column")
	}
}

func TestParseSkipsBlankRows(t *testing.T) {
	csv := "Ticker,CompanyName\n7984,Kokuyo\n,\n6758,\n9432,NTT\n"

	entries, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after skipping blanks, got %d", len(entries))
	}
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	csv := "ticker,companyname\n7984,Kokuyo\n"

	entries, err := Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestNamesByCode(t *testing.T) {
	names := NamesByCode([]Entry{{Code: "7984", Name: "Kokuyo"}})
	if names["7984"] != "Kokuyo" {
		t.Errorf("names = %v", names)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.csv"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
