package ticker

import (
	"errors"
	"testing"

	"github.com/atmx/paper-ledger/internal/model"
)

func TestParse_Valid(t *testing.T) {
	tests := map[string]string{
		"AAPL":      "AAPL",
		" msft ":    "MSFT",
		"brk.b":     "BRK.B",
		"RDS-A":     "RDS-A",
		"X":         "X",
		"GOOGL1234": "GOOGL1234",
	}
	for in, want := range tests {
		got, err := Parse(in)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"1ABC",        // must start with a letter
		"AA PL",       // inner space
		"ABCDEFGHIJK", // too long
		"AAPL$",
	}
	for _, in := range tests {
		_, err := Parse(in)
		if !errors.Is(err, model.ErrInvalidTicker) {
			t.Errorf("Parse(%q): expected ErrInvalidTicker, got %v", in, err)
		}
	}
}

func TestParseAll_RejectsDuplicates(t *testing.T) {
	_, err := ParseAll([]string{"AAPL", "msft", "aapl"})
	if !errors.Is(err, model.ErrInvalidTicker) {
		t.Errorf("expected ErrInvalidTicker for duplicate, got %v", err)
	}

	got, err := ParseAll([]string{"aapl", "msft"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("unexpected result %v", got)
	}
}
