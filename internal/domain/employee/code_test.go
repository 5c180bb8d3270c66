package employee

import (
	"errors"
	"testing"
)

func TestNextEmployeeCode(t *testing.T) {
	tests := []struct {
		highest string
		want    string
	}{
		{"", "EMP001"},
		{"EMP001", "EMP002"},
		{"EMP003", "EMP004"},
		{"EMP099", "EMP100"},
		{"EMP999", "EMP1000"},
		{"EMP0041", "EMP0042"},
	}
	for _, tc := range tests {
		got, err := NextEmployeeCode(tc.highest)
		if err != nil {
			t.Fatalf("NextEmployeeCode(%q) error: %v", tc.highest, err)
		}
		if got != tc.want {
			t.Fatalf("NextEmployeeCode(%q) = %q, want %q", tc.highest, got, tc.want)
		}
	}
}

func TestNextEmployeeCodeRejectsForeignCodes(t *testing.T) {
	for _, highest := range []string{"ADM001", "EMP", "X12"} {
		if _, err := NextEmployeeCode(highest); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("NextEmployeeCode(%q) expected ErrInvalidCode, got %v", highest, err)
		}
	}
}

func TestValidCode(t *testing.T) {
	valid := []string{"EMP001", "ADM001", "EMP1000"}
	invalid := []string{"", "EMP01", "emp001", "EMP001 ", "1; DROP TABLE"}
	for _, code := range valid {
		if !ValidCode(code) {
			t.Fatalf("expected %q to be valid", code)
		}
	}
	for _, code := range invalid {
		if ValidCode(code) {
			t.Fatalf("expected %q to be invalid", code)
		}
	}
}
