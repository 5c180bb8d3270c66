package shared

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLimit(t *testing.T) {
	tests := map[string]int{
		"/":           30,
		"/?limit=5":   5,
		"/?limit=0":   30,
		"/?limit=-2":  30,
		"/?limit=abc": 30,
		"/?limit=999": 366,
	}
	for target, want := range tests {
		if got := ParseLimit(httptest.NewRequest(http.MethodGet, target, nil), 30, 366); got != want {
			t.Fatalf("%s: expected %d, got %d", target, want, got)
		}
	}
}

func TestValidatorDates(t *testing.T) {
	v := NewValidator()
	start := v.Date("start_date", "2024-05-10")
	end := v.Date("end_date", "2024-05-01")
	v.DateOrder("start_date", start, "end_date", end)
	if got := len(v.Issues()); got != 2 {
		t.Fatalf("expected 2 ordering issues, got %+v", v.Issues())
	}

	v = NewValidator()
	if v.Date("start_date", "10/05/2024") != "" || !v.HasIssues() {
		t.Fatalf("expected malformed date to be rejected")
	}
}

func TestValidatorRejectWritesFieldList(t *testing.T) {
	v := NewValidator()
	v.Required("username", " ")
	v.Email("email", "not-an-email")
	v.Enum("role", "manager", []string{"admin", "employee"})

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-1") {
		t.Fatal("expected reject")
	}
	body := rec.Body.String()
	if rec.Code != http.StatusBadRequest || !strings.Contains(body, `"field":"email"`) || !strings.Contains(body, `"field":"username"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, body)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Notes string `json:"notes"`
	}

	rec := httptest.NewRecorder()
	if !DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dst, true, "") {
		t.Fatal("empty body should be accepted when allowed")
	}

	rec = httptest.NewRecorder()
	if DecodeJSON(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")), &dst, false, "") || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}
