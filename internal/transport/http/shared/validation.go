package shared

import (
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"absensi/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: reason})
}

func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func (v *Validator) MaxLen(field, value string, limit int) {
	if utf8.RuneCountInString(strings.TrimSpace(value)) > limit {
		v.Add(field, "must be at most "+itoa(limit)+" characters")
	}
}

func (v *Validator) MinLen(field, value string, limit int) {
	if value != "" && utf8.RuneCountInString(value) < limit {
		v.Add(field, "must be at least "+itoa(limit)+" characters")
	}
}

func (v *Validator) Email(field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if addr, err := mail.ParseAddress(value); err != nil || addr.Address != value {
		v.Add(field, "must be a valid email address")
	}
}

func (v *Validator) Enum(field, value string, allowed []string) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return
	}
	for _, candidate := range allowed {
		if normalized == strings.ToLower(candidate) {
			return
		}
	}
	v.Add(field, "must be one of "+strings.Join(allowed, ", "))
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// Reject writes a 400 listing every issue and reports whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	message := "validation failed"
	if len(issues) > 0 {
		message = issues[0].Field + " " + issues[0].Reason
	}
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", message, map[string]any{"fields": issues}, requestID)
}
