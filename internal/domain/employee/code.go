package employee

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	EmployeeCodePrefix = "EMP"
	AdminCodePrefix    = "ADM"
	codeDigits         = 3
)

var codePattern = regexp.MustCompile(`^(EMP|ADM)([0-9]{3,})$`)

func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// NextEmployeeCode increments the numeric suffix of the highest existing EMP code.
// An empty highest code yields EMP001.
func NextEmployeeCode(highest string) (string, error) {
	if highest == "" {
		return fmt.Sprintf("%s%0*d", EmployeeCodePrefix, codeDigits, 1), nil
	}
	m := codePattern.FindStringSubmatch(highest)
	if m == nil || m[1] != EmployeeCodePrefix {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, highest)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, highest)
	}
	return fmt.Sprintf("%s%0*d", EmployeeCodePrefix, max(codeDigits, len(m[2])), n+1), nil
}
