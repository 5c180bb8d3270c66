package shared

import (
	"net/http"
	"strconv"
)

type Pagination struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	return Pagination{
		Limit:  ParseLimit(r, defaultLimit, maxLimit),
		Offset: queryInt(r, "offset", 0, 0),
	}
}

// ParseLimit reads ?limit, falling back to defaultLimit for missing or
// non-positive values and capping at maxLimit.
func ParseLimit(r *http.Request, defaultLimit, maxLimit int) int {
	limit := queryInt(r, "limit", defaultLimit, 1)
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func queryInt(r *http.Request, key string, fallback, minimum int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < minimum {
		return fallback
	}
	return v
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
