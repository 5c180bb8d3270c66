package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"absensi/internal/domain/attendance"
	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
	"absensi/internal/platform/config"
)

func TestAdminTokenGatesEmployeeDirectory(t *testing.T) {
	h := newHarness(t)

	adminToken := h.login("admin", "password123")
	claims, err := auth.ParseToken(testSecret, adminToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.Equal(t, "ADM001", claims.EmployeeID)

	resp, env := h.do(http.MethodGet, "/api/employees", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	employees := decode[[]employee.Employee](t, env)
	assert.Len(t, employees, 2)

	employeeToken := h.login("budi", "secret123")
	resp, env = h.do(http.MethodGet, "/api/employees", employeeToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", env.code())

	resp, env = h.do(http.MethodGet, "/api/employees", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", env.code())

	resp, env = h.do(http.MethodGet, "/api/employees", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_token", env.code())
}

func TestLoginAndProfile(t *testing.T) {
	h := newHarness(t)

	resp, env := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "budi", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", env.code())

	resp, env = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ghost", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", env.code())

	resp, env = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "budi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())

	token := h.login("budi", "secret123")
	resp, env = h.do(http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[struct {
		Employee employee.Employee `json:"employee"`
	}](t, env)
	assert.Equal(t, "EMP001", profile.Employee.EmployeeID)
	assert.Equal(t, auth.RoleEmployee, profile.Employee.Role)
	assert.NotContains(t, string(env.Data), "password")

	resp, env = h.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "logout successful", env.Message)
}

func TestEmployeeManagement(t *testing.T) {
	h := newHarness(t)
	token := h.login("admin", "password123")

	create := map[string]string{
		"name":       "Sari Wulandari",
		"username":   "sari",
		"password":   "secret123",
		"position":   "Engineer",
		"department": "IT",
		"email":      "sari@example.com",
	}
	resp, env := h.do(http.MethodPost, "/api/employees", token, create)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%+v", env.Error)
	created := decode[employee.Employee](t, env)
	assert.Equal(t, "EMP002", created.EmployeeID)
	assert.Equal(t, auth.RoleEmployee, created.Role)

	resp, env = h.do(http.MethodPost, "/api/employees", token, create)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "username_taken", env.code())

	resp, env = h.do(http.MethodPost, "/api/employees", token, map[string]string{"name": "No Username"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())

	resp, env = h.do(http.MethodPost, "/api/employees", token, map[string]string{
		"name": "Bad Role", "username": "badrole", "password": "secret123",
		"position": "Staff", "department": "Ops", "role": "owner",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())

	resp, env = h.do(http.MethodPut, "/api/employees/EMP002", token, map[string]string{
		"name": "Sari W.", "username": "sari", "position": "Lead Engineer", "department": "IT",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	assert.Equal(t, "Lead Engineer", decode[employee.Employee](t, env).Position)

	// Password survives an update that omits it.
	h.login("sari", "secret123")

	resp, env = h.do(http.MethodDelete, "/api/employees/ADM001", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "protected_admin", env.code())

	resp, _ = h.do(http.MethodDelete, "/api/employees/EMP002", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = h.do(http.MethodGet, "/api/employees/EMP002", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "employee_not_found", env.code())

	resp, env = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "sari", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", env.code())
}

func TestCheckInCheckOutFlow(t *testing.T) {
	h := newHarness(t)
	token := h.login("budi", "secret123")

	resp, env := h.do(http.MethodGet, "/api/attendance/today", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	today := decode[attendance.TodayStatus](t, env)
	assert.Nil(t, today.Attendance)
	assert.True(t, today.CanCheckIn)
	assert.False(t, today.CanCheckOut)

	resp, env = h.do(http.MethodPost, "/api/attendance/checkout", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "not_checked_in", env.code())

	resp, env = h.do(http.MethodPost, "/api/attendance/checkin", token, map[string]string{
		"notes": "A", "photo": pngDataURI(t), "location": "-6.2,106.8",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%+v", env.Error)
	checkIn := decode[attendance.Summary](t, env)
	assert.Equal(t, attendance.StatusPresent, checkIn.Status)
	assert.Equal(t, "2024-05-10", checkIn.Date)
	require.True(t, strings.HasPrefix(checkIn.Photo, "/uploads/attendance/EMP001_check_in_"), checkIn.Photo)

	photo, err := h.ts.Client().Get(h.ts.URL + checkIn.Photo)
	require.NoError(t, err)
	body, _ := io.ReadAll(photo.Body)
	photo.Body.Close()
	assert.Equal(t, http.StatusOK, photo.StatusCode)
	assert.Equal(t, "image/jpeg", photo.Header.Get("Content-Type"))
	assert.NotEmpty(t, body)

	resp, env = h.do(http.MethodPost, "/api/attendance/checkin", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "already_checked_in", env.code())

	resp, env = h.do(http.MethodGet, "/api/attendance/today", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	today = decode[attendance.TodayStatus](t, env)
	assert.False(t, today.CanCheckIn)
	assert.True(t, today.CanCheckOut)

	h.clock.Set(time.Date(2024, 5, 10, 17, 5, 0, 0, wib))
	resp, env = h.do(http.MethodPost, "/api/attendance/checkout", token, map[string]string{"notes": "B"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	assert.Equal(t, attendance.EventCheckOut, decode[attendance.Summary](t, env).Type)

	resp, env = h.do(http.MethodPost, "/api/attendance/checkout", token, map[string]string{"notes": "C"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "already_checked_out", env.code())

	resp, env = h.do(http.MethodGet, "/api/attendance/history?limit=5", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]attendance.Record](t, env)
	require.Len(t, history, 1)
	assert.Equal(t, "A | B", history[0].Notes)
	assert.NotNil(t, history[0].CheckOut)

	resp, env = h.do(http.MethodGet, "/api/attendance/today", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	today = decode[attendance.TodayStatus](t, env)
	assert.False(t, today.CanCheckIn)
	assert.False(t, today.CanCheckOut)
}

func TestLateCheckInAndBadPayload(t *testing.T) {
	h := newHarness(t)
	token := h.login("budi", "secret123")

	resp, env := h.do(http.MethodPost, "/api/attendance/checkin", token, map[string]string{"notes": strings.Repeat("x", 1001)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())

	h.clock.Set(time.Date(2024, 5, 10, 9, 1, 0, 0, wib))
	resp, env = h.do(http.MethodPost, "/api/attendance/checkin", token, map[string]string{"photo": "data:image/png;base64,%%%"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%+v", env.Error)
	summary := decode[attendance.Summary](t, env)
	assert.Equal(t, attendance.StatusLate, summary.Status)
	assert.Empty(t, summary.Photo, "undecodable photo must not block the check-in")
}

func TestAdminAttendanceViews(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login("admin", "password123")
	employeeToken := h.login("budi", "secret123")

	resp, _ := h.do(http.MethodPost, "/api/attendance/checkin", employeeToken, map[string]string{"notes": "on site"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := h.do(http.MethodGet, "/api/attendance/today-all", employeeToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", env.code())

	resp, env = h.do(http.MethodGet, "/api/attendance/today-all", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]attendance.Record](t, env)
	require.Len(t, rows, 1)
	assert.Equal(t, "EMP001", rows[0].EmployeeID)

	resp, env = h.do(http.MethodGet, "/api/attendance/all?start_date=2024-05-01&end_date=2024-05-31", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]attendance.Record](t, env), 1)

	resp, env = h.do(http.MethodGet, "/api/attendance/all?start_date=2024-13-01", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())

	resp, env = h.do(http.MethodGet, "/api/attendance/all?start_date=2024-05-31&end_date=2024-05-01", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())

	resp, env = h.do(http.MethodGet, "/api/attendance/summary?start_date=2024-05-10&end_date=2024-05-10", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[struct {
		Counts map[string]int `json:"counts"`
		Total  int            `json:"total"`
	}](t, env)
	assert.Equal(t, 1, summary.Counts["hadir"])
	assert.Equal(t, 0, summary.Counts["alpha"])
	assert.Equal(t, 1, summary.Total)
}

func TestAttendanceExport(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login("admin", "password123")
	employeeToken := h.login("budi", "secret123")
	resp, _ := h.do(http.MethodPost, "/api/attendance/checkin", employeeToken, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, h.ts.URL+"/api/attendance/export?start_date=2024-05-01&end_date=2024-05-31", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	export, err := h.ts.Client().Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(export.Body)
	export.Body.Close()
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, export.StatusCode)
	assert.Equal(t, "text/csv", export.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="attendance_2024-05-01_2024-05-31.csv"`, export.Header.Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "2024-05-10,EMP001,Employee EMP001,07:45:00,"), lines[1])

	resp, env := h.do(http.MethodGet, "/api/attendance/export?format=doc", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())
}

func TestAbsenceSweepEndpoint(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login("admin", "password123")

	resp, env := h.do(http.MethodPost, "/api/attendance/absences/sweep", adminToken, map[string]string{"date": "2024-05-10"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_sweep_date", env.code())

	resp, env = h.do(http.MethodPost, "/api/attendance/absences/sweep", adminToken, map[string]string{"date": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", env.code())

	resp, env = h.do(http.MethodPost, "/api/attendance/absences/sweep", adminToken, map[string]string{"date": "2024-05-09"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%+v", env.Error)
	result := decode[struct {
		Marked int `json:"marked"`
	}](t, env)
	assert.Equal(t, 2, result.Marked)

	resp, env = h.do(http.MethodPost, "/api/attendance/absences/sweep", adminToken, map[string]string{"date": "2024-05-09"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decode[struct {
		Marked int `json:"marked"`
	}](t, env).Marked)

	employeeToken := h.login("budi", "secret123")
	resp, env = h.do(http.MethodGet, "/api/attendance/history", employeeToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]attendance.Record](t, env)
	require.Len(t, history, 1)
	assert.Equal(t, attendance.StatusAbsent, history[0].Status)
	assert.Nil(t, history[0].CheckIn)

	resp, _ = h.do(http.MethodPost, "/api/attendance/absences/sweep", employeeToken, map[string]string{"date": "2024-05-08"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealthEndpointsAndFallbacks(t *testing.T) {
	h := newHarness(t)

	healthResp, err := h.ts.Client().Get(h.ts.URL + "/api/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(healthResp.Body).Decode(&health))
	healthResp.Body.Close()
	require.Equal(t, http.StatusOK, healthResp.StatusCode)
	assert.Equal(t, "OK", health["status"])
	assert.NotEmpty(t, health["message"])
	assert.NotEmpty(t, health["timestamp"])
	assert.NotContains(t, health, "data")
	assert.NotEmpty(t, healthResp.Header.Get("X-Request-ID"))

	resp, env := h.do(http.MethodGet, "/api/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = h.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", env.code())

	resp, _ = h.do(http.MethodGet, "/api/audit/events", h.login("admin", "password123"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "audit routes need a configured audit log")

	metricsResp, err := h.ts.Client().Get(h.ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
	assert.Contains(t, string(body), `absensi_http_requests_total{method="GET",route="/api/health",status="200"}`)
}

func TestSoftDeletedEmployeeHistoryStaysQueryable(t *testing.T) {
	h := newHarness(t)
	adminToken := h.login("admin", "password123")
	employeeToken := h.login("budi", "secret123")

	resp, _ := h.do(http.MethodPost, "/api/attendance/checkin", employeeToken, map[string]string{"notes": "last day"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = h.do(http.MethodDelete, "/api/employees/EMP001", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := h.do(http.MethodGet, "/api/employees", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, emp := range decode[[]employee.Employee](t, env) {
		assert.NotEqual(t, "EMP001", emp.EmployeeID)
	}

	resp, env = h.do(http.MethodGet, "/api/attendance/today", employeeToken, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "account_inactive", env.code())

	for _, path := range []string{
		"/api/attendance/all?start_date=2024-05-10&end_date=2024-05-10",
		"/api/attendance/today-all",
	} {
		resp, env = h.do(http.MethodGet, path, adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		rows := decode[[]attendance.Record](t, env)
		require.Len(t, rows, 1, path)
		assert.Equal(t, "EMP001", rows[0].EmployeeID, path)
		assert.Equal(t, "Employee EMP001", rows[0].EmployeeName, path)
		assert.Equal(t, "last day", rows[0].Notes, path)
	}
}

func TestAuthenticatedAPIIsRateLimitedPerEmployee(t *testing.T) {
	h := newHarnessWith(t, func(cfg *config.Config) { cfg.APIRateLimit = 3 })
	budi := h.login("budi", "secret123")
	admin := h.login("admin", "password123")

	for i := 0; i < 3; i++ {
		resp, env := h.do(http.MethodGet, "/api/attendance/today", budi, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d: %+v", i, env.Error)
	}
	resp, env := h.do(http.MethodGet, "/api/attendance/today", budi, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", env.code())
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp, _ = h.do(http.MethodGet, "/api/attendance/today", admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "the budget is per employee")
}

func TestCORSAllowsOnlyConfiguredOrigin(t *testing.T) {
	allowOrigin := func(h *harness, origin string) string {
		t.Helper()
		req, err := http.NewRequest(http.MethodOptions, h.ts.URL+"/api/auth/login", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := h.ts.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.Header.Get("Access-Control-Allow-Origin")
	}

	h := newHarnessWith(t, func(cfg *config.Config) { cfg.ClientURL = "http://localhost:5173/" })
	assert.Equal(t, "http://localhost:5173", allowOrigin(h, "http://localhost:5173"))
	assert.Empty(t, allowOrigin(h, "http://localhost:3000"))

	h = newHarnessWith(t, func(cfg *config.Config) { cfg.ClientURL = "" })
	assert.Empty(t, allowOrigin(h, "http://localhost:5173"))
	assert.Empty(t, allowOrigin(h, "http://localhost:3000"))
}
