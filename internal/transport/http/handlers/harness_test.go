package handlers_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"absensi/internal/app/server"
	"absensi/internal/domain/attendance"
	"absensi/internal/domain/auth"
	"absensi/internal/domain/employee"
	"absensi/internal/platform/config"
	"absensi/internal/platform/metrics"
	"absensi/internal/platform/photo"
	"absensi/internal/testutil"
)

const testSecret = "test-secret"

var wib = time.FixedZone("WIB", 7*60*60)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"requestId"`
}

func (e envelope) code() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

type harness struct {
	t      *testing.T
	ts     *httptest.Server
	store  *testutil.MemStore
	clock  *testutil.Clock
	engine *attendance.Service
}

// newHarness seeds ADM001 (admin/password123) and EMP001 (budi/secret123) on
// 2024-05-01 and leaves the clock at 2024-05-10 07:45 WIB.
func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

func newHarnessWith(t *testing.T, tweak func(*config.Config)) *harness {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 5, 1, 9, 0, 0, 0, wib))
	store := testutil.NewMemStore()
	store.Now = clock.Now
	testutil.AddEmployee(t, store, "ADM001", "admin", "password123", auth.RoleAdmin)
	testutil.AddEmployee(t, store, "EMP001", "budi", "secret123", auth.RoleEmployee)
	clock.Set(time.Date(2024, 5, 10, 7, 45, 0, 0, wib))

	employees := employee.NewService(store)
	authService := auth.NewService(employees, testSecret, time.Hour)
	uploadDir := t.TempDir()
	engine := attendance.NewService(store,
		attendance.WithPhotoStore(photo.NewStore(uploadDir, "/uploads/attendance", 1<<20)),
		attendance.WithEmployeeDirectory(employees),
		attendance.WithLocation(wib),
		attendance.WithClock(clock.Now),
	)

	cfg := config.Default()
	cfg.JWTSecret = testSecret
	cfg.Timezone = "Asia/Jakarta"
	cfg.UploadDir = uploadDir
	cfg.PublicDir = ""
	cfg.RateLimitPerMinute = 1000
	cfg.APIRateLimit = 1000
	cfg.Environment = "test"
	if tweak != nil {
		tweak(&cfg)
	}

	router := server.NewRouter(server.Deps{
		Config:     cfg,
		Auth:       authService,
		Employees:  employees,
		Attendance: engine,
		Metrics:    metrics.New(),
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &harness{t: t, ts: ts, store: store, clock: clock, engine: engine}
}

func (h *harness) do(method, path, token string, body any) (*http.Response, envelope) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, reader)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.ts.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	var env envelope
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func (h *harness) login(username, password string) string {
	h.t.Helper()
	resp, env := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(h.t, http.StatusOK, resp.StatusCode, "login %s: %+v", username, env.Error)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(h.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(h.t, data.Token)
	return data.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
