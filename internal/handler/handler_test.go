package handler

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog-service/internal/audit"
	"catalog-service/internal/catalog"
	"catalog-service/pkg/config"
	"catalog-service/prometheus"
)

func TestMain(m *testing.M) {
	prometheus.InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "handler_test"}})
	os.Exit(m.Run())
}

func newContext(t *testing.T, method, target string, body io.Reader, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("logger", zap.NewNop())
	return c, rec
}

func TestValidate_RejectsBadPayload(t *testing.T) {
	cv := NewValidator()

	err := cv.Validate(&ManufacturerRequest{Name: "Nestle", Email: "not-an-email"})
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)

	require.NoError(t, cv.Validate(&ManufacturerRequest{Name: "Nestle", Email: "ops@nestle.example"}))
	require.NoError(t, cv.Validate(&ManufacturerRequest{Name: "Nestle"}))
}

func TestFail_RendersMessageAndDetails(t *testing.T) {
	c, rec := newContext(t, http.MethodGet, "/", nil, "")

	err := fail(c, catalog.Conflict("brand %q already exists", "Milo").
		WithDetail("blocking_entries", []string{"70G"}))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"brand \"Milo\" already exists","details":{"blocking_entries":["70G"]}}`, rec.Body.String())
}

func TestFail_WrapsUntypedAsInternal(t *testing.T) {
	c, rec := newContext(t, http.MethodGet, "/", nil, "")

	require.NoError(t, fail(c, errors.New("boom")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestPathID(t *testing.T) {
	want := uuid.New()
	c, _ := newContext(t, http.MethodGet, "/", nil, "")
	c.SetParamNames("id")
	c.SetParamValues(want.String())

	got, err := pathID(c)
	require.NoError(t, err)
	require.Equal(t, want, got)

	c, _ = newContext(t, http.MethodGet, "/", nil, "")
	c.SetParamNames("id")
	c.SetParamValues("nope")

	_, err = pathID(c)
	require.Error(t, err)
	require.Equal(t, catalog.ErrCodeBadRequest, catalog.AsError(err).Code)
	require.Contains(t, err.Error(), `invalid id "nope"`)
}

func TestPagination_ClampsInputs(t *testing.T) {
	tests := []struct {
		query  string
		page   int
		limit  int
		offset int
	}{
		{"", 1, 20, 0},
		{"?page=3&limit=50", 3, 50, 100},
		{"?page=-2", 1, 20, 0},
		{"?limit=0", 1, 20, 0},
		{"?limit=1000", 1, 100, 0},
		{"?page=abc&limit=xyz", 1, 20, 0},
	}
	for _, tt := range tests {
		c, _ := newContext(t, http.MethodGet, "/"+tt.query, nil, "")
		page, limit, offset := pagination(c)
		require.Equal(t, tt.page, page, "query %q", tt.query)
		require.Equal(t, tt.limit, limit, "query %q", tt.query)
		require.Equal(t, tt.offset, offset, "query %q", tt.query)
	}
}

func TestActor_DefaultsToZeroWhenUnauthenticated(t *testing.T) {
	c, _ := newContext(t, http.MethodGet, "/", nil, "")
	require.Zero(t, actor(c))

	c.Set("user_id", uint(7))
	require.Equal(t, uint(7), actor(c))
}

func TestManufacturerGet_InvalidIDFailsBeforeLookup(t *testing.T) {
	h := NewManufacturerHandler(nil, nil, audit.NewLogRecorder(zap.NewNop()))
	c, rec := newContext(t, http.MethodGet, "/", nil, "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid id")
}

func TestManufacturerCreate_ValidationFailure(t *testing.T) {
	h := NewManufacturerHandler(nil, nil, audit.NewLogRecorder(zap.NewNop()))
	body := strings.NewReader(`{"email":"nope"}`)
	c, _ := newContext(t, http.MethodPost, "/", body, echo.MIMEApplicationJSON)

	err := h.Create(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestManufacturerCreate_BlankNameAfterNormalization(t *testing.T) {
	h := NewManufacturerHandler(nil, nil, audit.NewLogRecorder(zap.NewNop()))
	body := strings.NewReader(`{"name":"   "}`)
	c, rec := newContext(t, http.MethodPost, "/", body, echo.MIMEApplicationJSON)

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "name cannot be empty")
}

func TestManufacturerCreate_MalformedJSON(t *testing.T) {
	h := NewManufacturerHandler(nil, nil, audit.NewLogRecorder(zap.NewNop()))
	body := strings.NewReader(`{"name":`)
	c, rec := newContext(t, http.MethodPost, "/", body, echo.MIMEApplicationJSON)

	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Invalid request data"}`, rec.Body.String())
}
