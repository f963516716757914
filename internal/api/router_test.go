package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/datallboy/gocol/internal/api/controllers"
	"github.com/datallboy/gocol/internal/app"
	"github.com/datallboy/gocol/internal/catalog"
	"github.com/datallboy/gocol/internal/domain"
	"github.com/datallboy/gocol/internal/infra/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDrive = "A89ECE52-7E8E-444F-BBD0-C68B76C2ECA4"
	testName  = "11032Reconco.XboxControllerTester_thvmwcgtjwwvy"
	testPath  = "/col/content/%7BA89ECE52-7E8E-444F-BBD0-C68B76C2ECA4%7D%2311032Reconco.XboxControllerTester_thvmwcgtjwwvy"
)

func newTestRouter(t *testing.T, size int) (*echo.Echo, []byte) {
	t.Helper()

	dir := t.TempDir()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, testName), data, 0644))

	cat, err := catalog.FromDir(dir, uuid.MustParse(testDrive))
	require.NoError(t, err)

	return NewRouter(app.NewContext(nil, logger.Discard()), cat), data
}

func get(e *echo.Echo, path, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMetadata(t *testing.T) {
	e, _ := newTestRouter(t, 4200)

	rec := get(e, domain.MetadataPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, controllers.ServerHeader, rec.Header().Get("Server"))

	var md domain.Metadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &md))
	require.Len(t, md.Items, 1)
	assert.Equal(t, testPath, md.Items[0].Path)
	assert.Equal(t, int64(4200), md.Items[0].Size)

	// optional isXvc stays off the wire, related media lists stay present
	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw["items"][0], "isXvc")
	assert.Contains(t, raw["items"][0], "relatedMedia")
}

func TestContentFull(t *testing.T) {
	e, data := newTestRouter(t, 4200)

	rec := get(e, testPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, controllers.ServerHeader, rec.Header().Get("Server"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
}

func TestContentProbe(t *testing.T) {
	e, data := newTestRouter(t, 4200)

	rec := get(e, testPath, "bytes=0-0")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 0-0/4200", rec.Header().Get("Content-Range"))
	assert.Equal(t, data[:1], rec.Body.Bytes())
}

func TestContentRanges(t *testing.T) {
	e, data := newTestRouter(t, 4200)

	rec := get(e, testPath, "bytes=4096-4199")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 4096-4199/4200", rec.Header().Get("Content-Range"))
	assert.Equal(t, data[4096:], rec.Body.Bytes())

	rec = get(e, testPath, "bytes=4000-")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 4000-4199/4200", rec.Header().Get("Content-Range"))
	assert.Equal(t, data[4000:], rec.Body.Bytes())

	rec = get(e, testPath, "bytes=4100-9999")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 4100-4199/4200", rec.Header().Get("Content-Range"))

	rec = get(e, testPath, "bytes=0-99999999999999999999")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 0-4199/4200", rec.Header().Get("Content-Range"))
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestContentUnsatisfiable(t *testing.T) {
	e, _ := newTestRouter(t, 4200)

	for _, h := range []string{"bytes=4200-4300", "bytes=10-5", "bytes=99999999999999999999-"} {
		rec := get(e, testPath, h)
		assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code, h)
		assert.Equal(t, "bytes */4200", rec.Header().Get("Content-Range"), h)
	}
}

func TestContentIgnoresMultiRange(t *testing.T) {
	e, data := newTestRouter(t, 100)

	rec := get(e, testPath, "bytes=0-1,5-6")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestContentErrors(t *testing.T) {
	e, _ := newTestRouter(t, 10)

	other := domain.ContentKey{DriveID: uuid.New(), Filename: testName}
	missing := domain.ContentKey{DriveID: uuid.MustParse(testDrive), Filename: "nope"}

	tests := []struct {
		path string
		code int
	}{
		{"/col/content/no-separator", http.StatusBadRequest},
		{"/col/content/not-a-uuid%23file", http.StatusBadRequest},
		{other.Path(), http.StatusNotFound},
		{missing.Path(), http.StatusNotFound},
		{"/col/content/%7BA89ECE52-7E8E-444F-BBD0-C68B76C2ECA4%7D%23..%2Fetc", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := get(e, tt.path, "")
		assert.Equal(t, tt.code, rec.Code, tt.path)
	}
}
