package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sanjarbek17/MedAI/internal/config"
	"github.com/Sanjarbek17/MedAI/internal/dispatch"
	"github.com/Sanjarbek17/MedAI/internal/models"
	"github.com/Sanjarbek17/MedAI/internal/session"
)

type nopSender struct{}

func (nopSender) Send(string, any) error { return nil }

type fakeClassifier struct {
	preds []models.Prediction
}

func (f *fakeClassifier) Classify(context.Context, string, io.Reader) ([]models.Prediction, error) {
	return f.preds, nil
}

func newTestServer(t *testing.T, cl *fakeClassifier) (*Server, *dispatch.Dispatcher) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := dispatch.New(logger)
	cfg := config.ServerConfig{
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 10 << 20,
	}
	if cl == nil {
		return NewServer(cfg, logger, d, http.NotFoundHandler(), nil, nil), d
	}
	return NewServer(cfg, logger, d, http.NotFoundHandler(), cl, nil), d
}

func doJSON(t *testing.T, s *Server, method, path string, body io.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		out = nil
	}
	return rec, out
}

func TestSystemStatus(t *testing.T) {
	s, d := newTestServer(t, nil)
	d.RegisterPatient("p1", &models.Location{}, nopSender{})
	d.RegisterDriver("d1", &models.Location{}, nopSender{})

	rec, body := doJSON(t, s, "GET", "/api/system/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "online", body["system_status"])
	assert.EqualValues(t, 1, body["active_patients"])
	assert.EqualValues(t, 1, body["active_drivers"])
}

func TestActorStatusLookups(t *testing.T) {
	s, d := newTestServer(t, nil)
	d.RegisterPatient("p1", &models.Location{Lat: 1, Lng: 2}, nopSender{})

	rec, body := doJSON(t, s, "GET", "/api/patient/status/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", body["patient_id"])
	assert.Equal(t, string(models.PatientAvailable), body["status"])

	rec, _ = doJSON(t, s, "GET", "/api/patient/status/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doJSON(t, s, "GET", "/api/driver/status/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPendingRequestsProjection(t *testing.T) {
	s, d := newTestServer(t, nil)
	d.RegisterPatient("p1", &models.Location{}, nopSender{})
	_, err := d.CreateEmergencyRequest("p1", &models.Location{}, "general")
	require.NoError(t, err)

	rec, body := doJSON(t, s, "GET", "/api/driver/requests", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["total_count"])
}

func TestFleetNearbyUnconfigured(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec, _ := doJSON(t, s, "GET", "/api/fleet/nearby?lat=0&lng=0", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAcceptsImages(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body, contentType := multipartBody(t, "scan.png", []byte("fake png bytes"))

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	name, _ := out["filename"].(string)
	require.True(t, strings.HasSuffix(name, ".png"))

	if _, err := os.Stat(filepath.Join(s.cfg.UploadDir, name)); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}
}

func TestUploadRejectsBadExtension(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body, contentType := multipartBody(t, "notes.txt", []byte("hello"))

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassifyUnavailableWithoutClassifier(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body, contentType := multipartBody(t, "scan.png", []byte("img"))

	req := httptest.NewRequest("POST", "/chest", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClassifyEndpointShape(t *testing.T) {
	cl := &fakeClassifier{preds: []models.Prediction{
		{Label: "COVID-19", Confidence: 0.87},
		{Label: "Normal", Confidence: 0.08},
		{Label: "Pneumonia", Confidence: 0.05},
	}}
	s, _ := newTestServer(t, cl)
	body, contentType := multipartBody(t, "scan.jpg", []byte("img"))

	req := httptest.NewRequest("POST", "/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Success    bool       `json:"success"`
		Prediction prediction `json:"prediction"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, "COVID-19", out.Prediction.Class)
	assert.Equal(t, 87, out.Prediction.Confidence)
	assert.Equal(t, 87, out.Prediction.Covid)
	assert.Equal(t, 8, out.Prediction.Normal)
	assert.Equal(t, 5, out.Prediction.Pneumonia)
}

func TestPredictRequiresFilename(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec, _ := doJSON(t, s, "POST", "/predict", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

var _ session.Sender = nopSender{}
