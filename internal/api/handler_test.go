package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/azure/brand-analytics/internal/account"
	"github.com/azure/brand-analytics/internal/classifier"
	"github.com/azure/brand-analytics/internal/config"
	"github.com/azure/brand-analytics/internal/metrics"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/reconcile"
	"github.com/azure/brand-analytics/internal/sentiment"
	"github.com/azure/brand-analytics/internal/session"
	"github.com/azure/brand-analytics/internal/storage"
	"github.com/azure/brand-analytics/internal/topics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockNotifier is a mock implementation of the notification interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendReport(ctx context.Context, report *models.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockNotifier) Channels() []string {
	args := m.Called()
	channels, _ := args.Get(0).([]string)
	return channels
}

const netflixCSV = `id,text,created_at,likes,retweets
1,I love the #stranger finale,2024-03-01T10:00:00Z,10,2
2,the finale was the best,2024-03-01T11:00:00Z,4,1
`

const disneyCSV = `id,text,created_at,likes,retweets
1,worst queue ever #parks,2024-03-02T10:00:00Z,1,0
`

func newTestRouter(t *testing.T, notifier *MockNotifier) *mux.Router {
	t.Helper()

	cfg := &config.Config{NumTopics: 5, TimeZone: "UTC"}
	mem := storage.NewMemoryStorage()
	engine := topics.NewEngine(nil, time.Second, nil)
	accounts := account.NewService(cfg, mem, engine, sentiment.NewClassifier(nil, time.Second))
	sessions := session.NewStore(mem, "brandsData")

	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	h := NewHandler(accounts, sessions, notifier, engine.Local(), cfg.NumTopics)
	return h.Router(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

func do(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-csv", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func rawUpload(filename, content string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/upload-csv?filename="+filename, strings.NewReader(content))
	req.Header.Set("Content-Type", "text/csv")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &MockNotifier{})

	rec := do(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestDashboard_NoData(t *testing.T) {
	router := newTestRouter(t, &MockNotifier{})

	for _, path := range []string{"/api/dashboard", "/api/comparison"} {
		rec := do(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)

		var resp errorResponse
		decode(t, rec, &resp)
		assert.Equal(t, "/upload", resp.Redirect)
		assert.Equal(t, "no_data", resp.State)
	}
}

func TestUploadFlow(t *testing.T) {
	router := newTestRouter(t, &MockNotifier{})

	rec := do(router, multipartUpload(t, "netflix.csv", netflixCSV))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded uploadResponse
	decode(t, rec, &uploaded)
	assert.Equal(t, models.Brand{ID: "netflix", Name: "Netflix"}, uploaded.Brand)
	assert.Equal(t, 2, uploaded.Valid)
	assert.Equal(t, "single", uploaded.Mode)
	assert.True(t, strings.HasPrefix(uploaded.ArchiveKey, account.ArchivePrefix))

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/comparison", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not enough data to compare")

	rec = do(router, rawUpload("disney.csv", disneyCSV))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &uploaded)
	assert.Equal(t, "comparison", uploaded.Mode)
	assert.Equal(t, 2, uploaded.Accounts)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var dash dashboardResponse
	decode(t, rec, &dash)
	assert.Equal(t, reconcile.ModeComparison, dash.Mode)
	require.Len(t, dash.Primary, 2)
	assert.Equal(t, "netflix", dash.Primary[0].ID)
	assert.Equal(t, 100.0, dash.Primary[0].Sentiment.PositivePct)
	assert.Equal(t, 100.0, dash.Primary[1].Sentiment.NegativePct)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/comparison", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cmp reconcile.Comparison
	decode(t, rec, &cmp)
	require.Len(t, cmp.Metrics, 4)
	assert.Equal(t, "unknown", cmp.Metrics[0].Leader)
	assert.Equal(t, "Netflix", cmp.Metrics[1].Leader)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/brands", nil))
	assert.JSONEq(t, `{"brands":[{"id":"netflix","name":"Netflix"},{"id":"disney","name":"Disney"}]}`, rec.Body.String())

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats account.Metrics
	decode(t, rec, &stats)
	assert.Equal(t, 2, stats.TotalUploads)
	assert.Equal(t, 3, stats.TotalPosts)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "brand_analytics_session_accounts 2")

	rec = do(router, httptest.NewRequest(http.MethodDelete, "/api/session", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_Errors(t *testing.T) {
	router := newTestRouter(t, &MockNotifier{})

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{
			name:   "Binary file",
			req:    multipartUpload(t, "logo.csv", "\x89PNG\r\n\x1a\n0000000000000000"),
			status: http.StatusUnsupportedMediaType,
		},
		{
			name:   "No file and no filename",
			req:    httptest.NewRequest(http.MethodPost, "/api/upload-csv", strings.NewReader(netflixCSV)),
			status: http.StatusBadRequest,
		},
		{
			name:   "Wrong method",
			req:    httptest.NewRequest(http.MethodGet, "/api/upload-csv", nil),
			status: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, tt.req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, &MockNotifier{})

	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/api/upload-csv"},
		{method: http.MethodPost, path: "/api/dashboard"},
		{method: http.MethodGet, path: "/api/session"},
		{method: http.MethodPost, path: "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(router, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

			var resp errorResponse
			decode(t, rec, &resp)
			assert.Contains(t, resp.Error, tt.method)
		})
	}

	rec := do(router, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_SessionFull(t *testing.T) {
	router := newTestRouter(t, &MockNotifier{})

	for _, name := range []string{"a.csv", "b.csv", "c.csv", "d.csv", "e.csv"} {
		rec := do(router, rawUpload(name, netflixCSV))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(router, rawUpload("f.csv", netflixCSV))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, rawUpload("a.csv", disneyCSV))
	assert.Equal(t, http.StatusCreated, rec.Code, "re-uploading a brand replaces it")
}

func TestSendReport(t *testing.T) {
	t.Run("No channels", func(t *testing.T) {
		notifier := &MockNotifier{}
		notifier.On("Channels").Return(nil)

		rec := do(newTestRouter(t, notifier), httptest.NewRequest(http.MethodPost, "/api/report", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Sends current view", func(t *testing.T) {
		notifier := &MockNotifier{}
		notifier.On("Channels").Return([]string{"teams"})
		notifier.On("SendReport", mock.Anything, mock.MatchedBy(func(r *models.Report) bool {
			return r.Mode == "single" && len(r.Brands) == 1 && r.Period == "daily"
		})).Return(nil)

		router := newTestRouter(t, notifier)
		require.Equal(t, http.StatusCreated, do(router, rawUpload("netflix.csv", netflixCSV)).Code)

		rec := do(router, httptest.NewRequest(http.MethodPost, "/api/report?period=daily", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		notifier.AssertExpectations(t)
	})

	t.Run("No data", func(t *testing.T) {
		notifier := &MockNotifier{}
		notifier.On("Channels").Return([]string{"email"})

		rec := do(newTestRouter(t, notifier), httptest.NewRequest(http.MethodPost, "/api/report", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		notifier.AssertNotCalled(t, "SendReport", mock.Anything, mock.Anything)
	})
}

func TestClassifierEndpoints(t *testing.T) {
	router := newTestRouter(t, &MockNotifier{})

	body, err := json.Marshal(classifier.SentimentRequest{Texts: []string{"love it", "awful", "tuesday"}})
	require.NoError(t, err)
	rec := do(router, httptest.NewRequest(http.MethodPost, "/api/sentiment", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var sentiments classifier.SentimentResponse
	decode(t, rec, &sentiments)
	assert.Equal(t, []classifier.SentimentLabel{{Label: "positive"}, {Label: "negative"}, {Label: "neutral"}}, sentiments.Sentiments)

	body, err = json.Marshal(classifier.TopicsRequest{Texts: []string{
		"Dragons season finale tonight was brilliant",
		"Dragons season finale broke records",
	}})
	require.NoError(t, err)
	rec = do(router, httptest.NewRequest(http.MethodPost, "/api/topics", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var found classifier.TopicsResponse
	decode(t, rec, &found)
	require.Len(t, found.Topics, 1)
	assert.Equal(t, "Streaming Content", found.Topics[0].Label)

	rec = do(router, httptest.NewRequest(http.MethodPost, "/api/topics", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
