// Package api exposes the upload, dashboard and classifier endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/azure/brand-analytics/internal/account"
	"github.com/azure/brand-analytics/internal/classifier"
	"github.com/azure/brand-analytics/internal/models"
	"github.com/azure/brand-analytics/internal/notifications"
	"github.com/azure/brand-analytics/internal/reconcile"
	"github.com/azure/brand-analytics/internal/sentiment"
	"github.com/azure/brand-analytics/internal/session"
	"github.com/azure/brand-analytics/internal/topics"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	maxUploadSize  = 32 << 20
	maxRequestSize = 4 << 20
	uploadRedirect = "/upload"
)

// Handler serves the HTTP API
type Handler struct {
	accounts  *account.Service
	sessions  *session.Store
	notifier  notifications.NotificationInterface
	topics    *topics.Engine
	numTopics int
	now       func() time.Time
}

// NewHandler creates the API handler. engine should not call back into a
// remote classifier because these endpoints may serve as one.
func NewHandler(accounts *account.Service, sessions *session.Store, notifier notifications.NotificationInterface, engine *topics.Engine, numTopics int) *Handler {
	return &Handler{
		accounts:  accounts,
		sessions:  sessions,
		notifier:  notifier,
		topics:    engine,
		numTopics: numTopics,
		now:       time.Now,
	}
}

// Router registers every route. metrics serves the Prometheus exposition.
func (h *Handler) Router(metrics http.Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.stats).Methods(http.MethodGet)
	api.HandleFunc("/upload-csv", h.uploadCSV).Methods(http.MethodPost)
	api.HandleFunc("/brands", h.brands).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.dashboard).Methods(http.MethodGet)
	api.HandleFunc("/comparison", h.comparison).Methods(http.MethodGet)
	api.HandleFunc("/session", h.resetSession).Methods(http.MethodDelete)
	api.HandleFunc("/report", h.sendReport).Methods(http.MethodPost)
	api.HandleFunc("/topics", h.extractTopics).Methods(http.MethodPost)
	api.HandleFunc("/sentiment", h.classifySentiment).Methods(http.MethodPost)

	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return router
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}

type errorResponse struct {
	Error    string `json:"error"`
	State    string `json:"state,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.accounts.GetMetrics()))
}

type uploadResponse struct {
	Brand      models.Brand `json:"brand"`
	Parsed     int          `json:"parsed"`
	Valid      int          `json:"valid"`
	ArchiveKey string       `json:"archive_key,omitempty"`
	Mode       string       `json:"mode"`
	Accounts   int          `json:"accounts"`
}

// uploadCSV accepts a multipart "file" field or a raw body named by ?filename=
func (h *Handler) uploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	filename, content, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upload, err := h.accounts.ProcessUpload(r.Context(), filename, content)
	if errors.Is(err, account.ErrBinaryUpload) {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	if err != nil {
		logrus.Errorf("Upload %s failed: %v", filename, err)
		writeError(w, http.StatusInternalServerError, "failed to process upload")
		return
	}

	view, err := h.sessions.AppendAccount(r.Context(), upload.Account)
	if errors.Is(err, session.ErrSessionFull) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		logrus.Errorf("Failed to store account %s: %v", upload.Brand.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to store account")
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Brand:      upload.Brand,
		Parsed:     upload.Parsed,
		Valid:      upload.Valid,
		ArchiveKey: upload.ArchiveKey,
		Mode:       string(view.Mode),
		Accounts:   len(view.Accounts),
	})
}

func readUpload(r *http.Request) (string, []byte, error) {
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("error reading file content: %w", err)
		}
		return header.Filename, content, nil
	}

	filename := filepath.Base(r.URL.Query().Get("filename"))
	if filename == "." || filename == "/" {
		return "", nil, errors.New("missing multipart file or filename query parameter")
	}
	content, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("error reading request body: %w", err)
	}
	return filename, content, nil
}

func (h *Handler) brands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"brands": h.sessions.Brands(),
	})
}

type dashboardResponse struct {
	Mode     reconcile.Mode   `json:"mode"`
	Primary  []models.Account `json:"primary"`
	Accounts []models.Account `json:"accounts"`
}

// view returns the current view or writes the no-data response
func (h *Handler) view(w http.ResponseWriter) (reconcile.View, bool) {
	view, err := h.sessions.View()
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Error:    err.Error(),
			State:    h.sessions.State().String(),
			Redirect: uploadRedirect,
		})
		return reconcile.View{}, false
	}
	return view, true
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dashboardResponse{
		Mode:     view.Mode,
		Primary:  view.Primary(),
		Accounts: view.Accounts,
	})
}

func (h *Handler) comparison(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w)
	if !ok {
		return
	}
	c, err := view.Comparison()
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Reset(r.Context()); err != nil {
		logrus.Errorf("Failed to reset session: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session cleared"})
}

func (h *Handler) sendReport(w http.ResponseWriter, r *http.Request) {
	if len(h.notifier.Channels()) == 0 {
		writeError(w, http.StatusBadRequest, "no notification channels configured")
		return
	}
	view, ok := h.view(w)
	if !ok {
		return
	}

	report := reconcile.NewReport(view, r.URL.Query().Get("period"), h.now().UTC())
	if err := h.notifier.SendReport(r.Context(), report); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func textPosts(texts []string) []models.Post {
	posts := make([]models.Post, 0, len(texts))
	for i, text := range texts {
		posts = append(posts, models.Post{ID: fmt.Sprintf("text_%d", i), Text: text})
	}
	return posts
}

func (h *Handler) extractTopics(w http.ResponseWriter, r *http.Request) {
	var req classifier.TopicsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.NumTopics <= 0 {
		req.NumTopics = h.numTopics
	}

	result := h.topics.ExtractTopics(r.Context(), textPosts(req.Texts), req.NumTopics)
	writeJSON(w, http.StatusOK, classifier.TopicsResponse{Topics: result})
}

func (h *Handler) classifySentiment(w http.ResponseWriter, r *http.Request) {
	var req classifier.SentimentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	labels := make([]classifier.SentimentLabel, 0, len(req.Texts))
	for _, text := range req.Texts {
		labels = append(labels, classifier.SentimentLabel{Label: sentiment.HeuristicLabel(text)})
	}
	writeJSON(w, http.StatusOK, classifier.SentimentResponse{Sentiments: labels})
}
