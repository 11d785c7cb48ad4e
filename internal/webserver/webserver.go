package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/patchmon/patchmon/internal/patchmon"
	"github.com/patchmon/patchmon/internal/store"
	"github.com/patchmon/patchmon/internal/store/models"
)

// WebServer exposes the detection trigger and the alert triage API.
type WebServer struct {
	Monitor *patchmon.Monitor
	config  *WebserverConfig
	Logger  *logrus.Logger
}

// NewWebServer initializes a new WebServer.
func NewWebServer(monitor *patchmon.Monitor, config *WebserverConfig, logger *logrus.Logger) *WebServer {
	return &WebServer{
		Monitor: monitor,
		config:  config,
		Logger:  logger,
	}
}

// StartWebServer starts the HTTP server.
func StartWebServer(ctx context.Context, ws *WebServer) (*http.Server, error) {
	router := ws.InitRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   ws.config.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		Debug:            false,
	}

	handler := cors.New(corsOptions).Handler(router)

	server := &http.Server{
		Addr:    ws.config.ListenTo,
		Handler: handler,
	}

	go func() {
		ws.Logger.Infof("Server starting on %s", ws.config.ListenTo)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.Logger.Errorf("ListenAndServe(): %v", err)
		}
	}()

	return server, nil
}

// InitRouter initializes the HTTP routes.
func (ws *WebServer) InitRouter() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/detect/run", ws.handleRunDetection).Methods(http.MethodPost)
	api.HandleFunc("/alerts", ws.handleGetAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}", ws.handleGetAlertDetail).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}", ws.handleUpdateAlertStatus).Methods(http.MethodPatch)
	api.HandleFunc("/alerts/{id}", ws.handleDeleteAlert).Methods(http.MethodDelete)
	api.HandleFunc("/stats", ws.handleGetStats).Methods(http.MethodGet)

	return r
}

// handleRunDetection handles POST /api/detect/run: one synchronous
// detection pass.
func (ws *WebServer) handleRunDetection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := ws.Monitor.RunDetection(ctx)
	if err != nil {
		ws.Logger.WithError(err).Error("Detection pass failed")
		writeErrorResponse(w, "Detection pass failed", http.StatusInternalServerError)
		return
	}

	writeSuccessResponse(w, "Detection pass complete", summary)
}

// handleGetAlerts handles GET /api/alerts with optional status, priority and
// asset filters plus pagination.
func (ws *WebServer) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(query.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 50
	}

	filter := models.AlertFilter{
		Status:   models.Status(query.Get("status")),
		Priority: models.Priority(query.Get("priority")),
		AssetID:  query.Get("asset"),
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		writeErrorResponse(w, "Unknown status filter", http.StatusBadRequest)
		return
	}

	alerts, total, err := ws.Monitor.ListAlertsPaginated(ctx, filter, page, perPage)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to load paginated alerts")
		writeErrorResponse(w, "Failed to retrieve alerts", http.StatusInternalServerError)
		return
	}

	totalPages := (total + perPage - 1) / perPage

	response := models.AlertsResponse{
		Alerts:     alerts,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	writeSuccessResponse(w, "Alerts retrieved successfully", response)
}

// handleGetAlertDetail handles GET /api/alerts/{id}.
func (ws *WebServer) handleGetAlertDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	alert, err := ws.Monitor.GetAlert(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			writeErrorResponse(w, "Alert not found", http.StatusNotFound)
			return
		}
		ws.Logger.Errorf("Failed to get alert %s: %v", id, err)
		writeErrorResponse(w, "Failed to retrieve alert", http.StatusInternalServerError)
		return
	}

	writeSuccessResponse(w, "Alert detail retrieved successfully", models.AlertDetailResponse{Alert: alert})
}

// statusUpdateRequest is the PATCH /api/alerts/{id} payload.
type statusUpdateRequest struct {
	Status     models.Status `json:"status"`
	Notes      string        `json:"notes"`
	ResolvedBy string        `json:"resolved_by"`
}

// handleUpdateAlertStatus handles PATCH /api/alerts/{id}: the operator-owned
// status/notes mutation, stamping resolution metadata on Resolved.
func (ws *WebServer) handleUpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.Logger.Errorf("Invalid JSON payload: %v", err)
		writeErrorResponse(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.Status == "" {
		writeErrorResponse(w, "Status field is required", http.StatusBadRequest)
		return
	}

	alert, err := ws.Monitor.SetAlertStatus(ctx, id, req.Status, req.Notes, req.ResolvedBy)
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			writeErrorResponse(w, "Alert not found", http.StatusNotFound)
			return
		}
		ws.Logger.Errorf("Failed to update alert %s: %v", id, err)
		writeErrorResponse(w, "Failed to update alert", http.StatusBadRequest)
		return
	}

	writeSuccessResponse(w, "Alert updated successfully", models.AlertDetailResponse{Alert: alert})
}

// handleDeleteAlert handles DELETE /api/alerts/{id}.
func (ws *WebServer) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := ws.Monitor.DeleteAlert(ctx, id); err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			writeErrorResponse(w, "Alert not found", http.StatusNotFound)
			return
		}
		ws.Logger.Errorf("Failed to delete alert %s: %v", id, err)
		writeErrorResponse(w, "Failed to delete alert", http.StatusInternalServerError)
		return
	}

	writeSuccessResponse(w, "Alert deleted successfully", nil)
}

// handleGetStats handles GET /api/stats.
func (ws *WebServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := ws.Monitor.GetStats(ctx)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to retrieve stats")
		writeErrorResponse(w, "Failed to retrieve statistics", http.StatusInternalServerError)
		return
	}

	writeSuccessResponse(w, "Statistics retrieved successfully", stats)
}
