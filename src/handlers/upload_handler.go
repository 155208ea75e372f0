// src/handlers/upload_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/salesclaro/src/config"
	"github.com/username/salesclaro/src/feed"
	"github.com/username/salesclaro/src/logger"
	"github.com/username/salesclaro/src/models"
	"github.com/username/salesclaro/src/pipeline"
	"github.com/username/salesclaro/src/utils"
)

type UploadHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewUploadHandler(orchestrator *pipeline.Orchestrator) *UploadHandler {
	return &UploadHandler{orchestrator: orchestrator}
}

// HandleUpload ingests one sales feed file (multipart field "file"), runs
// the pipeline over it and returns the full run result as JSON.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		logger.L.Warn("Invalid filter parameters", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	lines, err := feed.ReadLines(file)
	if err != nil {
		logger.L.Error("Failed to read uploaded feed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, "Could not read the uploaded file.", http.StatusBadRequest)
		return
	}

	logger.L.Info("Processing upload request", "filename", fileHeader.Filename, "lines", len(lines))
	result, err := h.orchestrator.Run(r.Context(), lines, config.Cfg.ResolveReferenceDate(), filters)
	if err != nil {
		if errors.Is(err, feed.ErrSourceRead) {
			utils.SendJSONError(w, fmt.Sprintf("Error reading feed: %v", err), http.StatusBadRequest)
			return
		}
		logger.L.Error("Internal error processing upload", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "runID", result.RunID, "error", err)
	}
}

// parseFilters reads the optional run-time filters from query parameters:
// region, min_amount, max_amount, date_from, date_to.
func parseFilters(r *http.Request) (models.FilterOptions, error) {
	var filters models.FilterOptions
	q := r.URL.Query()

	filters.Region = q.Get("region")

	if raw := q.Get("min_amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return filters, fmt.Errorf("invalid min_amount %q", raw)
		}
		filters.MinAmount = &amount
	}
	if raw := q.Get("max_amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return filters, fmt.Errorf("invalid max_amount %q", raw)
		}
		filters.MaxAmount = &amount
	}
	if raw := q.Get("date_from"); raw != "" {
		t, err := time.Parse(utils.DefaultDateFormat, raw)
		if err != nil {
			return filters, fmt.Errorf("invalid date_from %q, expected YYYY-MM-DD", raw)
		}
		filters.DateFrom = &t
	}
	if raw := q.Get("date_to"); raw != "" {
		t, err := time.Parse(utils.DefaultDateFormat, raw)
		if err != nil {
			return filters, fmt.Errorf("invalid date_to %q, expected YYYY-MM-DD", raw)
		}
		filters.DateTo = &t
	}
	return filters, nil
}
