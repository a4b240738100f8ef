package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Geethss/Student-perfomance-Analyser/internal/models"
	"github.com/Geethss/Student-perfomance-Analyser/internal/services"
)

var (
	analyzeInstance *services.AnalyzeFunction
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("AnalyzePerformance", handleAnalyzePerformance)
}

// main is required by the Go Functions Framework.
func main() {}

// handleAnalyzePerformance is the HTTP handler the UI calls.
func handleAnalyzePerformance(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		analyzeInstance, initErr = services.NewAnalyzeFunction()
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := analyzeInstance.Process(r.Context(), &req)
	if err != nil {
		var qa *models.QuotaOrAuthError
		if errors.As(err, &qa) {
			http.Error(w, "Bad Gateway: model authentication or quota failure", http.StatusBadGateway)
			return
		}
		http.Error(w, "Internal Server Error: analysis failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
