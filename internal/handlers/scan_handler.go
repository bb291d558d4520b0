package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/prabhupmb/option-trading-sub000/internal/scan"
)

// ScanHandler exposes the rescan progress tracker
type ScanHandler struct {
	tracker *scan.Tracker
}

// NewScanHandler creates a new scan handler
func NewScanHandler(tracker *scan.Tracker) *ScanHandler {
	return &ScanHandler{tracker: tracker}
}

// RegisterRoutes registers scan routes
func (h *ScanHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/scan", h.StartScan).Methods("POST")
	router.HandleFunc("/scan", h.GetProgress).Methods("GET")
}

// StartScan triggers a rescan of all signals. Starting while a scan is
// already running has no effect; either way the current progress is
// returned.
func (h *ScanHandler) StartScan(w http.ResponseWriter, r *http.Request) {
	h.tracker.Start(r.Context())
	writeJSON(w, h.tracker.Progress())
}

// GetProgress returns the current scan progress
func (h *ScanHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.tracker.Progress())
}
