package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/prabhupmb/option-trading-sub000/internal/services"
)

// SignalHandler serves the latest trading signals for the dashboard
type SignalHandler struct {
	signals services.SignalService
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(signals services.SignalService) *SignalHandler {
	return &SignalHandler{signals: signals}
}

// RegisterRoutes registers signal routes
func (h *SignalHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/signals", h.GetSignals).Methods("GET")
}

// GetSignals returns the latest signal per tracked symbol
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.signals.GetLatestSignals()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, signals)
}
