package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/prabhupmb/option-trading-sub000/internal/brokers"
	"github.com/prabhupmb/option-trading-sub000/internal/models"
	"github.com/prabhupmb/option-trading-sub000/internal/services"
	"github.com/prabhupmb/option-trading-sub000/internal/utils"
)

// BrokerHandler handles broker connection requests
type BrokerHandler struct {
	brokersSvc brokers.Service
	resolver   *brokers.Resolver
	users      services.UserService
}

// NewBrokerHandler creates a new broker connection handler
func NewBrokerHandler(brokersSvc brokers.Service, resolver *brokers.Resolver, users services.UserService) *BrokerHandler {
	return &BrokerHandler{
		brokersSvc: brokersSvc,
		resolver:   resolver,
		users:      users,
	}
}

// RegisterRoutes registers broker connection routes
func (h *BrokerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/brokers", h.ListConnections).Methods("GET")
	router.HandleFunc("/brokers", h.CreateConnection).Methods("POST")
	router.HandleFunc("/brokers/active", h.ActiveConnection).Methods("GET")
	router.HandleFunc("/brokers/{id}", h.UpdateConnection).Methods("PUT")
	router.HandleFunc("/brokers/{id}", h.DeleteConnection).Methods("DELETE")
	router.HandleFunc("/brokers/{id}/select", h.SelectConnection).Methods("POST")
}

// ListConnections returns the user's broker connections, default first
func (h *BrokerHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r)
	if !ok {
		return
	}

	conns, err := h.resolver.List(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conns)
}

// ActiveConnection returns the resolved active connection, or null when no
// connection is selectable
func (h *BrokerHandler) ActiveConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r)
	if !ok {
		return
	}

	conn, err := h.resolver.Active(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}

// CreateConnection creates a new broker connection
func (h *BrokerHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r)
	if !ok {
		return
	}

	var req models.BrokerConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Provider == "" {
		http.Error(w, "Name and provider are required", http.StatusBadRequest)
		return
	}

	conn := models.BrokerConnection{
		UserID:   userID,
		Name:     req.Name,
		Provider: req.Provider,
		Mode:     req.Mode,
		IsActive: true,
	}
	if conn.Mode == "" {
		conn.Mode = models.BrokerModePaper
	}
	if req.IsActive != nil {
		conn.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		conn.IsDefault = *req.IsDefault
	}

	created, err := h.brokersSvc.Create(conn)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(created)
}

// UpdateConnection updates an existing broker connection
func (h *BrokerHandler) UpdateConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid connection ID", http.StatusBadRequest)
		return
	}

	existing, err := h.brokersSvc.Get(id)
	if err != nil {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	}
	if existing.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var req models.BrokerConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Provider != "" {
		existing.Provider = req.Provider
	}
	if req.Mode != "" {
		existing.Mode = req.Mode
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if req.IsDefault != nil {
		existing.IsDefault = *req.IsDefault
	}

	updated, err := h.brokersSvc.Update(*existing)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// DeleteConnection deletes a broker connection
func (h *BrokerHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid connection ID", http.StatusBadRequest)
		return
	}

	existing, err := h.brokersSvc.Get(id)
	if err != nil {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	}
	if existing.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := h.brokersSvc.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectConnection records an explicit broker selection. Selecting an
// unknown or inactive connection is a silent no-op.
func (h *BrokerHandler) SelectConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requestUserID(w, r)
	if !ok {
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid connection ID", http.StatusBadRequest)
		return
	}

	if err := h.resolver.Select(r.Context(), userID, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := h.resolver.Active(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}

func (h *BrokerHandler) requestUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	username, err := utils.UsernameFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	userID, err := h.users.GetUserIDByUsername(username)
	if err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	return uint(id), err
}
