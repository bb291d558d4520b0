package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/prabhupmb/option-trading-sub000/internal/brokers"
	"github.com/prabhupmb/option-trading-sub000/internal/models"
	"github.com/prabhupmb/option-trading-sub000/internal/orders"
	"github.com/prabhupmb/option-trading-sub000/internal/services"
	"github.com/prabhupmb/option-trading-sub000/internal/utils"
	"github.com/prabhupmb/option-trading-sub000/internal/websocket"
	"github.com/prabhupmb/option-trading-sub000/internal/workflow"
)

// OrderHandler owns the live order-workflow instances. Each order modal in
// the UI maps to one workflow session created here and driven through its
// states by the endpoints below.
type OrderHandler struct {
	client   workflow.Client
	resolver *brokers.Resolver
	trades   services.TradeService
	users    services.UserService
	hub      *websocket.Hub
	fee      float64

	mu       sync.Mutex
	seq      int64
	options  map[string]*orders.OptionWorkflow
	equities map[string]*orders.EquityWorkflow
}

// NewOrderHandler creates a new order workflow handler
func NewOrderHandler(client workflow.Client, resolver *brokers.Resolver, trades services.TradeService, users services.UserService, hub *websocket.Hub, fee float64) *OrderHandler {
	return &OrderHandler{
		client:   client,
		resolver: resolver,
		trades:   trades,
		users:    users,
		hub:      hub,
		fee:      fee,
		options:  make(map[string]*orders.OptionWorkflow),
		equities: make(map[string]*orders.EquityWorkflow),
	}
}

// RegisterRoutes registers order workflow routes
func (h *OrderHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orders/option", h.OpenOption).Methods("POST")
	router.HandleFunc("/orders/option/{id}", h.GetOption).Methods("GET")
	router.HandleFunc("/orders/option/{id}", h.CloseOption).Methods("DELETE")
	router.HandleFunc("/orders/option/{id}/configure", h.ConfigureOption).Methods("POST")
	router.HandleFunc("/orders/option/{id}/find", h.FindContracts).Methods("POST")
	router.HandleFunc("/orders/option/{id}/select", h.SelectCandidate).Methods("POST")
	router.HandleFunc("/orders/option/{id}/proceed", h.ProceedOption).Methods("POST")
	router.HandleFunc("/orders/option/{id}/quantity", h.OptionQuantity).Methods("POST")
	router.HandleFunc("/orders/option/{id}/confirmation", h.OptionConfirmation).Methods("POST")
	router.HandleFunc("/orders/option/{id}/submit", h.SubmitOption).Methods("POST")
	router.HandleFunc("/orders/option/{id}/retry", h.RetryOption).Methods("POST")
	router.HandleFunc("/orders/option/{id}/reset", h.ResetOption).Methods("POST")

	router.HandleFunc("/orders/equity", h.OpenEquity).Methods("POST")
	router.HandleFunc("/orders/equity/{id}", h.GetEquity).Methods("GET")
	router.HandleFunc("/orders/equity/{id}", h.CloseEquity).Methods("DELETE")
	router.HandleFunc("/orders/equity/{id}/configure", h.ConfigureEquity).Methods("POST")
	router.HandleFunc("/orders/equity/{id}/quantity", h.EquityQuantity).Methods("POST")
	router.HandleFunc("/orders/equity/{id}/confirmation", h.EquityConfirmation).Methods("POST")
	router.HandleFunc("/orders/equity/{id}/submit", h.SubmitEquity).Methods("POST")
	router.HandleFunc("/orders/equity/{id}/retry", h.RetryEquity).Methods("POST")
	router.HandleFunc("/orders/equity/{id}/reset", h.ResetEquity).Methods("POST")

	router.HandleFunc("/trades", h.GetTrades).Methods("GET")
}

// OpenOption creates a new option workflow session. A configuration payload
// may be included to configure in the same call.
func (h *OrderHandler) OpenOption(w http.ResponseWriter, r *http.Request) {
	username, userID, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	wf := orders.NewOptionWorkflow(h.client, h.resolver, userID, username, h.fee, h.recordTrade)

	var cfg orders.OptionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err == nil && cfg.Symbol != "" {
		if err := wf.Configure(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	id := h.storeOption(wf)
	writeJSON(w, map[string]interface{}{"id": id, "workflow": wf.View()})
}

// GetOption returns the current workflow view
func (h *OrderHandler) GetOption(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	writeJSON(w, wf.View())
}

// CloseOption abandons the workflow instance
func (h *OrderHandler) CloseOption(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.mu.Lock()
	wf := h.options[id]
	delete(h.options, id)
	h.mu.Unlock()
	if wf != nil {
		wf.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfigureOption records the option search parameters
func (h *OrderHandler) ConfigureOption(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	var cfg orders.OptionConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.applyEvent(w, wf.Configure(cfg), func() { writeJSON(w, wf.View()) })
}

// FindContracts issues the contract search
func (h *OrderHandler) FindContracts(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	h.applyEvent(w, wf.Find(r.Context()), func() { writeJSON(w, wf.View()) })
}

// SelectCandidate picks a contract candidate by index
func (h *OrderHandler) SelectCandidate(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.applyEvent(w, wf.SelectCandidate(req.Index), func() { writeJSON(w, wf.View()) })
}

// ProceedOption advances from selection to confirm
func (h *OrderHandler) ProceedOption(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	h.applyEvent(w, wf.Proceed(), func() { writeJSON(w, wf.View()) })
}

// OptionQuantity increments or decrements the contract count
func (h *OrderHandler) OptionQuantity(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	op, err := quantityOp(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var evErr error
	if op == "increment" {
		evErr = wf.IncrementQuantity()
	} else {
		evErr = wf.DecrementQuantity()
	}
	h.applyEvent(w, evErr, func() { writeJSON(w, wf.View()) })
}

// OptionConfirmation records the typed live-order confirmation text
func (h *OrderHandler) OptionConfirmation(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	text, err := confirmationText(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.applyEvent(w, wf.SetConfirmationText(text), func() { writeJSON(w, wf.View()) })
}

// SubmitOption places the option order
func (h *OrderHandler) SubmitOption(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	h.applyEvent(w, wf.Submit(r.Context()), func() { writeJSON(w, wf.View()) })
}

// RetryOption returns an errored workflow to configure
func (h *OrderHandler) RetryOption(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	h.applyEvent(w, wf.Retry(), func() { writeJSON(w, wf.View()) })
}

// ResetOption clears the workflow for a fresh order
func (h *OrderHandler) ResetOption(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.option(w, r)
	if !ok {
		return
	}
	wf.Reset()
	writeJSON(w, wf.View())
}

// OpenEquity creates a new equity workflow session
func (h *OrderHandler) OpenEquity(w http.ResponseWriter, r *http.Request) {
	username, userID, ok := h.requestUser(w, r)
	if !ok {
		return
	}

	wf := orders.NewEquityWorkflow(h.client, h.resolver, userID, username, h.recordTrade)

	var cfg orders.EquityConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err == nil && cfg.Symbol != "" {
		if err := wf.Configure(cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	id := h.storeEquity(wf)
	writeJSON(w, map[string]interface{}{"id": id, "workflow": wf.View()})
}

// GetEquity returns the current workflow view
func (h *OrderHandler) GetEquity(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.equity(w, r)
	if !ok {
		return
	}
	writeJSON(w, wf.View())
}

// CloseEquity abandons the workflow instance
func (h *OrderHandler) CloseEquity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.mu.Lock()
	wf := h.equities[id]
	delete(h.equities, id)
	h.mu.Unlock()
	if wf != nil {
		wf.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfigureEquity records the share order parameters
func (h *OrderHandler) ConfigureEquity(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.equity(w, r)
	if !ok {
		return
	}
	var cfg orders.EquityConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.applyEvent(w, wf.Configure(cfg), func() { writeJSON(w, wf.View()) })
}

// EquityQuantity increments or decrements the share count
func (h *OrderHandler) EquityQuantity(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.equity(w, r)
	if !ok {
		return
	}
	op, err := quantityOp(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var evErr error
	if op == "increment" {
		evErr = wf.IncrementQuantity()
	} else {
		evErr = wf.DecrementQuantity()
	}
	h.applyEvent(w, evErr, func() { writeJSON(w, wf.View()) })
}

// EquityConfirmation records the typed live-order confirmation text
func (h *OrderHandler) EquityConfirmation(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.equity(w, r)
	if !ok {
		return
	}
	text, err := confirmationText(r)
	if err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	h.applyEvent(w, wf.SetConfirmationText(text), func() { writeJSON(w, wf.View()) })
}

// SubmitEquity places the share order
func (h *OrderHandler) SubmitEquity(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.equity(w, r)
	if !ok {
		return
	}
	h.applyEvent(w, wf.Submit(r.Context()), func() { writeJSON(w, wf.View()) })
}

// RetryEquity returns an errored workflow to configure
func (h *OrderHandler) RetryEquity(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.equity(w, r)
	if !ok {
		return
	}
	h.applyEvent(w, wf.Retry(), func() { writeJSON(w, wf.View()) })
}

// ResetEquity clears the workflow for a fresh order
func (h *OrderHandler) ResetEquity(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.equity(w, r)
	if !ok {
		return
	}
	wf.Reset()
	writeJSON(w, wf.View())
}

// GetTrades returns the user's trade history
func (h *OrderHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	username, _, ok := h.requestUser(w, r)
	if !ok {
		return
	}
	trades, err := h.trades.GetTrades(username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, trades)
}

// recordTrade persists an accepted order and pushes it to dashboard clients.
func (h *OrderHandler) recordTrade(order models.TradeOrder) {
	recorded, err := h.trades.Record(order)
	if err != nil {
		log.Printf("Failed to record trade %s: %v", order.OrderID, err)
		recorded = order
	}
	if h.hub != nil {
		h.hub.Broadcast(models.Message{Type: models.MessageOrderPlaced, Content: recorded})
	}
}

// applyEvent translates workflow event errors to HTTP statuses: invalid
// state is a conflict, validation failures are bad requests, and a nil error
// renders the updated view.
func (h *OrderHandler) applyEvent(w http.ResponseWriter, err error, onOK func()) {
	switch {
	case err == nil:
		onOK()
	case errors.Is(err, orders.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *OrderHandler) storeOption(wf *orders.OptionWorkflow) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	id := fmt.Sprintf("opt-%d", h.seq)
	h.options[id] = wf
	return id
}

func (h *OrderHandler) storeEquity(wf *orders.EquityWorkflow) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	id := fmt.Sprintf("eq-%d", h.seq)
	h.equities[id] = wf
	return id
}

func (h *OrderHandler) option(w http.ResponseWriter, r *http.Request) (*orders.OptionWorkflow, bool) {
	h.mu.Lock()
	wf := h.options[mux.Vars(r)["id"]]
	h.mu.Unlock()
	if wf == nil {
		http.Error(w, "Workflow not found", http.StatusNotFound)
		return nil, false
	}
	return wf, true
}

func (h *OrderHandler) equity(w http.ResponseWriter, r *http.Request) (*orders.EquityWorkflow, bool) {
	h.mu.Lock()
	wf := h.equities[mux.Vars(r)["id"]]
	h.mu.Unlock()
	if wf == nil {
		http.Error(w, "Workflow not found", http.StatusNotFound)
		return nil, false
	}
	return wf, true
}

func (h *OrderHandler) requestUser(w http.ResponseWriter, r *http.Request) (string, uint, bool) {
	username, err := utils.UsernameFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", 0, false
	}
	userID, err := h.users.GetUserIDByUsername(username)
	if err != nil {
		http.Error(w, "User not found", http.StatusUnauthorized)
		return "", 0, false
	}
	return username, userID, true
}

func quantityOp(r *http.Request) (string, error) {
	var req struct {
		Op string `json:"op"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", fmt.Errorf("invalid request")
	}
	if req.Op != "increment" && req.Op != "decrement" {
		return "", fmt.Errorf("op must be increment or decrement")
	}
	return req.Op, nil
}

func confirmationText(r *http.Request) (string, error) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", err
	}
	return req.Text, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
