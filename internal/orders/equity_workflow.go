package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
	"github.com/prabhupmb/option-trading-sub000/internal/workflow"
)

// EquityConfig holds the user-set parameters for a share order.
type EquityConfig struct {
	Symbol       string   `json:"symbol"`
	Action       string   `json:"action"` // BUY | SELL
	OrderType    string   `json:"orderType"`
	Quantity     int      `json:"quantity"`
	LimitPrice   *float64 `json:"limitPrice,omitempty"`
	CurrentPrice float64  `json:"currentPrice"`
	SignalID     *uint    `json:"signalId,omitempty"`
	SignalSymbol string   `json:"signalSymbol,omitempty"`
}

// EquityWorkflow is one share-order instance. The flow is
// configure → submitting → success | error; the live-order confirmation gate
// runs at submit time instead of as a separate screen.
type EquityWorkflow struct {
	mu         sync.Mutex
	client     workflow.Client
	broker     BrokerSource
	userID     uint
	username   string
	onComplete CompletionFunc

	gen    int
	closed bool

	state       State
	cfg         EquityConfig
	quantity    int
	confirmText string
	brokerConn  *models.BrokerConnection
	orderID     string
	errMessage  string
	blocking    BlockingError
}

// NewEquityWorkflow creates an equity workflow for one order modal.
func NewEquityWorkflow(client workflow.Client, broker BrokerSource, userID uint, username string, onComplete CompletionFunc) *EquityWorkflow {
	return &EquityWorkflow{
		client:     client,
		broker:     broker,
		userID:     userID,
		username:   username,
		onComplete: onComplete,
		state:      StateConfigure,
	}
}

// Reset returns the instance to a pristine configure state.
func (w *EquityWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.state = StateConfigure
	w.cfg = EquityConfig{}
	w.quantity = 0
	w.confirmText = ""
	w.brokerConn = nil
	w.orderID = ""
	w.errMessage = ""
	w.blocking = ""
}

// Close abandons the instance; a late submit response is dropped.
func (w *EquityWorkflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.closed = true
}

// Configure records the order parameters. Quantity is floored to one; a
// limit price is required exactly when the order style is limit.
func (w *EquityWorkflow) Configure(cfg EquityConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateConfigure {
		return ErrInvalidState
	}
	if cfg.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if cfg.Action != SideBuy && cfg.Action != SideSell {
		return fmt.Errorf("action must be %s or %s", SideBuy, SideSell)
	}
	switch cfg.OrderType {
	case OrderTypeMarket:
		cfg.LimitPrice = nil
	case OrderTypeLimit:
		if cfg.LimitPrice == nil || *cfg.LimitPrice <= 0 {
			return fmt.Errorf("limit orders require a limit price")
		}
	default:
		return fmt.Errorf("order type must be %s or %s", OrderTypeMarket, OrderTypeLimit)
	}
	if cfg.Quantity < 1 {
		cfg.Quantity = 1
	}
	w.cfg = cfg
	w.quantity = cfg.Quantity
	return nil
}

// IncrementQuantity raises the share count by one.
func (w *EquityWorkflow) IncrementQuantity() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateConfigure {
		return ErrInvalidState
	}
	w.quantity++
	if w.quantity < 1 {
		w.quantity = 1
	}
	return nil
}

// DecrementQuantity lowers the share count by one; going below one is a
// no-op.
func (w *EquityWorkflow) DecrementQuantity() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateConfigure {
		return ErrInvalidState
	}
	if w.quantity > 1 {
		w.quantity--
	}
	return nil
}

// SetConfirmationText records the typed live-order confirmation.
func (w *EquityWorkflow) SetConfirmationText(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateConfigure {
		return ErrInvalidState
	}
	w.confirmText = text
	return nil
}

// Submit places the order. The live-order gate runs here, before any network
// call; rejections are classified into the error state.
func (w *EquityWorkflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.closed || w.state != StateConfigure {
		w.mu.Unlock()
		return ErrInvalidState
	}
	if w.cfg.Symbol == "" {
		w.mu.Unlock()
		return fmt.Errorf("workflow is not configured")
	}

	conn, err := w.broker.Active(ctx, w.userID)
	if err == nil && conn == nil {
		err = ErrNoBroker
	}
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if !confirmationOK(conn, w.confirmText) {
		w.mu.Unlock()
		return ErrConfirmationRequired
	}

	cost := w.estimatedCostLocked()
	req := workflow.EquityOrderRequest{
		Symbol:        w.cfg.Symbol,
		Action:        w.cfg.Action,
		OrderType:     w.cfg.OrderType,
		Quantity:      w.quantity,
		LimitPrice:    w.cfg.LimitPrice,
		EstimatedCost: cost,
		SignalID:      w.cfg.SignalID,
		SignalSymbol:  w.cfg.SignalSymbol,
		BrokerID:      conn.ID,
		BrokerName:    conn.Name,
		BrokerMode:    conn.Mode,
		UserID:        w.userID,
	}
	w.brokerConn = conn
	w.state = StateSubmitting
	gen := w.gen
	w.mu.Unlock()

	resp, err := w.client.PlaceEquityOrder(ctx, req)

	w.mu.Lock()
	if w.gen != gen || w.state != StateSubmitting {
		w.mu.Unlock()
		return nil
	}
	if err != nil {
		w.failLocked(fmt.Sprintf("order submission failed: %v", err))
		w.mu.Unlock()
		return nil
	}
	if !resp.Accepted() {
		w.failLocked(resp.FailureMessage())
		w.mu.Unlock()
		return nil
	}

	w.orderID = resp.OrderID
	if w.orderID == "" {
		w.orderID = fallbackOrderID()
	}
	w.state = StateSuccess
	record := models.TradeOrder{
		OrderID:    w.orderID,
		Symbol:     w.cfg.Symbol,
		Side:       w.cfg.Action,
		Kind:       "equity",
		Quantity:   w.quantity,
		Price:      w.effectivePriceLocked(),
		Cost:       cost,
		Status:     "submitted",
		BrokerID:   conn.ID,
		BrokerName: conn.Name,
		BrokerMode: conn.Mode,
		SignalID:   w.cfg.SignalID,
		User:       w.username,
	}
	done := w.onComplete
	w.mu.Unlock()

	if done != nil {
		done(record)
	}
	return nil
}

// Retry returns an errored workflow to configure, keeping the entered
// parameters.
func (w *EquityWorkflow) Retry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateError {
		return ErrInvalidState
	}
	w.confirmText = ""
	w.errMessage = ""
	w.blocking = ""
	w.state = StateConfigure
	return nil
}

func (w *EquityWorkflow) failLocked(message string) {
	w.errMessage = message
	w.blocking = ClassifyBlockingError(message)
	w.state = StateError
}

// effectivePriceLocked is the limit price for limit orders, else the
// last-known current price.
func (w *EquityWorkflow) effectivePriceLocked() float64 {
	if w.cfg.OrderType == OrderTypeLimit && w.cfg.LimitPrice != nil {
		return *w.cfg.LimitPrice
	}
	return w.cfg.CurrentPrice
}

// estimatedCostLocked is quantity times effective price; equity orders carry
// no fee.
func (w *EquityWorkflow) estimatedCostLocked() float64 {
	return float64(w.quantity) * w.effectivePriceLocked()
}

// EquityView is the read model the UI renders for one equity workflow.
type EquityView struct {
	State         State         `json:"state"`
	Config        EquityConfig  `json:"config"`
	Quantity      int           `json:"quantity"`
	EstimatedCost float64       `json:"estimatedCost"`
	BrokerMode    string        `json:"brokerMode,omitempty"`
	OrderID       string        `json:"orderId,omitempty"`
	Error         string        `json:"error,omitempty"`
	Blocking      BlockingError `json:"blocking,omitempty"`
	Remedy        string        `json:"remedy,omitempty"`
}

// View returns a consistent snapshot of the workflow.
func (w *EquityWorkflow) View() EquityView {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := EquityView{
		State:         w.state,
		Config:        w.cfg,
		Quantity:      w.quantity,
		EstimatedCost: w.estimatedCostLocked(),
		OrderID:       w.orderID,
		Error:         w.errMessage,
		Blocking:      w.blocking,
		Remedy:        w.blocking.Remedy(),
	}
	if w.brokerConn != nil {
		v.BrokerMode = w.brokerConn.Mode
	}
	return v
}

// CurrentState returns the current workflow state.
func (w *EquityWorkflow) CurrentState() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
