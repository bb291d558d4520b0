package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
	"github.com/prabhupmb/option-trading-sub000/internal/workflow"
)

// Shares per option contract.
const contractMultiplier = 100

// OptionConfig holds the user-set search parameters for an option order.
type OptionConfig struct {
	Symbol       string   `json:"symbol"`
	CurrentPrice float64  `json:"currentPrice"`
	OptionType   string   `json:"optionType"` // call | put
	ExpiryBucket string   `json:"expiryBucket"`
	Budget       float64  `json:"budget"`
	StopLoss     *float64 `json:"stopLoss,omitempty"`
	TakeProfit   *float64 `json:"takeProfit,omitempty"`
	SignalID     *uint    `json:"signalId,omitempty"`
}

// OptionWorkflow is one option-order instance driving
// configure → finding → selection → confirm → submitting → success | error.
// All methods serialize on the instance lock; events arriving while a network
// step is in flight fail with ErrInvalidState instead of overlapping it.
type OptionWorkflow struct {
	mu         sync.Mutex
	client     workflow.Client
	broker     BrokerSource
	fee        float64
	userID     uint
	username   string
	onComplete CompletionFunc

	// gen invalidates in-flight responses across Reset/Close so an abandoned
	// instance never applies a late network result.
	gen    int
	closed bool

	state       State
	cfg         OptionConfig
	candidates  []workflow.ContractCandidate
	selectedIdx int
	quantity    int
	confirmText string
	brokerConn  *models.BrokerConnection
	orderID     string
	errMessage  string
	blocking    BlockingError
}

// NewOptionWorkflow creates an option workflow for one order modal.
func NewOptionWorkflow(client workflow.Client, broker BrokerSource, userID uint, username string, fee float64, onComplete CompletionFunc) *OptionWorkflow {
	return &OptionWorkflow{
		client:      client,
		broker:      broker,
		fee:         fee,
		userID:      userID,
		username:    username,
		onComplete:  onComplete,
		state:       StateConfigure,
		selectedIdx: -1,
	}
}

// Reset returns the instance to a pristine configure state. Reusing the same
// modal for a new signal must not carry anything over from the previous
// order.
func (w *OptionWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.state = StateConfigure
	w.cfg = OptionConfig{}
	w.candidates = nil
	w.selectedIdx = -1
	w.quantity = 0
	w.confirmText = ""
	w.brokerConn = nil
	w.orderID = ""
	w.errMessage = ""
	w.blocking = ""
}

// Close abandons the instance. Outstanding requests are not cancelled at the
// transport level; their eventual responses are dropped.
func (w *OptionWorkflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.closed = true
}

// Configure records the search parameters. Valid only in the configure state.
func (w *OptionWorkflow) Configure(cfg OptionConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateConfigure {
		return ErrInvalidState
	}
	if cfg.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if cfg.OptionType != "call" && cfg.OptionType != "put" {
		return fmt.Errorf("option type must be call or put")
	}
	if _, _, err := ExpiryBucketDays(cfg.ExpiryBucket); err != nil {
		return err
	}
	if cfg.Budget <= 0 {
		return fmt.Errorf("budget must be greater than zero")
	}
	w.cfg = cfg
	return nil
}

// Find issues the contract search and advances to selection on a non-empty
// result. An empty or failed result lands in the error state with the
// service's message surfaced verbatim.
func (w *OptionWorkflow) Find(ctx context.Context) error {
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

	dteMin, dteMax, _ := ExpiryBucketDays(w.cfg.ExpiryBucket)
	req := workflow.FindContractsRequest{
		Symbol:       w.cfg.Symbol,
		CurrentPrice: w.cfg.CurrentPrice,
		OptionType:   w.cfg.OptionType,
		DTEMin:       dteMin,
		DTEMax:       dteMax,
		Budget:       w.cfg.Budget,
		StopLoss:     w.cfg.StopLoss,
		TakeProfit:   w.cfg.TakeProfit,
		BrokerID:     conn.ID,
		BrokerName:   conn.Name,
		BrokerMode:   conn.Mode,
	}
	w.brokerConn = conn
	w.state = StateFinding
	gen := w.gen
	w.mu.Unlock()

	resp, err := w.client.FindContracts(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || w.state != StateFinding {
		// Instance was reset or closed while the request was in flight.
		return nil
	}
	if err != nil {
		w.failLocked(fmt.Sprintf("contract search failed: %v", err))
		return nil
	}
	if resp.Error != "" {
		w.failLocked(resp.Error)
		return nil
	}
	if len(resp.Contracts) == 0 {
		w.failLocked("no matching contracts found")
		return nil
	}

	w.candidates = resp.Contracts
	w.selectedIdx = 0
	w.quantity = ProposedQuantity(w.cfg.Budget, w.perContractCostLocked())
	w.state = StateSelection
	return nil
}

// SelectCandidate picks a candidate by index as the selected contract and
// recomputes the proposed quantity for it.
func (w *OptionWorkflow) SelectCandidate(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateSelection {
		return ErrInvalidState
	}
	if index < 0 || index >= len(w.candidates) {
		return fmt.Errorf("candidate index %d out of range", index)
	}
	w.selectedIdx = index
	w.quantity = ProposedQuantity(w.cfg.Budget, w.perContractCostLocked())
	return nil
}

// Proceed advances from selection to confirm. Requires a selected candidate.
func (w *OptionWorkflow) Proceed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateSelection {
		return ErrInvalidState
	}
	if w.selectedIdx < 0 {
		return fmt.Errorf("no candidate selected")
	}
	w.state = StateConfirm
	return nil
}

// IncrementQuantity raises the contract count by one.
func (w *OptionWorkflow) IncrementQuantity() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || (w.state != StateSelection && w.state != StateConfirm) {
		return ErrInvalidState
	}
	w.quantity++
	if w.quantity < 1 {
		w.quantity = 1
	}
	return nil
}

// DecrementQuantity lowers the contract count by one; going below one is a
// no-op.
func (w *OptionWorkflow) DecrementQuantity() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || (w.state != StateSelection && w.state != StateConfirm) {
		return ErrInvalidState
	}
	if w.quantity > 1 {
		w.quantity--
	}
	return nil
}

// SetConfirmationText records the typed live-order confirmation.
func (w *OptionWorkflow) SetConfirmationText(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateConfirm {
		return ErrInvalidState
	}
	w.confirmText = text
	return nil
}

// Submit places the order. The live-order confirmation gate and quantity
// check run before any network call; rejections are classified and land in
// the error state rather than propagating.
func (w *OptionWorkflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.closed || w.state != StateConfirm {
		w.mu.Unlock()
		return ErrInvalidState
	}
	if w.selectedIdx < 0 {
		w.mu.Unlock()
		return fmt.Errorf("no candidate selected")
	}
	if w.quantity < 1 {
		w.mu.Unlock()
		return fmt.Errorf("quantity must be at least 1")
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

	selected := w.candidates[w.selectedIdx]
	req := workflow.OptionOrderRequest{
		Symbol:     w.cfg.Symbol,
		OptionType: selected.OptionType,
		Strike:     selected.Strike,
		Expiry:     selected.Expiry,
		Quantity:   w.quantity,
		OrderType:  OrderTypeMarket,
		Budget:     w.cfg.Budget,
		StopLoss:   w.cfg.StopLoss,
		TakeProfit: w.cfg.TakeProfit,
		BrokerID:   conn.ID,
		BrokerName: conn.Name,
		BrokerMode: conn.Mode,
		SignalID:   w.cfg.SignalID,
		UserID:     w.userID,
	}
	w.brokerConn = conn
	w.state = StateSubmitting
	gen := w.gen
	w.mu.Unlock()

	resp, err := w.client.PlaceOptionOrder(ctx, req)

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
		Side:       SideBuy,
		Kind:       "option",
		Quantity:   w.quantity,
		Price:      selected.Premium,
		Cost:       w.estimatedCostLocked(),
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

// Retry returns an errored workflow to configure, keeping the entered search
// parameters.
func (w *OptionWorkflow) Retry() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.state != StateError {
		return ErrInvalidState
	}
	w.candidates = nil
	w.selectedIdx = -1
	w.quantity = 0
	w.confirmText = ""
	w.errMessage = ""
	w.blocking = ""
	w.state = StateConfigure
	return nil
}

// failLocked records a terminal failure, classifying the message first so the
// UI can show a remedy for blocking categories.
func (w *OptionWorkflow) failLocked(message string) {
	w.errMessage = message
	w.blocking = ClassifyBlockingError(message)
	w.state = StateError
}

// perContractCostLocked is the cash needed for one contract of the selected
// candidate, before fees.
func (w *OptionWorkflow) perContractCostLocked() float64 {
	if w.selectedIdx < 0 {
		return 0
	}
	return w.candidates[w.selectedIdx].Premium * contractMultiplier
}

func (w *OptionWorkflow) estimatedCostLocked() float64 {
	q := float64(w.quantity)
	return q*w.perContractCostLocked() + q*w.fee
}

// OptionView is the read model the UI renders for one option workflow.
type OptionView struct {
	State         State                        `json:"state"`
	Config        OptionConfig                 `json:"config"`
	Candidates    []workflow.ContractCandidate `json:"candidates,omitempty"`
	SelectedIndex int                          `json:"selectedIndex"`
	Quantity      int                          `json:"quantity"`
	EstimatedCost float64                      `json:"estimatedCost"`
	OverBudget    bool                         `json:"overBudget"`
	BrokerMode    string                       `json:"brokerMode,omitempty"`
	OrderID       string                       `json:"orderId,omitempty"`
	Error         string                       `json:"error,omitempty"`
	Blocking      BlockingError                `json:"blocking,omitempty"`
	Remedy        string                       `json:"remedy,omitempty"`
}

// View returns a consistent snapshot of the workflow.
func (w *OptionWorkflow) View() OptionView {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := OptionView{
		State:         w.state,
		Config:        w.cfg,
		Candidates:    w.candidates,
		SelectedIndex: w.selectedIdx,
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
	if w.selectedIdx >= 0 {
		v.OverBudget = w.candidates[w.selectedIdx].TotalCost > w.cfg.Budget
	}
	return v
}

// CurrentState returns the current workflow state.
func (w *OptionWorkflow) CurrentState() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
