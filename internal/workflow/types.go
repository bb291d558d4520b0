package workflow

// Wire types for the external workflow service. Field names follow the
// service's JSON contract; none of these are persisted locally.

// FindContractsRequest asks the service for option contracts matching the
// user's search criteria.
type FindContractsRequest struct {
	Symbol       string   `json:"symbol"`
	CurrentPrice float64  `json:"current_price"`
	OptionType   string   `json:"option_type"`
	DTEMin       int      `json:"dte_min"`
	DTEMax       int      `json:"dte_max"`
	Budget       float64  `json:"budget"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
	TakeProfit   *float64 `json:"take_profit,omitempty"`
	BrokerID     uint     `json:"broker_id"`
	BrokerName   string   `json:"broker_name"`
	BrokerMode   string   `json:"broker_mode"`
}

// ContractCandidate is one option contract proposed by the service.
// Immutable once received.
type ContractCandidate struct {
	Symbol       string   `json:"symbol"`
	Strike       float64  `json:"strike"`
	Expiry       string   `json:"expiry"`
	OptionType   string   `json:"option_type"`
	Premium      float64  `json:"premium"`
	Quantity     int      `json:"quantity"`
	TotalCost    float64  `json:"total_cost"`
	DaysToExpiry int      `json:"days_to_expiry"`
	Delta        *float64 `json:"delta,omitempty"`
	Gamma        *float64 `json:"gamma,omitempty"`
	Theta        *float64 `json:"theta,omitempty"`
}

// FindContractsResponse carries the candidate list, or an error message when
// the search failed on the service side.
type FindContractsResponse struct {
	Contracts []ContractCandidate `json:"contracts"`
	Error     string              `json:"error,omitempty"`
}

// OptionOrderRequest places an option order.
type OptionOrderRequest struct {
	Symbol     string   `json:"symbol"`
	OptionType string   `json:"option_type"`
	Strike     float64  `json:"strike"`
	Expiry     string   `json:"expiry"`
	Quantity   int      `json:"quantity"`
	OrderType  string   `json:"order_type"`
	Budget     float64  `json:"budget"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	BrokerID   uint     `json:"broker_id"`
	BrokerName string   `json:"broker_name"`
	BrokerMode string   `json:"broker_mode"`
	SignalID   *uint    `json:"signal_id,omitempty"`
	UserID     uint     `json:"user_id"`
}

// EquityOrderRequest places a share order.
type EquityOrderRequest struct {
	Symbol        string   `json:"symbol"`
	Action        string   `json:"action"`
	OrderType     string   `json:"order_type"`
	Quantity      int      `json:"quantity"`
	LimitPrice    *float64 `json:"limit_price,omitempty"`
	EstimatedCost float64  `json:"estimated_cost"`
	SignalID      *uint    `json:"signal_id,omitempty"`
	SignalSymbol  string   `json:"signal_symbol,omitempty"`
	BrokerID      uint     `json:"broker_id"`
	BrokerName    string   `json:"broker_name"`
	BrokerMode    string   `json:"broker_mode"`
	UserID        uint     `json:"user_id"`
}

// OrderResponse is the service's answer to either order-placement call. The
// service is inconsistent about which fields it fills in, so acceptance and
// failure text are derived rather than read from a single field.
type OrderResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	OrderID string `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Accepted reports whether the response indicates the order was taken.
func (r *OrderResponse) Accepted() bool {
	if r.Success {
		return true
	}
	switch r.Status {
	case "submitted", "accepted":
		return true
	}
	return false
}

// FailureMessage returns the best-available error text from a rejection.
func (r *OrderResponse) FailureMessage() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return "order was rejected"
}
