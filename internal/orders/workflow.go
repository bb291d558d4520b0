package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

// Workflow states. The option flow runs configure → finding → selection →
// confirm → submitting → success | error; the equity flow skips finding and
// selection and performs the live-order gate at submit time.
type State string

const (
	StateConfigure  State = "configure"
	StateFinding    State = "finding"
	StateSelection  State = "selection"
	StateConfirm    State = "confirm"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// ConfirmationText is the literal a user must type (case-insensitively)
// before a live-mode order can be submitted.
const ConfirmationText = "confirm"

// ErrInvalidState is returned when an event arrives in a state that does not
// accept it, including any user event while a network step is in flight.
var ErrInvalidState = errors.New("operation not valid in current state")

// ErrConfirmationRequired is returned when a live-mode submit is attempted
// without the confirmation literal. Caught before any network call.
var ErrConfirmationRequired = errors.New("live order requires typed confirmation")

// ErrNoBroker is the user-visible condition when no broker connection is
// selectable.
var ErrNoBroker = errors.New("no active broker connection")

// Order sides.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Order styles.
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// BrokerSource resolves the broker connection an order is routed through.
// *brokers.Resolver satisfies it; tests use fakes.
type BrokerSource interface {
	Active(ctx context.Context, userID uint) (*models.BrokerConnection, error)
}

// CompletionFunc is invoked once when a workflow reaches success, so the
// caller can record the trade and refresh displayed portfolio data.
type CompletionFunc func(order models.TradeOrder)

// ExpiryBucketDays translates a coarse expiry bucket into explicit
// days-to-expiry bounds for the contract search.
func ExpiryBucketDays(bucket string) (min, max int, err error) {
	switch bucket {
	case "short":
		return 5, 10, nil
	case "swing":
		return 10, 20, nil
	case "monthly":
		return 30, 60, nil
	default:
		return 0, 0, fmt.Errorf("unknown expiry bucket %q", bucket)
	}
}

// ProposedQuantity is the default contract count for a budget: the floor of
// budget over per-contract cost, and zero when the cost is zero.
func ProposedQuantity(budget, perContractCost float64) int {
	if perContractCost <= 0 {
		return 0
	}
	return int(math.Floor(budget / perContractCost))
}

// confirmationOK reports whether typed text satisfies the live-order gate for
// the given broker mode. Non-live modes are never gated.
func confirmationOK(conn *models.BrokerConnection, typed string) bool {
	if conn == nil || !conn.IsLive() {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(typed), ConfirmationText)
}

// fallbackOrderID synthesizes a labeled placeholder when the execution
// service accepts an order without returning an identifier. Nanosecond
// resolution keeps ids distinct for orders accepted in the same second.
func fallbackOrderID() string {
	return fmt.Sprintf("pending-%d", time.Now().UnixNano())
}
