package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
	"github.com/prabhupmb/option-trading-sub000/internal/workflow"
)

func TestExpiryBucketDays(t *testing.T) {
	tests := []struct {
		bucket   string
		min, max int
		wantErr  bool
	}{
		{"short", 5, 10, false},
		{"swing", 10, 20, false},
		{"monthly", 30, 60, false},
		{"weekly", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		min, max, err := ExpiryBucketDays(tt.bucket)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExpiryBucketDays(%q) error = %v, wantErr %v", tt.bucket, err, tt.wantErr)
			continue
		}
		if min != tt.min || max != tt.max {
			t.Errorf("ExpiryBucketDays(%q) = %d,%d, want %d,%d", tt.bucket, min, max, tt.min, tt.max)
		}
	}
}

func TestProposedQuantity(t *testing.T) {
	tests := []struct {
		budget, cost float64
		want         int
	}{
		{500, 250, 2},
		{500, 260, 1},
		{500, 600, 0},
		{500, 0, 0},
		{500, -10, 0},
		{0, 250, 0},
	}
	for _, tt := range tests {
		if got := ProposedQuantity(tt.budget, tt.cost); got != tt.want {
			t.Errorf("ProposedQuantity(%v, %v) = %d, want %d", tt.budget, tt.cost, got, tt.want)
		}
	}
}

// Placeholder ids for orders accepted within the same second must still be
// distinct.
func TestFallbackOrderIDDistinct(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id := fallbackOrderID()
		if !strings.HasPrefix(id, "pending-") {
			t.Fatalf("id = %q, want pending- prefix", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate placeholder id %q", id)
		}
		seen[id] = struct{}{}
		time.Sleep(time.Microsecond)
	}
}

// fakeClient is an in-memory workflow service for workflow tests.
type fakeClient struct {
	findResp  *workflow.FindContractsResponse
	findErr   error
	orderResp *workflow.OrderResponse
	orderErr  error

	findCalls   int
	optionCalls int
	equityCalls int

	lastOption workflow.OptionOrderRequest
	lastEquity workflow.EquityOrderRequest
}

func (f *fakeClient) FindContracts(ctx context.Context, req workflow.FindContractsRequest) (*workflow.FindContractsResponse, error) {
	f.findCalls++
	return f.findResp, f.findErr
}

func (f *fakeClient) PlaceOptionOrder(ctx context.Context, req workflow.OptionOrderRequest) (*workflow.OrderResponse, error) {
	f.optionCalls++
	f.lastOption = req
	return f.orderResp, f.orderErr
}

func (f *fakeClient) PlaceEquityOrder(ctx context.Context, req workflow.EquityOrderRequest) (*workflow.OrderResponse, error) {
	f.equityCalls++
	f.lastEquity = req
	return f.orderResp, f.orderErr
}

func (f *fakeClient) TriggerRescan(ctx context.Context) error {
	return nil
}

// fakeBroker resolves to a fixed connection.
type fakeBroker struct {
	conn *models.BrokerConnection
	err  error
}

func (f *fakeBroker) Active(ctx context.Context, userID uint) (*models.BrokerConnection, error) {
	return f.conn, f.err
}

func paperBroker() *fakeBroker {
	return &fakeBroker{conn: &models.BrokerConnection{
		ID: 1, UserID: 1, Name: "alpaca-paper", Provider: "alpaca",
		Mode: models.BrokerModePaper, IsActive: true, IsDefault: true,
	}}
}

func liveBroker() *fakeBroker {
	return &fakeBroker{conn: &models.BrokerConnection{
		ID: 2, UserID: 1, Name: "alpaca-live", Provider: "alpaca",
		Mode: models.BrokerModeLive, IsActive: true,
	}}
}
