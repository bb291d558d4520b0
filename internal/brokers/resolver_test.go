package brokers

import (
	"context"
	"testing"
	"time"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

func seedConnections(t *testing.T, svc Service, conns ...models.BrokerConnection) []models.BrokerConnection {
	t.Helper()
	created := make([]models.BrokerConnection, 0, len(conns))
	for _, c := range conns {
		got, err := svc.Create(c)
		if err != nil {
			t.Fatalf("Create(%q): %v", c.Name, err)
		}
		created = append(created, *got)
		time.Sleep(2 * time.Millisecond)
	}
	return created
}

func TestResolverActiveDefaultWins(t *testing.T) {
	svc := NewService(setupTestDB(t))
	seedConnections(t, svc,
		models.BrokerConnection{UserID: 1, Name: "plain", Provider: "alpaca", IsActive: true},
		models.BrokerConnection{UserID: 1, Name: "default", Provider: "tradier", IsActive: true, IsDefault: true},
	)
	r := NewResolver(svc, NewMemorySelectionStore())

	conn, err := r.Active(context.Background(), 1)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if conn == nil || conn.Name != "default" {
		t.Errorf("active = %+v, want the default connection", conn)
	}
}

func TestResolverExplicitSelectionWins(t *testing.T) {
	svc := NewService(setupTestDB(t))
	created := seedConnections(t, svc,
		models.BrokerConnection{UserID: 1, Name: "default", Provider: "alpaca", IsActive: true, IsDefault: true},
		models.BrokerConnection{UserID: 1, Name: "picked", Provider: "tradier", IsActive: true},
	)
	r := NewResolver(svc, NewMemorySelectionStore())

	if err := r.Select(context.Background(), 1, created[1].ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	conn, err := r.Active(context.Background(), 1)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if conn == nil || conn.Name != "picked" {
		t.Errorf("active = %+v, want the explicitly selected connection", conn)
	}
}

func TestResolverSelectionOfInactiveIsNoop(t *testing.T) {
	svc := NewService(setupTestDB(t))
	created := seedConnections(t, svc,
		models.BrokerConnection{UserID: 1, Name: "default", Provider: "alpaca", IsActive: true, IsDefault: true},
		models.BrokerConnection{UserID: 1, Name: "dead", Provider: "tradier", IsActive: false},
	)
	sel := NewMemorySelectionStore()
	r := NewResolver(svc, sel)

	if err := r.Select(context.Background(), 1, created[1].ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	stored, _ := sel.Selected(context.Background(), 1)
	if stored != 0 {
		t.Errorf("inactive connection was stored as selection: %d", stored)
	}
	conn, err := r.Active(context.Background(), 1)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if conn == nil || conn.Name != "default" {
		t.Errorf("active = %+v, want the default connection", conn)
	}
}

func TestResolverStaleSelectionFallsThrough(t *testing.T) {
	svc := NewService(setupTestDB(t))
	created := seedConnections(t, svc,
		models.BrokerConnection{UserID: 1, Name: "default", Provider: "alpaca", IsActive: true, IsDefault: true},
		models.BrokerConnection{UserID: 1, Name: "picked", Provider: "tradier", IsActive: true},
	)
	r := NewResolver(svc, NewMemorySelectionStore())

	if err := r.Select(context.Background(), 1, created[1].ID); err != nil {
		t.Fatalf("Select: %v", err)
	}
	// The selected connection is deactivated afterwards; the resolver must
	// re-derive instead of serving the stale pick.
	created[1].IsActive = false
	if _, err := svc.Update(created[1]); err != nil {
		t.Fatalf("Update: %v", err)
	}

	conn, err := r.Active(context.Background(), 1)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if conn == nil || conn.Name != "default" {
		t.Errorf("active = %+v, want fallback to the default", conn)
	}
}

func TestResolverInactiveDefaultSkipped(t *testing.T) {
	svc := NewService(setupTestDB(t))
	seedConnections(t, svc,
		models.BrokerConnection{UserID: 1, Name: "off-default", Provider: "alpaca", IsActive: false, IsDefault: true},
		models.BrokerConnection{UserID: 1, Name: "alive", Provider: "tradier", IsActive: true},
	)
	r := NewResolver(svc, NewMemorySelectionStore())

	conn, err := r.Active(context.Background(), 1)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if conn == nil || conn.Name != "alive" {
		t.Errorf("active = %+v, want the first active connection", conn)
	}
}

func TestResolverNoSelectableConnection(t *testing.T) {
	svc := NewService(setupTestDB(t))
	seedConnections(t, svc,
		models.BrokerConnection{UserID: 1, Name: "dead", Provider: "alpaca", IsActive: false},
	)
	r := NewResolver(svc, NewMemorySelectionStore())

	conn, err := r.Active(context.Background(), 1)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if conn != nil {
		t.Errorf("active = %+v, want nil when nothing is selectable", conn)
	}
}
