package orders

import (
	"testing"
)

func TestClassifyBlockingError(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    BlockingError
	}{
		{"market closed plain", "Market is closed", BlockingMarketClosed},
		{"market hours", "Orders accepted during market hours only", BlockingMarketClosed},
		{"us session times", "Trading window is 9:30 to 4:00 ET", BlockingMarketClosed},
		{"india session times", "Orders allowed between 09:15 and 15:30 IST", BlockingMarketClosed},
		{"pre market", "pre-market orders are not supported", BlockingMarketClosed},
		{"refresh token", "Refresh token is invalid, please relink", BlockingReconnectRequired},
		{"reconnect", "Please reconnect your account", BlockingReconnectRequired},
		{"seven day expiry", "Access token rotates every 7 days", BlockingReconnectRequired},
		{"session expired", "Session expired", BlockingSessionExpired},
		{"token expired", "Token has expired", BlockingSessionExpired},
		{"unauthorized", "401 Unauthorized", BlockingSessionExpired},
		{"missing credentials", "Invalid credentials for broker", BlockingBrokerNotConfigured},
		{"api key", "API key not set", BlockingBrokerNotConfigured},
		{"no broker", "No broker configured for user", BlockingBrokerNotConfigured},
		{"unreachable", "dial tcp 127.0.0.1:8100: connection refused", BlockingBrokerNotConfigured},
		{"generic failure", "insufficient buying power", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyBlockingError(tt.message); got != tt.want {
				t.Errorf("ClassifyBlockingError(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

// A message matching several rules must resolve by rule priority, not by
// keyword position in the text.
func TestClassifyBlockingErrorPriority(t *testing.T) {
	// "token expired" belongs to session expiry, but "reconnect" sits in the
	// higher-priority reconnect rule.
	got := ClassifyBlockingError("Token expired, please reconnect your broker")
	if got != BlockingReconnectRequired {
		t.Errorf("got %q, want %q", got, BlockingReconnectRequired)
	}

	// Market-hours text outranks everything else.
	got = ClassifyBlockingError("market is closed, session expired")
	if got != BlockingMarketClosed {
		t.Errorf("got %q, want %q", got, BlockingMarketClosed)
	}
}

func TestClassifyBlockingErrorCaseInsensitive(t *testing.T) {
	if got := ClassifyBlockingError("MARKET IS CLOSED"); got != BlockingMarketClosed {
		t.Errorf("got %q, want %q", got, BlockingMarketClosed)
	}
}

func TestRemedy(t *testing.T) {
	for _, category := range []BlockingError{
		BlockingMarketClosed,
		BlockingReconnectRequired,
		BlockingSessionExpired,
		BlockingBrokerNotConfigured,
	} {
		if category.Remedy() == "" {
			t.Errorf("category %q has no remedy text", category)
		}
	}
	if BlockingError("").Remedy() != "" {
		t.Error("empty category should have no remedy text")
	}
}
