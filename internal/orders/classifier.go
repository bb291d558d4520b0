// Package orders drives the multi-step order workflows and the
// classification of execution failures into actionable categories.
package orders

import (
	"strings"
)

// BlockingError is a failure category with a specific user remedy, as
// opposed to a generic retryable failure.
type BlockingError string

// Blocking error categories, in classification priority order.
const (
	BlockingMarketClosed        BlockingError = "market_closed"
	BlockingReconnectRequired   BlockingError = "reconnect_required"
	BlockingSessionExpired      BlockingError = "session_expired"
	BlockingBrokerNotConfigured BlockingError = "broker_not_configured"
)

// The upstream service emits free text rather than structured error codes, so
// classification is keyword matching over the lower-cased message. Rules are
// evaluated in priority order and the first match wins; ordering is what
// resolves overlapping keywords ("token" shows up in both reconnect and
// session-expiry phrasing) deterministically.
var blockingRules = []struct {
	category BlockingError
	keywords []string
}{
	{
		category: BlockingMarketClosed,
		keywords: []string{
			"market is closed",
			"market closed",
			"market hours",
			"outside trading",
			"after-hours",
			"after hours",
			"pre-market",
			"9:30",
			"4:00",
			"09:15",
			"15:30",
		},
	},
	{
		category: BlockingReconnectRequired,
		keywords: []string{
			"refresh token",
			"reconnect",
			"re-authenticate",
			"7 days",
		},
	},
	{
		category: BlockingSessionExpired,
		keywords: []string{
			"session expired",
			"session has expired",
			"token expired",
			"token has expired",
			"authorization expired",
			"unauthorized",
			"401",
		},
	},
	{
		category: BlockingBrokerNotConfigured,
		keywords: []string{
			"credential",
			"api key",
			"broker not found",
			"no broker",
			"broker is inactive",
			"inactive broker",
			"not configured",
			"connection refused",
			"no such host",
			"dial tcp",
		},
	},
}

// ClassifyBlockingError maps one free-text failure message to a blocking
// error category, or "" when the failure is a generic retryable one. Pure
// function of the input string.
func ClassifyBlockingError(message string) BlockingError {
	msg := strings.ToLower(message)
	for _, rule := range blockingRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.category
			}
		}
	}
	return ""
}

// Remedy returns the human remedy text shown for a blocking category instead
// of the raw technical message.
func (e BlockingError) Remedy() string {
	switch e {
	case BlockingMarketClosed:
		return "The market is currently closed. Orders can be placed during regular trading hours."
	case BlockingReconnectRequired:
		return "Your broker connection needs to be re-linked. Reconnect the broker and try again."
	case BlockingSessionExpired:
		return "Your broker session has expired. Sign in to the broker again and retry."
	case BlockingBrokerNotConfigured:
		return "No working broker connection was found. Check the broker configuration."
	default:
		return ""
	}
}
