package models

// WebSocket message types pushed to dashboard clients.
const (
	MessageScanProgress = "scan_progress"
	MessageOrderPlaced  = "order_placed"
	MessageReloadData   = "reload_data"
)

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}
