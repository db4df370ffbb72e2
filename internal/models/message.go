package models

// Status transition actions carried by scheduled SQS messages.
const (
	StatusActionLive   = "LIVE"
	StatusActionClosed = "CLOSED"
)

// Trending job actions.
const (
	TrendingActionRecalculate = "RECALCULATE"
	TrendingActionSync        = "SYNC"
)

// StatusMessage is the body EventBridge Scheduler delivers to the status queue
// when an event's registration window opens or closes.
type StatusMessage struct {
	EventID string `json:"eventId"`
	Action  string `json:"action"`
}

// TrendingMessage is a trending recalculation job.
type TrendingMessage struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// DebeziumSource is the source block of a change event.
type DebeziumSource struct {
	Connector string `json:"connector"`
	DB        string `json:"db"`
	Table     string `json:"table"`
	TsMs      int64  `json:"ts_ms"`
}

// EventChange is the payload of a Debezium change event on the events table.
type EventChange struct {
	Before *Event         `json:"before"`
	After  *Event         `json:"after"`
	Source DebeziumSource `json:"source"`
	Op     string         `json:"op"`
	TsMs   int64          `json:"ts_ms"`
}

// EventID returns the id from After, or from Before for deletes.
func (c EventChange) EventID() string {
	if c.After != nil && c.After.ID != "" {
		return c.After.ID
	}
	if c.Before != nil {
		return c.Before.ID
	}
	return ""
}
