package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fishbox/internal/core"
)

// CatchExportMessage asks the worker to append a catch to the catch log. It
// carries only identifiers; the worker reads the full record from the
// database.
type CatchExportMessage struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCatchExportMessage(c core.Catch) *CatchExportMessage {
	return &CatchExportMessage{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Timestamp: time.Now(),
	}
}

func (m *CatchExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CatchExportMessageFromJSON rejects payloads without a catch id.
func CatchExportMessageFromJSON(data []byte) (*CatchExportMessage, error) {
	var msg CatchExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("export message without catch id")
	}
	return &msg, nil
}

// NotificationMessage is published for a push gateway to deliver.
type NotificationMessage struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"created_at"`
}

func NewNotificationMessage(n core.Notification) *NotificationMessage {
	created := n.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &NotificationMessage{
		UserID:    n.UserID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		Tag:       n.Tag,
		CreatedAt: created,
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
