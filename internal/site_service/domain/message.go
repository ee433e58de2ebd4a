package domain

import "time"

// SMSMessage is an inbound message fetched live from a provider. Never persisted.
type SMSMessage struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to,omitempty"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// WebhookLog is a provider-side alert about webhook delivery.
type WebhookLog struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Message   string    `json:"message"`
}
