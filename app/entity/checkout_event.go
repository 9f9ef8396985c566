package entity

import "time"

type CheckoutEvent struct {
	ID uint64

	CheckoutID uint64

	EventType string

	OldStatus *int32
	NewStatus int32

	PayloadJSON *string

	CreatedAt time.Time
}
