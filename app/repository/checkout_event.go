package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
)

type CheckoutEventRepository struct {
	db DBTX
}

func NewCheckoutEventRepository(db DBTX) *CheckoutEventRepository {
	return &CheckoutEventRepository{db: db}
}

func (r *CheckoutEventRepository) Create(ctx context.Context, event *entity.CheckoutEvent) error {
	query := `
		INSERT INTO checkout_events (
			checkout_id, event_type, old_status, new_status, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.CheckoutID,
		event.EventType,
		nullableInt32Value(event.OldStatus),
		event.NewStatus,
		nullableStringValue(event.PayloadJSON),
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)

	return nil
}
