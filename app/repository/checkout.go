package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
)

var (
	ErrCheckoutNotFound      = errors.New("checkout not found")
	ErrCheckoutAlreadyExists = errors.New("checkout already exists")
	ErrCheckoutStatusChanged = errors.New("checkout status changed concurrently")
)

const checkoutColumns = `
	id, request_id, caller_service, merchant_order_id, items_json, amount, description,
	customer_name, customer_email, customer_phone, status,
	pay_token, payment_url, surface_id, transaction_id, failure_reason, cancel_reason, status_payload_json,
	status_callback_url, metadata_json,
	callback_delivery_status, callback_delivery_attempts, callback_delivery_next_at, callback_delivery_last_error,
	created_at, updated_at, resolved_at
`

type CheckoutFilter struct {
	RequestID       string
	CallerService   string
	MerchantOrderID string
	HasStatus       bool
	Status          int32
	Limit           int32
	Offset          int32
}

type CheckoutRepository struct {
	db DBTX
}

func NewCheckoutRepository(db DBTX) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

func (r *CheckoutRepository) Create(ctx context.Context, checkout *entity.Checkout) error {
	itemsJSON, err := serializeItems(checkout.Items)
	if err != nil {
		return err
	}
	metadataJSON, err := serializeMetadata(checkout.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkouts (
			request_id, caller_service, merchant_order_id, items_json, amount, description,
			customer_name, customer_email, customer_phone, status,
			pay_token, payment_url, surface_id, transaction_id, failure_reason, cancel_reason, status_payload_json,
			status_callback_url, metadata_json,
			callback_delivery_status, callback_delivery_attempts, callback_delivery_next_at, callback_delivery_last_error,
			created_at, updated_at, resolved_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		checkout.RequestID,
		checkout.CallerService,
		checkout.MerchantOrderID,
		itemsJSON,
		checkout.Amount,
		checkout.Description,
		checkout.CustomerName,
		checkout.CustomerEmail,
		checkout.CustomerPhone,
		checkout.Status,
		nullableStringValue(checkout.PayToken),
		nullableStringValue(checkout.PaymentURL),
		nullableStringValue(checkout.SurfaceID),
		nullableStringValue(checkout.TransactionID),
		nullableStringValue(checkout.FailureReason),
		nullableStringValue(checkout.CancelReason),
		nullableStringValue(checkout.StatusPayload),
		checkout.StatusCallbackURL,
		metadataJSON,
		checkout.CallbackDeliveryStatus,
		checkout.CallbackDeliveryAttempts,
		nullableTimeValue(checkout.CallbackDeliveryNextAt),
		nullableStringValue(checkout.CallbackDeliveryLastErr),
		checkout.CreatedAt,
		checkout.UpdatedAt,
		nullableTimeValue(checkout.ResolvedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrCheckoutAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	checkout.ID = uint64(id)
	return nil
}

func (r *CheckoutRepository) Update(ctx context.Context, checkout *entity.Checkout) error {
	return r.update(ctx, checkout, nil)
}

// Transition updates checkout only while its stored status is still from.
// It returns ErrCheckoutStatusChanged when another writer moved it first.
func (r *CheckoutRepository) Transition(ctx context.Context, checkout *entity.Checkout, from int32) error {
	return r.update(ctx, checkout, &from)
}

func (r *CheckoutRepository) update(ctx context.Context, checkout *entity.Checkout, from *int32) error {
	metadataJSON, err := serializeMetadata(checkout.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE checkouts SET
			status = ?,
			pay_token = ?,
			payment_url = ?,
			surface_id = ?,
			transaction_id = ?,
			failure_reason = ?,
			cancel_reason = ?,
			status_payload_json = ?,
			status_callback_url = ?,
			metadata_json = ?,
			callback_delivery_status = ?,
			callback_delivery_attempts = ?,
			callback_delivery_next_at = ?,
			callback_delivery_last_error = ?,
			updated_at = ?,
			resolved_at = ?
		WHERE id = ?
	`
	args := []interface{}{
		checkout.Status,
		nullableStringValue(checkout.PayToken),
		nullableStringValue(checkout.PaymentURL),
		nullableStringValue(checkout.SurfaceID),
		nullableStringValue(checkout.TransactionID),
		nullableStringValue(checkout.FailureReason),
		nullableStringValue(checkout.CancelReason),
		nullableStringValue(checkout.StatusPayload),
		checkout.StatusCallbackURL,
		metadataJSON,
		checkout.CallbackDeliveryStatus,
		checkout.CallbackDeliveryAttempts,
		nullableTimeValue(checkout.CallbackDeliveryNextAt),
		nullableStringValue(checkout.CallbackDeliveryLastErr),
		checkout.UpdatedAt,
		nullableTimeValue(checkout.ResolvedAt),
		checkout.ID,
	}
	if from != nil {
		query += " AND status = ?"
		args = append(args, *from)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if from != nil {
			return ErrCheckoutStatusChanged
		}
		return ErrCheckoutNotFound
	}

	return nil
}

func (r *CheckoutRepository) FindByID(ctx context.Context, id uint64) (*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *CheckoutRepository) FindByCallerRequestID(ctx context.Context, callerService, requestID string) (*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE caller_service = ? AND request_id = ? LIMIT 1`
	return r.findOne(ctx, query, callerService, requestID)
}

func (r *CheckoutRepository) FindByMerchantOrderID(ctx context.Context, merchantOrderID string) (*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts WHERE merchant_order_id = ? LIMIT 1`
	return r.findOne(ctx, query, merchantOrderID)
}

func (r *CheckoutRepository) List(ctx context.Context, filter CheckoutFilter) ([]*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkouts`

	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)

	if strings.TrimSpace(filter.RequestID) != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, filter.RequestID)
	}
	if strings.TrimSpace(filter.CallerService) != "" {
		conditions = append(conditions, "caller_service = ?")
		args = append(args, filter.CallerService)
	}
	if strings.TrimSpace(filter.MerchantOrderID) != "" {
		conditions = append(conditions, "merchant_order_id = ?")
		args = append(args, filter.MerchantOrderID)
	}
	if filter.HasStatus {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	return r.findMany(ctx, query, args...)
}

func (r *CheckoutRepository) ListDueCallbackDispatch(ctx context.Context, now time.Time, limit int32) ([]*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + `
		FROM checkouts
		WHERE callback_delivery_status = ?
		  AND callback_delivery_next_at IS NOT NULL
		  AND callback_delivery_next_at <= ?
		ORDER BY callback_delivery_next_at ASC
		LIMIT ?
	`
	return r.findMany(ctx, query, entity.CallbackDeliveryPending, now, limit)
}

func (r *CheckoutRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + `
		FROM checkouts
		WHERE status IN (?, ?, ?, ?)
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.findMany(ctx, query,
		entity.CheckoutStatusCreated,
		entity.CheckoutStatusInvoiceCreated,
		entity.CheckoutStatusPaymentInitiated,
		entity.CheckoutStatusPolling,
		cutoff,
		limit,
	)
}

func (r *CheckoutRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Checkout, error) {
	query := `SELECT ` + checkoutColumns + `
		FROM checkouts
		WHERE status = ?
		  AND pay_token IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.findMany(ctx, query, entity.CheckoutStatusPolling, before, limit)
}

func (r *CheckoutRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Checkout, error) {
	checkout := &entity.Checkout{}
	if err := scanCheckout(r.db.QueryRowContext(ctx, query, args...), checkout); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return checkout, nil
}

func (r *CheckoutRepository) findMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Checkout, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checkouts := make([]*entity.Checkout, 0)
	for rows.Next() {
		item := &entity.Checkout{}
		if err := scanCheckout(rows, item); err != nil {
			return nil, err
		}
		checkouts = append(checkouts, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return checkouts, nil
}

func scanCheckout(scan rowScanner, checkout *entity.Checkout) error {
	var itemsJSON string
	var metadataJSON string
	var payToken sql.NullString
	var paymentURL sql.NullString
	var surfaceID sql.NullString
	var transactionID sql.NullString
	var failureReason sql.NullString
	var cancelReason sql.NullString
	var statusPayload sql.NullString
	var callbackNextAt sql.NullTime
	var callbackLastErr sql.NullString
	var resolvedAt sql.NullTime

	err := scan.Scan(
		&checkout.ID,
		&checkout.RequestID,
		&checkout.CallerService,
		&checkout.MerchantOrderID,
		&itemsJSON,
		&checkout.Amount,
		&checkout.Description,
		&checkout.CustomerName,
		&checkout.CustomerEmail,
		&checkout.CustomerPhone,
		&checkout.Status,
		&payToken,
		&paymentURL,
		&surfaceID,
		&transactionID,
		&failureReason,
		&cancelReason,
		&statusPayload,
		&checkout.StatusCallbackURL,
		&metadataJSON,
		&checkout.CallbackDeliveryStatus,
		&checkout.CallbackDeliveryAttempts,
		&callbackNextAt,
		&callbackLastErr,
		&checkout.CreatedAt,
		&checkout.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		return err
	}

	checkout.PayToken = stringPtrFromNull(payToken)
	checkout.PaymentURL = stringPtrFromNull(paymentURL)
	checkout.SurfaceID = stringPtrFromNull(surfaceID)
	checkout.TransactionID = stringPtrFromNull(transactionID)
	checkout.FailureReason = stringPtrFromNull(failureReason)
	checkout.CancelReason = stringPtrFromNull(cancelReason)
	checkout.StatusPayload = stringPtrFromNull(statusPayload)
	checkout.CallbackDeliveryNextAt = timePtrFromNull(callbackNextAt)
	checkout.CallbackDeliveryLastErr = stringPtrFromNull(callbackLastErr)
	checkout.ResolvedAt = timePtrFromNull(resolvedAt)

	items, err := parseItems(itemsJSON)
	if err != nil {
		return err
	}
	checkout.Items = items

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}
	checkout.Metadata = metadata

	return nil
}
