package types

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

func NewStartCheckoutRequestFromContext(ctx echo.Context) (*StartCheckoutRequest, error) {
	var body StartCheckoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.RequestId = strings.TrimSpace(body.RequestId)
	if body.RequestId == "" {
		body.RequestId = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.normalize()

	return &body, nil
}

func (r *StartCheckoutRequest) normalize() {
	r.CallerService = strings.TrimSpace(r.CallerService)
	r.MerchantOrderId = strings.TrimSpace(r.MerchantOrderId)
	r.Description = strings.TrimSpace(r.Description)
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.ToLower(strings.TrimSpace(r.CustomerEmail))
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.StatusCallbackUrl = strings.TrimSpace(r.StatusCallbackUrl)
	for _, item := range r.Items {
		if item != nil {
			item.Name = strings.TrimSpace(item.Name)
		}
	}
}

// Validate checks field shapes only. An empty cart is rejected by the
// checkout service so that every transport reports it the same way.
func (r *StartCheckoutRequest) Validate() error {
	if strings.TrimSpace(r.GetRequestId()) == "" {
		return errors.New("request_id is required")
	}
	if strings.TrimSpace(r.GetCallerService()) == "" {
		return errors.New("caller_service is required")
	}
	if r.GetAmount().IsNegative() {
		return errors.New("amount must be >= 0")
	}
	for i, item := range r.GetItems() {
		if item == nil {
			return fmt.Errorf("items[%d] is required", i)
		}
		if strings.TrimSpace(item.GetName()) == "" {
			return fmt.Errorf("items[%d].name is required", i)
		}
		if item.GetQuantity() <= 0 {
			return fmt.Errorf("items[%d].quantity must be > 0", i)
		}
		if !item.GetUnitPrice().IsPositive() {
			return fmt.Errorf("items[%d].unit_price must be > 0", i)
		}
		if item.GetTotalPrice().IsNegative() {
			return fmt.Errorf("items[%d].total_price must be >= 0", i)
		}
	}
	if callbackURL := strings.TrimSpace(r.GetStatusCallbackUrl()); callbackURL != "" {
		parsed, err := url.Parse(callbackURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return errors.New("status_callback_url must be an absolute http(s) url")
		}
	}
	return nil
}

func NewGetCheckoutRequestFromContext(ctx echo.Context) (*GetCheckoutRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &GetCheckoutRequest{Id: id}, nil
}

func (r *GetCheckoutRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid checkout id")
	}
	return nil
}

func NewListCheckoutsRequestFromContext(ctx echo.Context) (*ListCheckoutsRequest, error) {
	req := &ListCheckoutsRequest{
		RequestId:       strings.TrimSpace(ctx.QueryParam("request_id")),
		CallerService:   strings.TrimSpace(ctx.QueryParam("caller_service")),
		MerchantOrderId: strings.TrimSpace(ctx.QueryParam("merchant_order_id")),
		Limit:           100,
		Offset:          0,
	}

	statusRaw := strings.TrimSpace(strings.ToLower(ctx.QueryParam("status")))
	if statusRaw != "" {
		if status, ok := ParseCheckoutStatus(statusRaw); ok {
			req.Status = status
		} else {
			n, err := strconv.ParseInt(statusRaw, 10, 32)
			if err != nil {
				return nil, err
			}
			req.Status = CheckoutStatus(n)
		}
		req.HasStatus = true
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}

	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListCheckoutsRequest) Validate() error {
	if r.Limit == 0 {
		r.Limit = 100
	}
	if r.GetLimit() <= 0 || r.GetLimit() > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.GetOffset() < 0 {
		return errors.New("offset must be >= 0")
	}
	if r.GetHasStatus() {
		if _, ok := checkoutStatusNames[r.GetStatus()]; !ok {
			return errors.New("invalid status")
		}
	}
	return nil
}

func NewAbortCheckoutRequestFromContext(ctx echo.Context) (*AbortCheckoutRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}

	var body AbortCheckoutRequest
	if err = ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.Id = id
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *AbortCheckoutRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid checkout id")
	}
	if len(r.GetReason()) > 255 {
		return errors.New("reason must be at most 255 characters")
	}
	return nil
}

func NewReportSurfaceClosedRequestFromContext(ctx echo.Context) (*ReportSurfaceClosedRequest, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, err
	}
	return &ReportSurfaceClosedRequest{Id: id}, nil
}

func (r *ReportSurfaceClosedRequest) Validate() error {
	if r.GetId() == 0 {
		return errors.New("invalid checkout id")
	}
	return nil
}
