package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-checkout/app/entity"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

func CheckoutToProto(item *entity.Checkout) *types.Checkout {
	if item == nil {
		return nil
	}

	status := types.CheckoutStatus(item.Status)
	result := &types.Checkout{
		Id:                item.ID,
		RequestId:         item.RequestID,
		CallerService:     item.CallerService,
		MerchantOrderId:   item.MerchantOrderID,
		Items:             itemsToProto(item.Items),
		Amount:            item.Amount,
		Description:       item.Description,
		CustomerName:      item.CustomerName,
		CustomerEmail:     item.CustomerEmail,
		CustomerPhone:     item.CustomerPhone,
		Status:            status,
		StatusName:        status.String(),
		PayToken:          derefString(item.PayToken),
		PaymentUrl:        derefString(item.PaymentURL),
		SurfaceId:         derefString(item.SurfaceID),
		TransactionId:     derefString(item.TransactionID),
		FailureReason:     derefString(item.FailureReason),
		CancelReason:      derefString(item.CancelReason),
		StatusCallbackUrl: item.StatusCallbackURL,
		Metadata:          cloneMetadata(item.Metadata),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if item.ResolvedAt != nil {
		result.ResolvedAt = item.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return result
}

func CheckoutsToProto(items []*entity.Checkout) []*types.Checkout {
	result := make([]*types.Checkout, 0, len(items))
	for _, item := range items {
		result = append(result, CheckoutToProto(item))
	}
	return result
}

func itemsToProto(items []entity.CheckoutItem) []*types.LineItem {
	result := make([]*types.LineItem, 0, len(items))
	for _, item := range items {
		result = append(result, &types.LineItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
