package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
)

// QueryService serves a customer's own orders
type QueryService struct {
	orderRepo order.Repository
}

// NewQueryService creates a new QueryService
func NewQueryService(orderRepo order.Repository) *QueryService {
	return &QueryService{orderRepo: orderRepo}
}

// ListMine returns the user's orders, newest first
func (s *QueryService) ListMine(ctx context.Context, userID uuid.UUID, filter OrderListFilter) ([]OrderResponse, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, order.ErrUnauthenticated
	}

	// Customers page through their own history; status filters are admin only
	listFilter := order.ListFilter{
		Filter: toListFilter(filter).Filter,
		UserID: &userID,
	}

	orders, err := s.orderRepo.ListByUser(ctx, userID, listFilter.Filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.Count(ctx, listFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// GetMine returns one of the user's orders with its items. Orders of other
// users are reported as not found.
func (s *QueryService) GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderResponse, error) {
	if userID == uuid.Nil {
		return nil, order.ErrUnauthenticated
	}
	o, err := s.orderRepo.FindByIDForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

func toListFilter(filter OrderListFilter) order.ListFilter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	lf := order.ListFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "created_at",
			OrderDir: "desc",
		},
	}
	if filter.Status != "" {
		status := order.Status(filter.Status)
		lf.Status = &status
	}
	if filter.PaymentStatus != "" {
		ps := order.PaymentStatus(filter.PaymentStatus)
		lf.PaymentStatus = &ps
	}
	return lf
}
