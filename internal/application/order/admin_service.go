package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// RecentOrdersLimit is how many orders the dashboard shows
const RecentOrdersLimit = 10

// AdminService serves the staff order console
type AdminService struct {
	orderRepo    order.Repository
	statusStore  order.StatusStore
	paymentStore order.PaymentStore
	productRepo  catalog.ProductRepository
	eventBus     shared.EventPublisher
	logger       *zap.Logger
	metrics      *telemetry.StoreMetrics
}

// AdminServiceConfig contains the collaborators of AdminService
type AdminServiceConfig struct {
	OrderRepo    order.Repository
	StatusStore  order.StatusStore
	PaymentStore order.PaymentStore
	ProductRepo  catalog.ProductRepository
	EventBus     shared.EventPublisher
	Logger       *zap.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(cfg AdminServiceConfig) *AdminService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		orderRepo:    cfg.OrderRepo,
		statusStore:  cfg.StatusStore,
		paymentStore: cfg.PaymentStore,
		productRepo:  cfg.ProductRepo,
		eventBus:     cfg.EventBus,
		logger:       logger,
	}
}

// SetStoreMetrics sets the store metrics collector
func (s *AdminService) SetStoreMetrics(m *telemetry.StoreMetrics) {
	s.metrics = m
}

// List returns orders across all customers
func (s *AdminService) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	lf := toListFilter(filter)

	orders, err := s.orderRepo.List(ctx, lf)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.Count(ctx, lf)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// Get returns any order with its items
func (s *AdminService) Get(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(o)
	return &response, nil
}

// UpdateStatus moves an order along its lifecycle. The write is conditional on
// the status that was read, so concurrent changes surface as a conflict.
func (s *AdminService) UpdateStatus(ctx context.Context, orderID uuid.UUID, req UpdateStatusRequest) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order", "update_status",
		telemetry.SpanAttrOrderID.String(orderID.String()),
		telemetry.SpanAttrOrderStatus.String(req.Status))
	defer func() { telemetry.EndSpan(span, err) }()

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.UpdateStatus(order.Status(req.Status), req.TrackingNumber, req.EstimatedDelivery); err != nil {
		return nil, err
	}

	if err := s.statusStore.UpdateStatus(ctx, o, from); err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", o.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
		zap.Bool("stock_released", o.Status.ReleasesStock()))

	s.publish(ctx, o)

	response := ToOrderResponse(o)
	return &response, nil
}

// MarkCashPaid records payment collected on delivery for a cash order
func (s *AdminService) MarkCashPaid(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentMethod != order.PaymentMethodCash {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Only cash orders can be marked as paid manually")
	}
	if o.Status.ReleasesStock() {
		return nil, order.ErrOrderClosed
	}

	changed, err := s.paymentStore.MarkPaidIfPending(ctx, o.ID, "")
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, shared.NewDomainError("INVALID_STATE", "Payment is already settled")
	}

	if err := o.MarkPaid("", time.Now()); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordOrderPaid(ctx, string(o.PaymentMethod), o.TotalAmount)
	}
	s.publish(ctx, o)

	response := ToOrderResponse(o)
	return &response, nil
}

// Dashboard summarises catalog size, order volume and revenue. Revenue
// counts paid orders only.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	productCount, err := s.productRepo.Count(ctx, catalog.ProductFilter{})
	if err != nil {
		return nil, err
	}
	orderCount, err := s.orderRepo.Count(ctx, order.ListFilter{})
	if err != nil {
		return nil, err
	}
	revenue, err := s.orderRepo.SumRevenue(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.orderRepo.ListRecent(ctx, RecentOrdersLimit)
	if err != nil {
		return nil, err
	}

	return &DashboardResponse{
		ProductCount: productCount,
		OrderCount:   orderCount,
		Revenue:      revenue,
		RecentOrders: ToOrderResponses(recent),
	}, nil
}

func (s *AdminService) publish(ctx context.Context, o *order.Order) {
	events := o.PullDomainEvents()
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
}
