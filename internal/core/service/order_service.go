package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/driftndash/storefront/internal/core/domain"
	"github.com/driftndash/storefront/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

type LineRequest struct {
	ItemID   string
	Quantity int
}

type PlaceOrderRequest struct {
	// RequestID deduplicates client retries; optional.
	RequestID  string
	CustomerID string
	ShippingID string
	Status     string
	Lines      []LineRequest
}

type PlaceOrderResult struct {
	OrderID string
	// Warning carries a non-fatal notification failure; the order itself
	// is committed.
	Warning string
}

type OrderService struct {
	db     port.DatabaseRepository
	cache  port.CacheRepository
	notify port.NotificationDispatcher
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewOrderService(db port.DatabaseRepository, cache port.CacheRepository, notify port.NotificationDispatcher, logger *zap.Logger) *OrderService {
	return &OrderService{
		db:     db,
		cache:  cache,
		notify: notify,
		logger: logger,
		tracer: otel.Tracer("orderservice"),
		now:    time.Now,
	}
}

// PlaceOrder validates the request, commits header + lines + reservations in
// one unit of work, then dispatches a confirmation best-effort. On success
// the order and every decrement are durable.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder",
		trace.WithAttributes(attribute.String("customer.id", req.CustomerID)))
	defer span.End()

	status, err := validatePlaceOrder(req)
	if err != nil {
		return nil, err
	}

	idempotencyKey := ""
	if req.RequestID != "" {
		idempotencyKey = "order:req:" + req.RequestID
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	order := domain.Order{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		ShippingID: req.ShippingID,
		Status:     status,
		DatePlaced: s.now(),
		Lines:      coalesceLines(req.Lines),
	}

	if err := s.db.CreateOrder(ctx, order); err != nil {
		// Nothing was committed, so the retry guard must not outlive the
		// failure: free the key and let the client try again.
		s.releaseIdempotency(ctx, idempotencyKey)

		var short *domain.InsufficientStockError
		if errors.As(err, &short) {
			s.logger.Info("order rejected, insufficient stock",
				zap.String("customer_id", req.CustomerID),
				zap.String("item_id", short.ItemID))
			return nil, err
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	result := &PlaceOrderResult{OrderID: order.ID}
	if warn := s.sendNotification(ctx, order.ID, false); warn != "" {
		result.Warning = warn
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("customer_id", req.CustomerID),
		zap.Int("lines", len(order.Lines)))
	return result, nil
}

func validatePlaceOrder(req PlaceOrderRequest) (domain.OrderStatus, error) {
	if req.CustomerID == "" {
		return "", fmt.Errorf("%w: missing customer id", domain.ErrInvalidRequest)
	}
	if req.ShippingID == "" {
		return "", fmt.Errorf("%w: missing shipping id", domain.ErrInvalidRequest)
	}
	if len(req.Lines) == 0 {
		return "", fmt.Errorf("%w: order has no lines", domain.ErrInvalidRequest)
	}
	for _, ln := range req.Lines {
		if ln.ItemID == "" {
			return "", fmt.Errorf("%w: line missing item id", domain.ErrInvalidRequest)
		}
		if ln.Quantity <= 0 {
			return "", fmt.Errorf("%w: non-positive quantity for item %s", domain.ErrInvalidRequest, ln.ItemID)
		}
	}

	if req.Status == "" {
		return domain.OrderStatusPending, nil
	}
	return domain.ParseStatus(req.Status)
}

// coalesceLines merges lines that name the same item into one, summing their
// quantities so the order holds at most one line per item.
func coalesceLines(lines []LineRequest) []domain.OrderLine {
	idx := make(map[string]int, len(lines))
	out := make([]domain.OrderLine, 0, len(lines))
	for _, ln := range lines {
		if i, ok := idx[ln.ItemID]; ok {
			out[i].Quantity += ln.Quantity
			continue
		}
		idx[ln.ItemID] = len(out)
		out = append(out, domain.OrderLine{ItemID: ln.ItemID, Quantity: ln.Quantity})
	}
	return out
}

func (s *OrderService) releaseIdempotency(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.cache.DeleteIdempotency(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key",
			zap.String("key", key), zap.Error(err))
	}
}

// SetStatus applies a validated transition. Date stamping and cancellation
// release happen inside the repository transaction; the returned warning is
// set when the post-commit notification could not be dispatched.
func (s *OrderService) SetStatus(ctx context.Context, orderID, rawStatus string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.SetStatus",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	if orderID == "" {
		return "", fmt.Errorf("%w: missing order id", domain.ErrInvalidRequest)
	}
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return "", err
	}

	if err := s.db.SetStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("set status: %w", err)
	}

	s.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(status)))
	return s.sendNotification(ctx, orderID, true), nil
}

// sendNotification resolves the snapshot and dispatches the email. Failures
// are logged and reported as a warning string, never as an error: the order
// mutation already committed.
func (s *OrderService) sendNotification(ctx context.Context, orderID string, statusUpdate bool) string {
	snap, err := s.db.GetSnapshot(ctx, orderID)
	if err != nil {
		s.logger.Warn("snapshot resolution failed",
			zap.String("order_id", orderID), zap.Error(err))
		return "order saved, but building the notification failed"
	}

	msg := renderReceipt(snap)
	if statusUpdate {
		msg = renderStatusUpdate(snap)
	}
	if err := s.notify.Dispatch(ctx, msg); err != nil {
		s.logger.Warn("notification dispatch failed",
			zap.String("order_id", orderID), zap.Error(err))
		return "order saved, but the notification could not be sent"
	}
	return ""
}

func (s *OrderService) SoftDelete(ctx context.Context, orderID string) error {
	if err := s.db.SoftDelete(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("order archived", zap.String("order_id", orderID))
	return nil
}

func (s *OrderService) Restore(ctx context.Context, orderID string) error {
	if err := s.db.Restore(ctx, orderID); err != nil {
		return err
	}
	s.logger.Info("order restored", zap.String("order_id", orderID))
	return nil
}

func (s *OrderService) ListByCustomer(ctx context.Context, customerID string) ([]domain.OrderSummary, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: missing customer id", domain.ErrInvalidRequest)
	}
	return s.db.ListByCustomer(ctx, customerID)
}

func (s *OrderService) ListAll(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.db.ListAll(ctx)
}

func (s *OrderService) ListArchived(ctx context.Context) ([]domain.OrderSummary, error) {
	return s.db.ListArchived(ctx)
}

func (s *OrderService) GetDetail(ctx context.Context, orderID string) (*domain.OrderDetail, error) {
	return s.db.GetDetail(ctx, orderID)
}

// ListShippingOptions serves reference data through the cache; cache trouble
// degrades to a direct read.
func (s *OrderService) ListShippingOptions(ctx context.Context) ([]domain.ShippingOption, error) {
	cached, err := s.cache.GetShippingOptions(ctx)
	if err != nil {
		s.logger.Warn("shipping cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	opts, err := s.db.ListShippingOptions(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetShippingOptions(ctx, opts); err != nil {
		s.logger.Warn("shipping cache write failed", zap.Error(err))
	}
	return opts, nil
}
