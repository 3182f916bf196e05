package orders

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/internal/vendor"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
	"github.com/bundlehubgh/bundlehub-backend/pkg/outbox"
	"github.com/bundlehubgh/bundlehub-backend/pkg/pagination"
)

// TxRunner executes a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Emitter queues a domain event in the same transaction as the state change.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateInput captures the snapshot data for one order unit. Price, volume
// and network are frozen here; later product edits never touch the order.
type CreateInput struct {
	UserID        uuid.UUID
	ProductID     uuid.UUID
	Price         decimal.Decimal
	Volume        string
	Network       enums.Network
	Phone         string
	PaymentMethod enums.PaymentMethod
	PaymentStatus enums.PaymentStatus
}

// Service owns the order lifecycle: creation, dispatch-result recording and
// vendor webhook reconciliation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	RecordDispatchResult(ctx context.Context, orderID uuid.UUID, result vendor.Result) (*models.Order, error)
	ApplyVendorEvent(ctx context.Context, event *vendor.WebhookEvent) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error)
}

type service struct {
	repo    Repository
	tx      TxRunner
	emitter Emitter
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the order lifecycle service.
func NewService(repo Repository, tx TxRunner, emitter Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, emitter: emitter, logg: logg, now: time.Now}, nil
}

// Create persists one order unit and bumps the owner's usage counters in the
// same transaction.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "product id is required")
	}
	if !input.Price.IsPositive() {
		return nil, errors.New(errors.CodeValidation, "order price must be positive")
	}
	if !input.Network.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown network %q", input.Network))
	}
	if !input.PaymentMethod.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}

	order := &models.Order{
		UserID:        input.UserID,
		ProductID:     input.ProductID,
		Reference:     newOrderReference(),
		Price:         input.Price,
		Volume:        input.Volume,
		Network:       input.Network,
		PhoneNumber:   input.Phone,
		Status:        enums.OrderStatusPending,
		PaymentStatus: input.PaymentStatus,
		PaymentMethod: input.PaymentMethod,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return err
		}

		today := s.now().UTC().Format("2006-01-02")
		volumeGB := ParseVolumeLabel(input.Volume)
		if err := repo.IncrementUserCounters(ctx, input.UserID, today, volumeGB, input.Price); err != nil {
			return err
		}

		return s.emit(ctx, tx, enums.EventOrderCreated, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// RecordDispatchResult writes one vendor dispatch outcome onto the order.
// Acceptance moves the order to processing and pins the vendor order id;
// rejection moves it to failed. Either way the result row is appended.
func (s *service) RecordDispatchResult(ctx context.Context, orderID uuid.UUID, result vendor.Result) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "order not found")
			}
			return err
		}

		row := &models.OrderProcessingResult{
			OrderID: order.ID,
			Idx:     len(order.Results),
			Success: result.Success,
		}
		if result.TransactionID != "" {
			row.TransactionID = &result.TransactionID
		}
		if result.VendorReference != "" {
			row.VendorReference = &result.VendorReference
		}
		if result.Message != "" {
			row.Message = &result.Message
		}
		if result.Err != "" {
			row.Error = &result.Err
		}
		if result.Status != "" {
			row.SubStatus = &result.Status
		}
		if err := repo.AppendResult(ctx, row); err != nil {
			return err
		}
		order.Results = append(order.Results, *row)

		if result.Success {
			order.Status = enums.OrderStatusProcessing
			if result.TransactionID != "" {
				order.VendorOrderID = &result.TransactionID
			}
		} else {
			order.Status = enums.OrderStatusFailed
		}
		if err := repo.Save(ctx, order); err != nil {
			return err
		}

		if !result.Success {
			return s.emit(ctx, tx, enums.EventOrderFailed, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyVendorEvent reconciles a parsed vendor webhook against order state.
// Unmatched events return (nil, nil): the caller acknowledges regardless, so
// a webhook racing ahead of dispatch persistence is dropped, not retried.
// Replaying an event appends another audit row but the derived status is
// idempotent.
func (s *service) ApplyVendorEvent(ctx context.Context, event *vendor.WebhookEvent) (*models.Order, error) {
	if event == nil {
		return nil, errors.New(errors.CodeValidation, "vendor event is required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.MatchVendorSignals(ctx, event.VendorOrderID, event.Reference)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				order = nil
				return nil
			}
			return err
		}

		audit := &models.OrderWebhookEvent{
			OrderID:       order.ID,
			VendorOrderID: event.VendorOrderID,
			Reference:     event.Reference,
			Status:        event.Status,
			Recipient:     event.Recipient,
			Volume:        event.Volume,
			Payload:       event.Raw,
			ReceivedAt:    event.Timestamp,
		}
		if err := repo.AppendWebhookEvent(ctx, audit); err != nil {
			return err
		}

		nextStatus := event.Status.OrderStatus()
		statusChanged := order.Status != nextStatus
		order.Status = nextStatus
		if order.VendorOrderID == nil && event.VendorOrderID != "" {
			vendorOrderID := event.VendorOrderID
			order.VendorOrderID = &vendorOrderID
		}
		if err := repo.Save(ctx, order); err != nil {
			return err
		}

		if statusChanged {
			switch nextStatus {
			case enums.OrderStatusCompleted:
				return s.emit(ctx, tx, enums.EventOrderCompleted, order)
			case enums.OrderStatusFailed:
				return s.emit(ctx, tx, enums.EventOrderFailed, order)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if order == nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"vendor_order_id": event.VendorOrderID,
			"reference":       event.Reference,
		})
		s.logg.Warn(logCtx, "vendor webhook matched no order, dropped")
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, errors.New(errors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	if userID == uuid.Nil {
		return nil, "", errors.New(errors.CodeValidation, "user id is required")
	}
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error) {
	return s.repo.List(ctx, params, filters)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order) error {
	if s.emitter == nil {
		return nil
	}
	return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: map[string]any{
			"order_id":  order.ID.String(),
			"user_id":   order.UserID.String(),
			"reference": order.Reference,
			"status":    order.Status.String(),
			"network":   order.Network.String(),
			"volume":    order.Volume,
			"price":     order.Price.StringFixed(2),
		},
	})
}

func newOrderReference() string {
	return "BH-" + uuid.NewString()
}
