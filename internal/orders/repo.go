package orders

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/pagination"
)

// ListFilters narrows admin order listings.
type ListFilters struct {
	Status  *enums.OrderStatus
	Network *enums.Network
}

// Repository manages order persistence, including the per-dispatch result
// rows and the append-only webhook audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Save(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	MatchVendorSignals(ctx context.Context, vendorOrderID, reference string) (*models.Order, error)
	AppendResult(ctx context.Context, result *models.OrderProcessingResult) error
	AppendWebhookEvent(ctx context.Context, event *models.OrderWebhookEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error)
	IncrementUserCounters(ctx context.Context, userID uuid.UUID, today string, volumeGB, amount decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Omit("Results", "WebhookEvents").
		Save(order).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Results", orderResultsOrdering).
		Preload("WebhookEvents").
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Results", orderResultsOrdering).
		Preload("WebhookEvents").
		First(&order, "reference = ?", reference).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MatchVendorSignals resolves the order a vendor webhook refers to. Matching
// tries, in order: orders.vendor_order_id, processing-result transaction ids,
// processing-result vendor references, then the order reference itself.
// First match wins; no match returns gorm.ErrRecordNotFound.
func (r *repository) MatchVendorSignals(ctx context.Context, vendorOrderID, reference string) (*models.Order, error) {
	if vendorOrderID != "" {
		if order, err := r.firstMatch(ctx, "vendor_order_id = ?", vendorOrderID); err == nil {
			return order, nil
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if order, err := r.matchByResultColumn(ctx, "transaction_id", vendorOrderID); err == nil {
			return order, nil
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if reference != "" {
		if order, err := r.matchByResultColumn(ctx, "vendor_reference", reference); err == nil {
			return order, nil
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if order, err := r.firstMatch(ctx, "reference = ?", reference); err == nil {
			return order, nil
		} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, gorm.ErrRecordNotFound
}

func (r *repository) firstMatch(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Results", orderResultsOrdering).
		First(&order, query, arg).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) matchByResultColumn(ctx context.Context, column, value string) (*models.Order, error) {
	var result models.OrderProcessingResult
	err := r.db.WithContext(ctx).
		Where(column+" = ?", value).
		Order("created_at ASC").
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, result.OrderID)
}

func (r *repository) AppendResult(ctx context.Context, result *models.OrderProcessingResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *repository) AppendWebhookEvent(ctx context.Context, event *models.OrderWebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		return query.Where("user_id = ?", userID)
	})
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, string, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.Network != nil {
			query = query.Where("network = ?", *filters.Network)
		}
		return query
	})
}

func (r *repository) list(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := scope(r.db.WithContext(ctx)).
		Preload("Results", orderResultsOrdering).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// IncrementUserCounters bumps the daily usage counters in one atomic
// statement, lazily resetting them when the stored counters_date has fallen
// behind today.
func (r *repository) IncrementUserCounters(ctx context.Context, userID uuid.UUID, today string, volumeGB, amount decimal.Decimal) error {
	return r.db.WithContext(ctx).Exec(`
UPDATE users SET
  orders_today = CASE WHEN counters_date = ? THEN orders_today + 1 ELSE 1 END,
  data_today_gb = CASE WHEN counters_date = ? THEN data_today_gb + ? ELSE ? END,
  spent_today = CASE WHEN counters_date = ? THEN spent_today + ? ELSE ? END,
  counters_date = ?,
  total_data_gb = total_data_gb + ?,
  updated_at = CURRENT_TIMESTAMP
WHERE id = ?`,
		today,
		today, volumeGB, volumeGB,
		today, amount, amount,
		today,
		volumeGB,
		userID,
	).Error
}

func orderResultsOrdering(db *gorm.DB) *gorm.DB {
	return db.Order("idx ASC")
}
