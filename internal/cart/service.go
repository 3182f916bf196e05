package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/redis"
)

const maxLineQuantity = 50

// Line is one cart entry. Quantity for the same (product, phone) pair
// accumulates instead of duplicating lines.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Phone     string    `json:"phone"`
}

// Cart is the ephemeral per-user cart stored in Redis.
type Cart struct {
	Lines []Line `json:"lines"`
}

// IsEmpty reports whether the cart holds no purchasable units.
func (c Cart) IsEmpty() bool {
	for _, line := range c.Lines {
		if line.Quantity > 0 {
			return false
		}
	}
	return true
}

// AddInput is one add-to-cart request.
type AddInput struct {
	ProductID uuid.UUID
	Quantity  int
	Phone     string
}

// Store is the Redis surface the cart service needs.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

// ProductReader resolves products for add-to-cart validation.
type ProductReader interface {
	FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// Service manages the per-user shopping cart.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, input AddInput) (*Cart, error)
	Get(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Remove(ctx context.Context, userID uuid.UUID, productID uuid.UUID, phone string) (*Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store    Store
	products ProductReader
	ttl      time.Duration
}

// NewService wires a cart service with its Redis store and product reader.
func NewService(store Store, products ProductReader, cfg config.CartConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &service{store: store, products: products, ttl: ttl}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddInput) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}
	if input.Quantity > maxLineQuantity {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", maxLineQuantity))
	}
	phone := strings.TrimSpace(input.Phone)
	if phone == "" {
		return nil, errors.New(errors.CodeValidation, "phone number is required")
	}

	if _, err := s.products.FindByID(ctx, input.ProductID); err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, err, "product not found")
	}

	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range cart.Lines {
		if cart.Lines[i].ProductID == input.ProductID && cart.Lines[i].Phone == phone {
			cart.Lines[i].Quantity += input.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Lines = append(cart.Lines, Line{
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			Phone:     phone,
		})
	}

	if err := s.save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}

	raw, err := s.store.Get(ctx, s.store.CartKey(userID.String()))
	if err != nil {
		if err == redis.Nil {
			return &Cart{}, nil
		}
		return nil, errors.Wrap(errors.CodeDependency, err, "reading cart")
	}

	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		// A corrupted cart reads as empty rather than blocking the user.
		return &Cart{}, nil
	}
	return &cart, nil
}

func (s *service) Remove(ctx context.Context, userID uuid.UUID, productID uuid.UUID, phone string) (*Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	phone = strings.TrimSpace(phone)
	filtered := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.ProductID == productID && (phone == "" || line.Phone == phone) {
			continue
		}
		filtered = append(filtered, line)
	}
	cart.Lines = filtered

	if len(cart.Lines) == 0 {
		if err := s.Clear(ctx, userID); err != nil {
			return nil, err
		}
		return &Cart{}, nil
	}
	if err := s.save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return errors.New(errors.CodeValidation, "user id is required")
	}
	if err := s.store.Del(ctx, s.store.CartKey(userID.String())); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) save(ctx context.Context, userID uuid.UUID, cart *Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "marshal cart")
	}
	if err := s.store.Set(ctx, s.store.CartKey(userID.String()), string(payload), s.ttl); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "saving cart")
	}
	return nil
}
