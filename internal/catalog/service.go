package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
)

// Service exposes product catalog operations. Listing is role-aware: the
// returned views carry the price the caller's role would pay.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, productID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	List(ctx context.Context, role enums.UserRole, network *enums.Network) ([]ProductView, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Network     enums.Network
	Volume      string
	PriceUser   decimal.Decimal
	PriceAgent  decimal.Decimal
	Description *string
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Volume      *string
	PriceUser   *decimal.Decimal
	PriceAgent  *decimal.Decimal
	Description *string
}

// ProductView is a product with the price resolved for the caller's role.
type ProductView struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Network     enums.Network   `json:"network"`
	Volume      string          `json:"volume"`
	Price       decimal.Decimal `json:"price"`
	Description *string         `json:"description,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if err := validatePricing(input.PriceUser, input.PriceAgent); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New(errors.CodeValidation, "product name is required")
	}
	if !input.Network.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown network %q", input.Network))
	}
	if strings.TrimSpace(input.Volume) == "" {
		return nil, errors.New(errors.CodeValidation, "volume label is required")
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Network:     input.Network,
		Volume:      strings.TrimSpace(input.Volume),
		PriceUser:   input.PriceUser,
		PriceAgent:  input.PriceAgent,
		Description: input.Description,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, errors.New(errors.CodeValidation, "product name cannot be empty")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Volume != nil {
		if strings.TrimSpace(*input.Volume) == "" {
			return nil, errors.New(errors.CodeValidation, "volume label cannot be empty")
		}
		product.Volume = strings.TrimSpace(*input.Volume)
	}
	if input.PriceUser != nil {
		product.PriceUser = *input.PriceUser
	}
	if input.PriceAgent != nil {
		product.PriceAgent = *input.PriceAgent
	}
	if input.Description != nil {
		product.Description = input.Description
	}

	if err := validatePricing(product.PriceUser, product.PriceAgent); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.Get(ctx, productID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, productID)
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	return product, nil
}

func (s *service) List(ctx context.Context, role enums.UserRole, network *enums.Network) ([]ProductView, error) {
	if network != nil && !network.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown network %q", *network))
	}
	products, err := s.repo.List(ctx, network)
	if err != nil {
		return nil, err
	}

	views := make([]ProductView, 0, len(products))
	for _, product := range products {
		views = append(views, ProductView{
			ID:          product.ID,
			Name:        product.Name,
			Network:     product.Network,
			Volume:      product.Volume,
			Price:       product.PriceFor(role),
			Description: product.Description,
		})
	}
	return views, nil
}

// validatePricing enforces positive tiered prices that must differ.
func validatePricing(priceUser, priceAgent decimal.Decimal) error {
	if !priceUser.IsPositive() {
		return errors.New(errors.CodeValidation, "user price must be positive")
	}
	if !priceAgent.IsPositive() {
		return errors.New(errors.CodeValidation, "agent price must be positive")
	}
	if priceUser.Equal(priceAgent) {
		return errors.New(errors.CodeValidation, "user and agent prices must differ")
	}
	return nil
}
