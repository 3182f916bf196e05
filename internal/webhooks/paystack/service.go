package paystackwebhook

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/internal/cart"
	"github.com/bundlehubgh/bundlehub-backend/internal/wallet"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
)

var pesewasPerCedi = decimal.NewFromInt(100)

type fulfiller interface {
	FulfillLines(ctx context.Context, userID uuid.UUID, role enums.UserRole, lines []cart.Line, method enums.PaymentMethod) ([]models.Order, error)
}

type cartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

type walletCreditor interface {
	Credit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceParams bundles the collaborators the webhook processor needs.
type ServiceParams struct {
	Guard    *IdempotencyGuard
	Checkout fulfiller
	Carts    cartClearer
	Wallet   walletCreditor
	Users    userReader
	Logger   *logger.Logger
}

// Service turns verified Paystack charge events into orders or wallet
// credits. Signature verification happens in the controller before the raw
// body reaches this service.
type Service struct {
	guard    *IdempotencyGuard
	checkout fulfiller
	carts    cartClearer
	wallet   walletCreditor
	users    userReader
	logg     *logger.Logger
}

// NewService wires the Paystack webhook processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard is required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service is required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet service is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	return &Service{
		guard:    params.Guard,
		checkout: params.Checkout,
		carts:    params.Carts,
		wallet:   params.Wallet,
		users:    params.Users,
		logg:     params.Logger,
	}, nil
}

// HandleEvent processes one parsed webhook event. Events other than
// charge.success are acknowledged without action. Duplicate deliveries are
// fenced on the charge reference; a processing failure releases the fence so
// Paystack's retry can land.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New(errors.CodeValidation, "paystack event is required")
	}
	if event.Type != EventChargeSuccess {
		return nil
	}

	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		return errors.New(errors.CodeValidation, "charge reference is required")
	}

	duplicate, err := s.guard.CheckAndMark(ctx, reference)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "idempotency check")
	}
	if duplicate {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"reference": reference})
			s.logg.Info(logCtx, "duplicate paystack event skipped")
		}
		return nil
	}

	if err := s.process(ctx, event); err != nil {
		if releaseErr := s.guard.Release(ctx, reference); releaseErr != nil && s.logg != nil {
			s.logg.Error(ctx, "releasing idempotency claim", releaseErr)
		}
		return err
	}
	return nil
}

func (s *Service) process(ctx context.Context, event *Event) error {
	switch event.Data.Metadata.Type {
	case PurposeOrder:
		return s.fulfillOrder(ctx, event)
	case PurposeWallet:
		return s.creditWallet(ctx, event)
	default:
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"reference":     event.Data.Reference,
				"metadata_type": event.Data.Metadata.Type,
			})
			s.logg.Warn(logCtx, "paystack charge with unknown purpose, ignored")
		}
		return nil
	}
}

// fulfillOrder replays the checkout fan-out for a paid cart snapshot and
// clears the live cart afterwards. Lines whose products vanished since
// initialize are skipped by the pricing pass, same as a wallet checkout.
func (s *Service) fulfillOrder(ctx context.Context, event *Event) error {
	userID, err := event.Data.Metadata.ParsedUserID()
	if err != nil {
		return err
	}
	lines := event.Data.Metadata.CartLines()
	if len(lines) == 0 {
		return errors.New(errors.CodeValidation, "charge metadata carries no cart lines")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeNotFound, "paying user not found")
		}
		return errors.Wrap(errors.CodeInternal, err, "lookup user")
	}

	batch, err := s.checkout.FulfillLines(ctx, userID, user.Role, lines, enums.PaymentMethodPaystack)
	if err != nil {
		return err
	}

	if err := s.carts.Clear(ctx, userID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "clearing cart after paystack fulfillment", err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"reference": event.Data.Reference,
			"user_id":   userID.String(),
			"orders":    len(batch),
		})
		s.logg.Info(logCtx, "paystack order charge fulfilled")
	}
	return nil
}

// creditWallet converts the charged pesewas back to GHS and applies the
// same atomic ledger credit as an admin top-up.
func (s *Service) creditWallet(ctx context.Context, event *Event) error {
	userID, err := event.Data.Metadata.ParsedUserID()
	if err != nil {
		return err
	}
	if event.Data.Amount <= 0 {
		return errors.New(errors.CodeValidation, "charge amount must be positive")
	}
	amount := decimal.NewFromInt(event.Data.Amount).Div(pesewasPerCedi)

	_, err = s.wallet.Credit(ctx, wallet.MutationInput{
		UserID:    userID,
		Amount:    amount,
		Reference: event.Data.Reference,
		Note:      "paystack wallet top-up",
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"reference": event.Data.Reference,
			"user_id":   userID.String(),
			"amount":    amount.StringFixed(2),
		})
		s.logg.Info(logCtx, "paystack wallet top-up credited")
	}
	return nil
}
