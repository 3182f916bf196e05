package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
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

// Service defines the wallet ledger operations.
type Service interface {
	Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error)
}

// MutationInput captures one balance change request.
type MutationInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Reference string
	Note      string
}

type service struct {
	repo    Repository
	tx      TxRunner
	emitter Emitter
}

// NewService wires a wallet service with its repository and transaction runner.
func NewService(repo Repository, tx TxRunner, emitter Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, emitter: emitter}, nil
}

func (s *service) Credit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}

	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := fetchWalletUser(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		ok, err := repo.Credit(ctx, user.ID, input.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New(errors.CodeNotFound, "user not found")
		}

		txn, err = s.recordTransaction(ctx, repo, user.ID, enums.WalletEntryCredit, input)
		if err != nil {
			return err
		}

		if s.emitter != nil {
			return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventWalletCredited,
				AggregateType: enums.AggregateWallet,
				AggregateID:   user.ID,
				Data: map[string]any{
					"user_id":       user.ID.String(),
					"amount":        input.Amount.StringFixed(2),
					"balance_after": txn.BalanceAfter.StringFixed(2),
					"reference":     input.Reference,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Debit(ctx context.Context, input MutationInput) (*models.WalletTransaction, error) {
	if err := validateMutation(input); err != nil {
		return nil, err
	}

	var txn *models.WalletTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := fetchWalletUser(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		ok, err := repo.Debit(ctx, user.ID, input.Amount)
		if err != nil {
			return err
		}
		if !ok {
			// The guarded update matched no row: balance was insufficient.
			return errors.New(errors.CodeInsufficientFunds,
				fmt.Sprintf("insufficient wallet balance: required %s, available %s",
					input.Amount.StringFixed(2), user.WalletBalance.StringFixed(2))).
				WithDetails(map[string]string{
					"required":  input.Amount.StringFixed(2),
					"available": user.WalletBalance.StringFixed(2),
				})
		}

		txn, err = s.recordTransaction(ctx, repo, user.ID, enums.WalletEntryDebit, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := fetchWalletUser(ctx, s.repo, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.WalletBalance, nil
}

func (s *service) Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	if userID == uuid.Nil {
		return nil, "", errors.New(errors.CodeValidation, "user id is required")
	}
	return s.repo.ListTransactions(ctx, userID, params)
}

// recordTransaction re-reads the post-mutation balance and appends the audit
// row inside the same transaction.
func (s *service) recordTransaction(ctx context.Context, repo Repository, userID uuid.UUID, entryType enums.WalletEntryType, input MutationInput) (*models.WalletTransaction, error) {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		UserID:       userID,
		Type:         entryType,
		Amount:       input.Amount,
		BalanceAfter: user.WalletBalance,
	}
	if input.Reference != "" {
		txn.Reference = &input.Reference
	}
	if input.Note != "" {
		txn.Note = &input.Note
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func fetchWalletUser(ctx context.Context, repo Repository, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	if !user.Role.HasWallet() {
		return nil, errors.New(errors.CodeForbidden, "wallet is only available to agents")
	}
	return user, nil
}

func validateMutation(input MutationInput) error {
	if input.UserID == uuid.Nil {
		return errors.New(errors.CodeValidation, "user id is required")
	}
	if !input.Amount.IsPositive() {
		return errors.New(errors.CodeValidation, "amount must be positive")
	}
	return nil
}
