package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/outbox"
	"github.com/bundlehubgh/bundlehub-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubRepo struct {
	user         *models.User
	getErr       error
	creditOK     bool
	debitOK      bool
	transactions []*models.WalletTransaction
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.user == nil || s.user.ID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.user
	return &copied, nil
}

func (s *stubRepo) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if s.creditOK {
		s.user.WalletBalance = s.user.WalletBalance.Add(amount)
	}
	return s.creditOK, nil
}

func (s *stubRepo) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (bool, error) {
	if s.debitOK && s.user.WalletBalance.GreaterThanOrEqual(amount) {
		s.user.WalletBalance = s.user.WalletBalance.Sub(amount)
		return true, nil
	}
	return false, nil
}

func (s *stubRepo) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	s.transactions = append(s.transactions, txn)
	return nil
}

func (s *stubRepo) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	out := make([]models.WalletTransaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		out = append(out, *txn)
	}
	return out, "", nil
}

func agentUser(balance string) *models.User {
	return &models.User{
		ID:            uuid.New(),
		Email:         "agent@example.com",
		Role:          enums.UserRoleAgent,
		WalletBalance: decimal.RequireFromString(balance),
	}
}

func TestCreditRecordsAuditAndEmitsEvent(t *testing.T) {
	repo := &stubRepo{user: agentUser("10.00"), creditOK: true}
	emitter := &stubEmitter{}
	svc, err := NewService(repo, stubTxRunner{}, emitter)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	txn, err := svc.Credit(context.Background(), MutationInput{
		UserID:    repo.user.ID,
		Amount:    decimal.RequireFromString("25.50"),
		Reference: "topup-1",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if txn.Type != enums.WalletEntryCredit {
		t.Fatalf("unexpected entry type %s", txn.Type)
	}
	if !txn.BalanceAfter.Equal(decimal.RequireFromString("35.50")) {
		t.Fatalf("unexpected balance after %s", txn.BalanceAfter)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType != enums.EventWalletCredited {
		t.Fatalf("unexpected event type %s", emitter.events[0].EventType)
	}
}

func TestDebitInsufficientFundsNamesAmounts(t *testing.T) {
	repo := &stubRepo{user: agentUser("5.00"), debitOK: true}
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Debit(context.Background(), MutationInput{
		UserID: repo.user.ID,
		Amount: decimal.RequireFromString("12.00"),
	})
	if !errors.IsCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "12.00") || !strings.Contains(msg, "5.00") {
		t.Fatalf("expected required and available amounts in message, got %q", msg)
	}
	if len(repo.transactions) != 0 {
		t.Fatalf("expected no audit rows, got %d", len(repo.transactions))
	}
}

func TestDebitExactBalanceSucceeds(t *testing.T) {
	repo := &stubRepo{user: agentUser("12.00"), debitOK: true}
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	txn, err := svc.Debit(context.Background(), MutationInput{
		UserID: repo.user.ID,
		Amount: decimal.RequireFromString("12.00"),
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !txn.BalanceAfter.IsZero() {
		t.Fatalf("expected zero balance after, got %s", txn.BalanceAfter)
	}
}

func TestWalletRejectsNonAgentRoles(t *testing.T) {
	user := agentUser("50.00")
	user.Role = enums.UserRoleUser
	repo := &stubRepo{user: user, debitOK: true}
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Debit(context.Background(), MutationInput{
		UserID: user.ID,
		Amount: decimal.RequireFromString("1.00"),
	}); !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMutationValidation(t *testing.T) {
	repo := &stubRepo{user: agentUser("5.00")}
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Credit(context.Background(), MutationInput{
		UserID: repo.user.ID,
		Amount: decimal.Zero,
	}); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}

	if _, err := svc.Debit(context.Background(), MutationInput{
		UserID: uuid.Nil,
		Amount: decimal.RequireFromString("1.00"),
	}); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error for nil user, got %v", err)
	}
}

func TestBalanceUnknownUser(t *testing.T) {
	repo := &stubRepo{user: agentUser("5.00")}
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Balance(context.Background(), uuid.New()); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
