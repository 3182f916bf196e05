package paystackwebhook

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/internal/cart"
	"github.com/bundlehubgh/bundlehub-backend/internal/wallet"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
)

type memoryIdempotencyStore struct {
	keys map[string]bool
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]bool{}}
}

func (s *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "bh:idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

type stubFulfiller struct {
	calls []int
	err   error
}

func (s *stubFulfiller) FulfillLines(ctx context.Context, userID uuid.UUID, role enums.UserRole, lines []cart.Line, method enums.PaymentMethod) ([]models.Order, error) {
	s.calls = append(s.calls, len(lines))
	if s.err != nil {
		return nil, s.err
	}
	batch := make([]models.Order, 0, len(lines))
	for range lines {
		batch = append(batch, models.Order{ID: uuid.New(), UserID: userID, PaymentMethod: method})
	}
	return batch, nil
}

type stubCartClearer struct {
	cleared int
}

func (s *stubCartClearer) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared++
	return nil
}

type stubWalletCreditor struct {
	credits []wallet.MutationInput
}

func (s *stubWalletCreditor) Credit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	s.credits = append(s.credits, input)
	return &models.WalletTransaction{UserID: input.UserID, Amount: input.Amount}, nil
}

type stubUserReader struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserReader) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type webhookFixture struct {
	fulfiller *stubFulfiller
	carts     *stubCartClearer
	wallet    *stubWalletCreditor
	users     *stubUserReader
	svc       *Service
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	guard, err := NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Hour, "paystack")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	f := &webhookFixture{
		fulfiller: &stubFulfiller{},
		carts:     &stubCartClearer{},
		wallet:    &stubWalletCreditor{},
		users:     &stubUserReader{users: map[uuid.UUID]*models.User{}},
	}
	svc, err := NewService(ServiceParams{
		Guard:    guard,
		Checkout: f.fulfiller,
		Carts:    f.carts,
		Wallet:   f.wallet,
		Users:    f.users,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *webhookFixture) addUser(role enums.UserRole) uuid.UUID {
	id := uuid.New()
	f.users.users[id] = &models.User{ID: id, Email: "u@example.com", Role: role}
	return id
}

func orderEvent(userID uuid.UUID, reference string) *Event {
	return &Event{
		Type: EventChargeSuccess,
		Data: EventData{
			Reference: reference,
			Amount:    6000,
			Currency:  "GHS",
			Metadata: EventMetadata{
				Type:   PurposeOrder,
				UserID: userID.String(),
				Cart: []MetadataLine{
					{ProductID: uuid.NewString(), Quantity: 2, Phone: "0241234567"},
				},
			},
		},
	}
}

func TestHandleEventFulfillsOrderCharge(t *testing.T) {
	f := newWebhookFixture(t)
	userID := f.addUser(enums.UserRoleUser)

	if err := f.svc.HandleEvent(context.Background(), orderEvent(userID, "ps-1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.fulfiller.calls) != 1 || f.fulfiller.calls[0] != 1 {
		t.Fatalf("expected one fulfillment with one line, got %v", f.fulfiller.calls)
	}
	if f.carts.cleared != 1 {
		t.Fatal("expected cart cleared after fulfillment")
	}
}

func TestHandleEventDuplicateReferenceSkipped(t *testing.T) {
	f := newWebhookFixture(t)
	userID := f.addUser(enums.UserRoleUser)

	if err := f.svc.HandleEvent(context.Background(), orderEvent(userID, "ps-dup")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := f.svc.HandleEvent(context.Background(), orderEvent(userID, "ps-dup")); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(f.fulfiller.calls) != 1 {
		t.Fatalf("expected a single fulfillment, got %d", len(f.fulfiller.calls))
	}
}

func TestHandleEventFailureReleasesFence(t *testing.T) {
	f := newWebhookFixture(t)
	userID := f.addUser(enums.UserRoleUser)
	f.fulfiller.err = fmt.Errorf("orders table unavailable")

	if err := f.svc.HandleEvent(context.Background(), orderEvent(userID, "ps-retry")); err == nil {
		t.Fatal("expected processing error")
	}

	// The retry from Paystack must be able to claim the reference again.
	f.fulfiller.err = nil
	if err := f.svc.HandleEvent(context.Background(), orderEvent(userID, "ps-retry")); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(f.fulfiller.calls) != 2 {
		t.Fatalf("expected fulfillment attempted twice, got %d", len(f.fulfiller.calls))
	}
	if f.carts.cleared != 1 {
		t.Fatalf("expected cart cleared only on success, got %d", f.carts.cleared)
	}
}

func TestHandleEventWalletTopUp(t *testing.T) {
	f := newWebhookFixture(t)
	userID := f.addUser(enums.UserRoleAgent)

	event := &Event{
		Type: EventChargeSuccess,
		Data: EventData{
			Reference: "ps-topup",
			Amount:    5000,
			Metadata:  EventMetadata{Type: PurposeWallet, UserID: userID.String()},
		},
	}
	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.wallet.credits) != 1 {
		t.Fatalf("expected one credit, got %d", len(f.wallet.credits))
	}
	credit := f.wallet.credits[0]
	if !credit.Amount.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("expected 50.00 GHS from 5000 pesewas, got %s", credit.Amount)
	}
	if credit.Reference != "ps-topup" {
		t.Fatalf("expected charge reference on ledger row, got %q", credit.Reference)
	}
}

func TestHandleEventIgnoresOtherEventTypes(t *testing.T) {
	f := newWebhookFixture(t)

	event := &Event{Type: "transfer.success", Data: EventData{Reference: "tr-1"}}
	if err := f.svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.fulfiller.calls) != 0 || len(f.wallet.credits) != 0 {
		t.Fatal("expected no side effects for unrelated events")
	}
}

func TestHandleEventUnknownUserFails(t *testing.T) {
	f := newWebhookFixture(t)

	err := f.svc.HandleEvent(context.Background(), orderEvent(uuid.New(), "ps-ghost"))
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseEvent(t *testing.T) {
	event, err := ParseEvent([]byte(`{"event":"charge.success","data":{"reference":"r1","amount":100}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.Type != EventChargeSuccess || event.Data.Amount != 100 {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := ParseEvent([]byte(`not json`)); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseEvent([]byte(`{}`)); !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error on missing type, got %v", err)
	}
}
