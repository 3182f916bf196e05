package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bundlehubgh/bundlehub-backend/internal/cart"
	"github.com/bundlehubgh/bundlehub-backend/internal/orders"
	"github.com/bundlehubgh/bundlehub-backend/internal/vendor"
	"github.com/bundlehubgh/bundlehub-backend/internal/wallet"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/paystack"
)

type stubCart struct {
	cart    cart.Cart
	cleared int
}

func (s *stubCart) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	copied := s.cart
	return &copied, nil
}

func (s *stubCart) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared++
	return nil
}

type stubProducts struct {
	products map[uuid.UUID]models.Product
}

func (s *stubProducts) FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, ok := s.products[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

type stubWallet struct {
	balance decimal.Decimal
	debits  []decimal.Decimal
}

func (s *stubWallet) Debit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error) {
	if s.balance.LessThan(input.Amount) {
		return nil, errors.New(errors.CodeInsufficientFunds, "insufficient wallet balance")
	}
	s.balance = s.balance.Sub(input.Amount)
	s.debits = append(s.debits, input.Amount)
	return &models.WalletTransaction{
		UserID:       input.UserID,
		Type:         enums.WalletEntryDebit,
		Amount:       input.Amount,
		BalanceAfter: s.balance,
	}, nil
}

type stubOrders struct {
	created  []orders.CreateInput
	recorded []vendor.Result
	orders   map[uuid.UUID]*models.Order
}

func newStubOrders() *stubOrders {
	return &stubOrders{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrders) Create(ctx context.Context, input orders.CreateInput) (*models.Order, error) {
	s.created = append(s.created, input)
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		ProductID:     input.ProductID,
		Reference:     "BH-" + uuid.NewString(),
		Price:         input.Price,
		Volume:        input.Volume,
		Network:       input.Network,
		PhoneNumber:   input.Phone,
		Status:        enums.OrderStatusPending,
		PaymentStatus: input.PaymentStatus,
		PaymentMethod: input.PaymentMethod,
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrders) RecordDispatchResult(ctx context.Context, orderID uuid.UUID, result vendor.Result) (*models.Order, error) {
	s.recorded = append(s.recorded, result)
	order := s.orders[orderID]
	if result.Success {
		order.Status = enums.OrderStatusProcessing
	} else {
		order.Status = enums.OrderStatusFailed
	}
	return order, nil
}

type stubDispatcher struct {
	calls   int
	results []vendor.Result
}

func (s *stubDispatcher) PurchaseWithRetry(ctx context.Context, req vendor.PurchaseRequest) vendor.Result {
	result := vendor.Result{Success: true, TransactionID: "txn", Status: "pending"}
	if s.calls < len(s.results) {
		result = s.results[s.calls]
	}
	s.calls++
	return result
}

type stubPayments struct {
	requests []paystack.InitializeRequest
}

func (s *stubPayments) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	s.requests = append(s.requests, req)
	return &paystack.InitializeResponse{
		AuthorizationURL: "https://checkout.paystack.com/x",
		Reference:        "ps-ref",
	}, nil
}

type fixture struct {
	carts      *stubCart
	products   *stubProducts
	wallet     *stubWallet
	orders     *stubOrders
	dispatcher *stubDispatcher
	payments   *stubPayments
	svc        Service
}

func newFixture(t *testing.T, balance string, lines ...cart.Line) *fixture {
	t.Helper()

	f := &fixture{
		carts:      &stubCart{cart: cart.Cart{Lines: lines}},
		products:   &stubProducts{products: map[uuid.UUID]models.Product{}},
		wallet:     &stubWallet{balance: decimal.RequireFromString(balance)},
		orders:     newStubOrders(),
		dispatcher: &stubDispatcher{},
		payments:   &stubPayments{},
	}
	svc, err := NewService(f.carts, f.products, f.wallet, f.orders, f.dispatcher, f.payments, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) addProduct(t *testing.T, userPrice, agentPrice string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.products.products[id] = models.Product{
		ID:         id,
		Name:       "MTN 5GB",
		Network:    enums.NetworkMTN,
		Volume:     "5GB",
		PriceUser:  decimal.RequireFromString(userPrice),
		PriceAgent: decimal.RequireFromString(agentPrice),
	}
	return id
}

func TestCheckoutEmptyCartFailsWithNoSideEffects(t *testing.T) {
	f := newFixture(t, "100.00")

	_, err := f.svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if !errors.IsCode(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.wallet.debits) != 0 {
		t.Fatal("expected no wallet debit")
	}
	if len(f.orders.created) != 0 {
		t.Fatal("expected no orders created")
	}
}

func TestCheckoutInsufficientFundsCreatesNothing(t *testing.T) {
	f := newFixture(t, "10.00")
	productID := f.addProduct(t, "30.00", "26.50")
	f.carts.cart.Lines = []cart.Line{{ProductID: productID, Quantity: 1, Phone: "0241234567"}}

	_, err := f.svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if !errors.IsCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(f.orders.created) != 0 {
		t.Fatal("expected no orders created")
	}
	if f.carts.cleared != 0 {
		t.Fatal("expected cart untouched")
	}
}

func TestCheckoutExactBalanceSucceeds(t *testing.T) {
	f := newFixture(t, "26.50")
	productID := f.addProduct(t, "30.00", "26.50")
	f.carts.cart.Lines = []cart.Line{{ProductID: productID, Quantity: 1, Phone: "0241234567"}}

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !f.wallet.balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", f.wallet.balance)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(result.Orders))
	}
}

func TestCheckoutQuantityFansOutIntoIndependentOrders(t *testing.T) {
	f := newFixture(t, "100.00")
	productID := f.addProduct(t, "30.00", "26.50")
	f.carts.cart.Lines = []cart.Line{{ProductID: productID, Quantity: 3, Phone: "0241234567"}}

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if len(result.Orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(result.Orders))
	}
	for _, order := range result.Orders {
		if !order.Price.Equal(decimal.RequireFromString("26.50")) {
			t.Fatalf("expected unit snapshot price, got %s", order.Price)
		}
	}
	if f.dispatcher.calls != 3 {
		t.Fatalf("expected 3 dispatches, got %d", f.dispatcher.calls)
	}
	if len(f.wallet.debits) != 1 || !f.wallet.debits[0].Equal(decimal.RequireFromString("79.50")) {
		t.Fatalf("expected one debit of 79.50, got %v", f.wallet.debits)
	}
	if f.carts.cleared != 1 {
		t.Fatal("expected cart cleared once")
	}
}

func TestCheckoutDispatchFailureDoesNotAbortBatchOrRollBack(t *testing.T) {
	f := newFixture(t, "100.00")
	productID := f.addProduct(t, "30.00", "26.50")
	f.carts.cart.Lines = []cart.Line{{ProductID: productID, Quantity: 2, Phone: "0241234567"}}
	f.dispatcher.results = []vendor.Result{
		{Success: false, Err: "VENDOR_ERROR: boom", Status: "failed"},
		{Success: true, TransactionID: "txn-2", Status: "pending"},
	}

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if len(result.Orders) != 2 {
		t.Fatalf("expected both orders in batch, got %d", len(result.Orders))
	}
	if result.Orders[0].Status != enums.OrderStatusFailed {
		t.Fatalf("expected first order failed, got %s", result.Orders[0].Status)
	}
	if result.Orders[1].Status != enums.OrderStatusProcessing {
		t.Fatalf("expected second order processing, got %s", result.Orders[1].Status)
	}
	if len(f.wallet.debits) != 1 {
		t.Fatal("expected debit kept despite dispatch failure")
	}
	if f.carts.cleared != 1 {
		t.Fatal("expected cart cleared after batch")
	}
}

func TestCheckoutMissingProductsAreSkipped(t *testing.T) {
	f := newFixture(t, "100.00")
	productID := f.addProduct(t, "30.00", "26.50")
	f.carts.cart.Lines = []cart.Line{
		{ProductID: uuid.New(), Quantity: 2, Phone: "0241234567"},
		{ProductID: productID, Quantity: 1, Phone: "0241234567"},
	}

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("expected only the known product ordered, got %d", len(result.Orders))
	}
	if !result.Total.Equal(decimal.RequireFromString("26.50")) {
		t.Fatalf("expected total 26.50, got %s", result.Total)
	}
}

func TestCheckoutWalletRequiresAgentRole(t *testing.T) {
	f := newFixture(t, "100.00")
	productID := f.addProduct(t, "30.00", "26.50")
	f.carts.cart.Lines = []cart.Line{{ProductID: productID, Quantity: 1, Phone: "0241234567"}}

	_, err := f.svc.Checkout(context.Background(), Input{
		UserID:        uuid.New(),
		Role:          enums.UserRoleUser,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if !errors.IsCode(err, errors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCheckoutPaystackPathDefersOrders(t *testing.T) {
	f := newFixture(t, "0.00")
	productID := f.addProduct(t, "30.00", "26.50")
	f.carts.cart.Lines = []cart.Line{{ProductID: productID, Quantity: 2, Phone: "0241234567"}}
	userID := uuid.New()

	result, err := f.svc.Checkout(context.Background(), Input{
		UserID:        userID,
		Email:         "u@example.com",
		Role:          enums.UserRoleUser,
		PaymentMethod: enums.PaymentMethodPaystack,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if result.Payment == nil || result.Payment.AuthorizationURL == "" {
		t.Fatal("expected payment session")
	}
	if len(result.Orders) != 0 || len(f.orders.created) != 0 {
		t.Fatal("expected no synchronous orders on gateway path")
	}
	if f.carts.cleared != 0 {
		t.Fatal("expected cart kept until webhook")
	}

	if len(f.payments.requests) != 1 {
		t.Fatalf("expected 1 initialize call, got %d", len(f.payments.requests))
	}
	req := f.payments.requests[0]
	// 2 x 30.00 GHS in pesewas.
	if req.Amount != 6000 {
		t.Fatalf("expected amount 6000 pesewas, got %d", req.Amount)
	}
	if req.Metadata["type"] != "order" {
		t.Fatalf("expected order metadata, got %v", req.Metadata["type"])
	}
	if req.Metadata["user_id"] != userID.String() {
		t.Fatalf("expected user id metadata, got %v", req.Metadata["user_id"])
	}
}

func TestPurchaseSingleWalletPath(t *testing.T) {
	f := newFixture(t, "53.00")
	productID := f.addProduct(t, "30.00", "26.50")

	result, err := f.svc.PurchaseSingle(context.Background(), SingleInput{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		ProductID:     productID,
		Phone:         "0241234567",
		Quantity:      2,
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("purchase single: %v", err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(result.Orders))
	}
	if !f.wallet.balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", f.wallet.balance)
	}
}

func TestPurchaseSingleUnknownProduct(t *testing.T) {
	f := newFixture(t, "100.00")

	_, err := f.svc.PurchaseSingle(context.Background(), SingleInput{
		UserID:        uuid.New(),
		Role:          enums.UserRoleAgent,
		ProductID:     uuid.New(),
		Phone:         "0241234567",
		PaymentMethod: enums.PaymentMethodWallet,
	})
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
