package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/bundlehubgh/bundlehub-backend/internal/cart"
	"github.com/bundlehubgh/bundlehub-backend/internal/orders"
	"github.com/bundlehubgh/bundlehub-backend/internal/vendor"
	"github.com/bundlehubgh/bundlehub-backend/internal/wallet"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
	"github.com/bundlehubgh/bundlehub-backend/pkg/paystack"
)

var pesewasPerCedi = decimal.NewFromInt(100)

// CartReader is the cart surface checkout needs.
type CartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// ProductReader resolves products for pricing.
type ProductReader interface {
	FindByID(ctx context.Context, productID uuid.UUID) (*models.Product, error)
}

// WalletDebiter performs the atomic up-front debit on the wallet path.
type WalletDebiter interface {
	Debit(ctx context.Context, input wallet.MutationInput) (*models.WalletTransaction, error)
}

// OrderWriter creates orders and records dispatch outcomes.
type OrderWriter interface {
	Create(ctx context.Context, input orders.CreateInput) (*models.Order, error)
	RecordDispatchResult(ctx context.Context, orderID uuid.UUID, result vendor.Result) (*models.Order, error)
}

// PaymentInitializer opens a hosted Paystack checkout session.
type PaymentInitializer interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error)
}

// Input is one checkout request.
type Input struct {
	UserID        uuid.UUID
	Email         string
	Role          enums.UserRole
	PaymentMethod enums.PaymentMethod
}

// SingleInput is the single-item purchase path: same branching as a cart
// checkout but for one product.
type SingleInput struct {
	UserID        uuid.UUID
	Email         string
	Role          enums.UserRole
	ProductID     uuid.UUID
	Phone         string
	Quantity      int
	PaymentMethod enums.PaymentMethod
}

// Result is either a batch of created orders (wallet path) or a payment
// session to redirect to (Paystack path).
type Result struct {
	Total   decimal.Decimal             `json:"total"`
	Orders  []models.Order              `json:"orders,omitempty"`
	Payment *paystack.InitializeResponse `json:"payment,omitempty"`
}

// Service orchestrates cart checkout across wallet, vendor and orders.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
	PurchaseSingle(ctx context.Context, input SingleInput) (*Result, error)
	FulfillLines(ctx context.Context, userID uuid.UUID, role enums.UserRole, lines []cart.Line, method enums.PaymentMethod) ([]models.Order, error)
}

type service struct {
	carts      CartReader
	products   ProductReader
	wallet     WalletDebiter
	orders     OrderWriter
	dispatcher vendor.Dispatcher
	payments   PaymentInitializer
	logg       *logger.Logger
}

// NewService wires the checkout orchestrator. The payment initializer may be
// nil when Paystack is not configured; the Paystack path then fails with a
// configuration error instead of at startup.
func NewService(
	carts CartReader,
	products ProductReader,
	walletSvc WalletDebiter,
	orderSvc OrderWriter,
	dispatcher vendor.Dispatcher,
	payments PaymentInitializer,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("vendor dispatcher required")
	}
	return &service{
		carts:      carts,
		products:   products,
		wallet:     walletSvc,
		orders:     orderSvc,
		dispatcher: dispatcher,
		payments:   payments,
		logg:       logg,
	}, nil
}

// pricedLine is a cart line joined with its product snapshot and the unit
// price resolved for the buyer's role.
type pricedLine struct {
	product  models.Product
	quantity int
	phone    string
	price    decimal.Decimal
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}

	userCart, err := s.carts.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	priced, total, err := s.priceLines(ctx, input.Role, userCart.Lines)
	if err != nil {
		return nil, err
	}
	if len(priced) == 0 {
		return nil, errors.New(errors.CodeValidation, "cart is empty")
	}

	switch input.PaymentMethod {
	case enums.PaymentMethodWallet:
		return s.walletCheckout(ctx, input, priced, total)
	case enums.PaymentMethodPaystack:
		return s.paystackCheckout(ctx, input, userCart.Lines, total)
	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}
}

func (s *service) PurchaseSingle(ctx context.Context, input SingleInput) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "product id is required")
	}
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	line := cart.Line{ProductID: input.ProductID, Quantity: quantity, Phone: input.Phone}
	priced, total, err := s.priceLines(ctx, input.Role, []cart.Line{line})
	if err != nil {
		return nil, err
	}
	if len(priced) == 0 {
		return nil, errors.New(errors.CodeNotFound, "product not found")
	}

	switch input.PaymentMethod {
	case enums.PaymentMethodWallet:
		if err := s.debitWallet(ctx, input.UserID, input.Role, total); err != nil {
			return nil, err
		}
		batch := s.fulfill(ctx, input.UserID, priced, enums.PaymentMethodWallet)
		return &Result{Total: total, Orders: batch}, nil
	case enums.PaymentMethodPaystack:
		session, err := s.initializePayment(ctx, input.Email, input.UserID, total, []cart.Line{line})
		if err != nil {
			return nil, err
		}
		return &Result{Total: total, Payment: session}, nil
	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}
}

// FulfillLines re-derives pricing for the given lines and fans them out into
// one order per unit, dispatching each to the vendor. Used by the Paystack
// success webhook, where payment already happened out of band.
func (s *service) FulfillLines(ctx context.Context, userID uuid.UUID, role enums.UserRole, lines []cart.Line, method enums.PaymentMethod) ([]models.Order, error) {
	priced, _, err := s.priceLines(ctx, role, lines)
	if err != nil {
		return nil, err
	}
	if len(priced) == 0 {
		return nil, errors.New(errors.CodeValidation, "no purchasable lines")
	}
	return s.fulfill(ctx, userID, priced, method), nil
}

func (s *service) walletCheckout(ctx context.Context, input Input, priced []pricedLine, total decimal.Decimal) (*Result, error) {
	if err := s.debitWallet(ctx, input.UserID, input.Role, total); err != nil {
		return nil, err
	}

	batch := s.fulfill(ctx, input.UserID, priced, enums.PaymentMethodWallet)

	// Clearing last: a crash mid-batch leaves the cart intact for support
	// rather than silently dropping paid-for lines.
	if err := s.carts.Clear(ctx, input.UserID); err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "clearing cart after wallet checkout", err)
		}
	}
	return &Result{Total: total, Orders: batch}, nil
}

func (s *service) paystackCheckout(ctx context.Context, input Input, lines []cart.Line, total decimal.Decimal) (*Result, error) {
	session, err := s.initializePayment(ctx, input.Email, input.UserID, total, lines)
	if err != nil {
		return nil, err
	}
	// The cart survives: the success webhook re-derives it and clears it.
	return &Result{Total: total, Payment: session}, nil
}

func (s *service) debitWallet(ctx context.Context, userID uuid.UUID, role enums.UserRole, total decimal.Decimal) error {
	if !role.HasWallet() {
		return errors.New(errors.CodeForbidden, "wallet checkout is only available to agents")
	}
	_, err := s.wallet.Debit(ctx, wallet.MutationInput{
		UserID:    userID,
		Amount:    total,
		Reference: "checkout",
		Note:      "bundle checkout",
	})
	return err
}

// fulfill creates one order per purchased unit and dispatches each to the
// vendor sequentially. Dispatch failures are recorded on the order and never
// abort the batch: payment is already captured at this point.
func (s *service) fulfill(ctx context.Context, userID uuid.UUID, priced []pricedLine, method enums.PaymentMethod) []models.Order {
	var batch []models.Order
	var dispatchErrs error

	for _, line := range priced {
		for unit := 0; unit < line.quantity; unit++ {
			order, err := s.orders.Create(ctx, orders.CreateInput{
				UserID:        userID,
				ProductID:     line.product.ID,
				Price:         line.price,
				Volume:        line.product.Volume,
				Network:       line.product.Network,
				Phone:         line.phone,
				PaymentMethod: method,
				PaymentStatus: enums.PaymentStatusSuccess,
			})
			if err != nil {
				dispatchErrs = multierr.Append(dispatchErrs, err)
				continue
			}

			if line.phone == "" {
				batch = append(batch, *order)
				continue
			}

			result := s.dispatcher.PurchaseWithRetry(ctx, vendor.PurchaseRequest{
				Phone:     line.phone,
				VolumeGB:  wholeGB(line.product.Volume),
				Network:   line.product.Network,
				Reference: order.Reference,
			})
			updated, err := s.orders.RecordDispatchResult(ctx, order.ID, result)
			if err != nil {
				dispatchErrs = multierr.Append(dispatchErrs, err)
				batch = append(batch, *order)
				continue
			}
			batch = append(batch, *updated)
		}
	}

	if dispatchErrs != nil && s.logg != nil {
		s.logg.Error(ctx, "checkout batch had recording failures", dispatchErrs)
	}
	return batch
}

func (s *service) priceLines(ctx context.Context, role enums.UserRole, lines []cart.Line) ([]pricedLine, decimal.Decimal, error) {
	var priced []pricedLine
	total := decimal.Zero

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			// Products deleted since the cart was built are skipped, not fatal.
			continue
		}
		price := product.PriceFor(role)
		priced = append(priced, pricedLine{
			product:  *product,
			quantity: line.Quantity,
			phone:    line.Phone,
			price:    price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return priced, total, nil
}

func (s *service) initializePayment(ctx context.Context, email string, userID uuid.UUID, total decimal.Decimal, lines []cart.Line) (*paystack.InitializeResponse, error) {
	if s.payments == nil {
		return nil, errors.New(errors.CodeConfiguration, "payment gateway is not configured")
	}
	if email == "" {
		return nil, errors.New(errors.CodeValidation, "email is required for gateway checkout")
	}

	snapshot := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		snapshot = append(snapshot, map[string]any{
			"product_id": line.ProductID.String(),
			"quantity":   line.Quantity,
			"phone":      line.Phone,
		})
	}

	return s.payments.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:  email,
		Amount: total.Mul(pesewasPerCedi).IntPart(),
		Metadata: map[string]any{
			"type":    "order",
			"user_id": userID.String(),
			"cart":    snapshot,
		},
	})
}

// wholeGB extracts the integer GB size the vendor API expects. Labels that
// are not a whole number of GB come back as 0 and fail dispatch closed.
func wholeGB(volume string) int {
	gb := orders.ParseVolumeLabel(volume)
	if !gb.IsInteger() || !gb.IsPositive() {
		return 0
	}
	return int(gb.IntPart())
}
