package paystackwebhook

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/bundlehubgh/bundlehub-backend/internal/cart"
	"github.com/bundlehubgh/bundlehub-backend/pkg/errors"
)

// EventChargeSuccess is the only Paystack event this service acts on.
const EventChargeSuccess = "charge.success"

// Purpose values carried in transaction metadata, set at initialize time.
const (
	PurposeOrder  = "order"
	PurposeWallet = "wallet"
)

// Event is a parsed Paystack webhook payload.
type Event struct {
	Type string    `json:"event"`
	Data EventData `json:"data"`
}

// EventData is the charge body. Amount is in pesewas.
type EventData struct {
	Reference string        `json:"reference"`
	Amount    int64         `json:"amount"`
	Currency  string        `json:"currency"`
	Status    string        `json:"status"`
	Customer  EventCustomer `json:"customer"`
	Metadata  EventMetadata `json:"metadata"`
}

// EventCustomer identifies the paying customer.
type EventCustomer struct {
	Email string `json:"email"`
}

// EventMetadata echoes back what checkout attached at initialize time.
type EventMetadata struct {
	Type   string         `json:"type"`
	UserID string         `json:"user_id"`
	Cart   []MetadataLine `json:"cart,omitempty"`
}

// MetadataLine is one cart line snapshot from the initialize call.
type MetadataLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Phone     string `json:"phone,omitempty"`
}

// ParseEvent decodes a raw webhook body. Signature verification happens
// before this in the controller, over the untouched bytes.
func ParseEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "decode paystack event")
	}
	if strings.TrimSpace(event.Type) == "" {
		return nil, errors.New(errors.CodeValidation, "paystack event type is required")
	}
	return &event, nil
}

// ParsedUserID parses the metadata user id.
func (m EventMetadata) ParsedUserID() (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(m.UserID))
	if err != nil {
		return uuid.Nil, errors.New(errors.CodeValidation, "metadata user_id is not a valid uuid")
	}
	return id, nil
}

// CartLines converts the metadata snapshot back into cart lines, dropping
// malformed entries rather than failing the whole event.
func (m EventMetadata) CartLines() []cart.Line {
	lines := make([]cart.Line, 0, len(m.Cart))
	for _, entry := range m.Cart {
		productID, err := uuid.Parse(strings.TrimSpace(entry.ProductID))
		if err != nil || entry.Quantity <= 0 {
			continue
		}
		lines = append(lines, cart.Line{
			ProductID: productID,
			Quantity:  entry.Quantity,
			Phone:     entry.Phone,
		})
	}
	return lines
}
