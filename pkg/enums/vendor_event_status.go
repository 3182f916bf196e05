package enums

import "fmt"

// VendorEventStatus is the status carried by a vendor webhook event.
type VendorEventStatus string

const (
	VendorEventStatusPending    VendorEventStatus = "pending"
	VendorEventStatusProcessing VendorEventStatus = "processing"
	VendorEventStatusDelivered  VendorEventStatus = "delivered"
	VendorEventStatusFailed     VendorEventStatus = "failed"
	VendorEventStatusCancelled  VendorEventStatus = "cancelled"
	VendorEventStatusRefunded   VendorEventStatus = "refunded"
	VendorEventStatusResolved   VendorEventStatus = "resolved"
)

var validVendorEventStatuses = []VendorEventStatus{
	VendorEventStatusPending,
	VendorEventStatusProcessing,
	VendorEventStatusDelivered,
	VendorEventStatusFailed,
	VendorEventStatusCancelled,
	VendorEventStatusRefunded,
	VendorEventStatusResolved,
}

// String implements fmt.Stringer.
func (v VendorEventStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorEventStatus.
func (v VendorEventStatus) IsValid() bool {
	for _, candidate := range validVendorEventStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// OrderStatus maps the vendor-reported status onto the order lifecycle.
// Delivered/resolved complete the order, failure-class statuses fail it,
// anything else keeps the order in processing.
func (v VendorEventStatus) OrderStatus() OrderStatus {
	switch v {
	case VendorEventStatusDelivered, VendorEventStatusResolved:
		return OrderStatusCompleted
	case VendorEventStatusFailed, VendorEventStatusCancelled, VendorEventStatusRefunded:
		return OrderStatusFailed
	default:
		return OrderStatusProcessing
	}
}

// ParseVendorEventStatus converts raw input into a VendorEventStatus.
func ParseVendorEventStatus(value string) (VendorEventStatus, error) {
	for _, candidate := range validVendorEventStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor event status %q", value)
}
