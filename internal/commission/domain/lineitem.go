package domain

import (
	"context"
	"time"
)

// LineItem is one order line joined with the vendor and category names it
// resolves against. Order data is owned by the marketplace; commission reads
// it but never writes it.
type LineItem struct {
	OrderID      int64
	ItemID       string
	ProductID    string
	VendorID     string
	CategoryID   string
	VendorName   string
	CategoryName string
	Price        float64
	Quantity     int64
	OrderedAt    time.Time
}

// Gross is the pre-commission value of the line.
func (li LineItem) Gross() float64 {
	return li.Price * float64(li.Quantity)
}

// LineItemSource reads order lines from the marketplace order data.
type LineItemSource interface {
	// ListLineItemsByOrderIDs returns every line belonging to the given
	// orders, in stable order. Unknown order ids yield no lines.
	ListLineItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]LineItem, error)
	// ListLineItemsInWindow returns every line ordered in [start, end),
	// optionally restricted to one vendor.
	ListLineItemsInWindow(ctx context.Context, start, end time.Time, vendorID string) ([]LineItem, error)
}
