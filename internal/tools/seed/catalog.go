package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ledgerline/commission/internal/commission/storage"
)

type demoVendor struct {
	id   string
	name string
}

type demoCategory struct {
	id   string
	name string
}

type demoProduct struct {
	id         string
	vendorID   string
	categoryID string
}

type demoRule struct {
	level      string
	targetID   string
	percentage float64
	note       string
}

type demoDiscount struct {
	membershipID string
	percentage   float64
	note         string
}

var demoVendors = []demoVendor{
	{"v-acme", "Acme Outfitters"},
	{"v-harbor", "Blue Harbor Trading"},
	{"v-cascade", "Cascade Supply Co."},
	{"v-nimbus", "Nimbus Electronics"},
}

var demoCategories = []demoCategory{
	{"c-electronics", "Electronics"},
	{"c-outdoors", "Outdoors"},
	{"c-home", "Home & Kitchen"},
}

var demoProducts = []demoProduct{
	{"p-1001", "v-acme", "c-outdoors"},
	{"p-1002", "v-acme", "c-home"},
	{"p-2001", "v-harbor", "c-home"},
	{"p-2002", "v-harbor", "c-outdoors"},
	{"p-3001", "v-cascade", "c-electronics"},
	{"p-4001", "v-nimbus", "c-electronics"},
	{"p-4002", "v-nimbus", "c-home"},
}

var demoRules = []demoRule{
	{"global", "", 10, "default marketplace rate"},
	{"category", "c-electronics", 8, "competitive electronics rate"},
	{"vendor", "v-acme", 12, "standard vendor agreement"},
	{"product", "p-1001", 5, "launch promotion"},
}

var demoDiscounts = []demoDiscount{
	{"gold", 2, "gold tier"},
	{"platinum", 5, "platinum tier"},
}

// generateOrder builds one demo order with 1-3 line items drawn from the
// product catalog. Orders land within the 90 days before now.
func generateOrder(rng *rand.Rand, orderID int64, now time.Time) (storage.OrderRecord, []storage.OrderItemRecord) {
	orderedAt := now.Add(-time.Duration(rng.Intn(90*24)) * time.Hour)
	count := rng.Intn(3) + 1
	items := make([]storage.OrderItemRecord, 0, count)
	for i := 0; i < count; i++ {
		product := demoProducts[rng.Intn(len(demoProducts))]
		items = append(items, storage.OrderItemRecord{
			OrderID:    orderID,
			ItemID:     fmt.Sprintf("item-%d", i+1),
			ProductID:  product.id,
			VendorID:   product.vendorID,
			CategoryID: product.categoryID,
			Price:      float64(rng.Intn(95000)+500) / 100,
			Quantity:   int64(rng.Intn(5) + 1),
		})
	}
	return storage.OrderRecord{OrderID: orderID, OrderedAt: orderedAt}, items
}
