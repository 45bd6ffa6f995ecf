package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

const maxAnalyticsWindow = 365 * 24 * time.Hour

var (
	// ErrWindowInvalid indicates an analytics window whose start does not
	// precede its end.
	ErrWindowInvalid = errors.New("window start must be before window end")
	// ErrWindowTooWide indicates an analytics window wider than 365 days.
	ErrWindowTooWide = errors.New("window cannot exceed 365 days")
)

// AnalyticsInput bounds one aggregation window. VendorID optionally narrows
// the scan to a single vendor.
type AnalyticsInput struct {
	Start    time.Time
	End      time.Time
	VendorID string
}

// GroupStat aggregates commission for one vendor or category.
type GroupStat struct {
	ID              string
	Name            string
	TotalCommission float64
	OrderCount      int
	AverageRate     float64
}

// DayStat aggregates commission for one UTC calendar day.
type DayStat struct {
	Day             time.Time
	TotalCommission float64
	OrderCount      int
}

// AnalyticsResult is the full aggregation for one window. Vendor and
// category groups are ordered by total commission descending, days
// ascending.
type AnalyticsResult struct {
	TotalCommission       float64
	TotalOrders           int
	AverageCommissionRate float64
	CommissionByVendor    []GroupStat
	CommissionByCategory  []GroupStat
	DailyBreakdown        []DayStat
}

// Aggregator computes windowed commission statistics from a single line
// item scan. Grouping happens in memory; the store is read exactly once per
// report.
type Aggregator struct {
	resolver RateResolver
	items    LineItemSource
}

// NewAggregator returns an Aggregator resolving rates through resolver and
// reading order lines from items.
func NewAggregator(resolver RateResolver, items LineItemSource) *Aggregator {
	return &Aggregator{resolver: resolver, items: items}
}

type groupAccum struct {
	name       string
	commission float64
	rateSum    float64
	rateCount  int
	orders     map[int64]struct{}
}

type dayAccum struct {
	commission float64
	orders     map[int64]struct{}
}

// Analytics aggregates commissions over [start, end). Line items whose rate
// cannot be resolved are left out of every aggregate.
func (g *Aggregator) Analytics(ctx context.Context, input AnalyticsInput) (AnalyticsResult, error) {
	if g == nil || g.resolver == nil || g.items == nil {
		return AnalyticsResult{}, ErrStoreNotConfigured
	}
	if !input.Start.Before(input.End) {
		return AnalyticsResult{}, ErrWindowInvalid
	}
	if input.End.Sub(input.Start) > maxAnalyticsWindow {
		return AnalyticsResult{}, ErrWindowTooWide
	}

	items, err := g.items.ListLineItemsInWindow(ctx, input.Start, input.End, strings.TrimSpace(input.VendorID))
	if err != nil {
		return AnalyticsResult{}, err
	}

	var (
		totalCommission float64
		rateSum         float64
		rateCount       int
		orders          = make(map[int64]struct{})
		vendors         = make(map[string]*groupAccum)
		categories      = make(map[string]*groupAccum)
		days            = make(map[time.Time]*dayAccum)
	)

	for _, item := range items {
		pct, err := g.resolver.Resolve(ctx, ResolveInput{
			ProductID:  item.ProductID,
			VendorID:   item.VendorID,
			CategoryID: item.CategoryID,
		})
		if err != nil {
			continue
		}
		commission := item.Gross() * pct / 100

		totalCommission += commission
		rateSum += pct
		rateCount++
		orders[item.OrderID] = struct{}{}

		accumulate(vendors, item.VendorID, item.VendorName, item.OrderID, commission, pct)
		accumulate(categories, item.CategoryID, item.CategoryName, item.OrderID, commission, pct)

		day := item.OrderedAt.UTC().Truncate(24 * time.Hour)
		d, ok := days[day]
		if !ok {
			d = &dayAccum{orders: make(map[int64]struct{})}
			days[day] = d
		}
		d.commission += commission
		d.orders[item.OrderID] = struct{}{}
	}

	result := AnalyticsResult{
		TotalCommission:      totalCommission,
		TotalOrders:          len(orders),
		CommissionByVendor:   groupStats(vendors),
		CommissionByCategory: groupStats(categories),
		DailyBreakdown:       dayStats(days),
	}
	if rateCount > 0 {
		result.AverageCommissionRate = rateSum / float64(rateCount)
	}
	return result, nil
}

func accumulate(groups map[string]*groupAccum, id, name string, orderID int64, commission, pct float64) {
	acc, ok := groups[id]
	if !ok {
		acc = &groupAccum{name: name, orders: make(map[int64]struct{})}
		groups[id] = acc
	}
	acc.commission += commission
	acc.rateSum += pct
	acc.rateCount++
	acc.orders[orderID] = struct{}{}
}

// groupStats flattens group accumulators into a slice ordered by total
// commission descending, ties broken by id ascending.
func groupStats(groups map[string]*groupAccum) []GroupStat {
	stats := make([]GroupStat, 0, len(groups))
	for id, acc := range groups {
		stat := GroupStat{
			ID:              id,
			Name:            acc.name,
			TotalCommission: acc.commission,
			OrderCount:      len(acc.orders),
		}
		if acc.rateCount > 0 {
			stat.AverageRate = acc.rateSum / float64(acc.rateCount)
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalCommission != stats[j].TotalCommission {
			return stats[i].TotalCommission > stats[j].TotalCommission
		}
		return stats[i].ID < stats[j].ID
	})
	return stats
}

func dayStats(days map[time.Time]*dayAccum) []DayStat {
	stats := make([]DayStat, 0, len(days))
	for day, acc := range days {
		stats = append(stats, DayStat{
			Day:             day,
			TotalCommission: acc.commission,
			OrderCount:      len(acc.orders),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Day.Before(stats[j].Day)
	})
	return stats
}
