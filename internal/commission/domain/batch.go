package domain

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	minBatchSize = 1
	maxBatchSize = 1000

	batchWorkers = 8
)

// ErrBatchSizeOutOfRange indicates a batch size outside [1, 1000].
var ErrBatchSizeOutOfRange = errors.New("batch size must be between 1 and 1000")

// BatchError records one line item that could not be processed.
type BatchError struct {
	OrderID int64
	Message string
}

// BatchResult summarizes one bulk commission run. TotalCommission sums
// successful items only; failed items appear in Errors and contribute
// nothing to the total.
type BatchResult struct {
	Processed        int
	Failed           int
	TotalCommission  float64
	ProcessingTimeMs int64
	Errors           []BatchError
}

// BatchProcessor computes commissions for many orders at once. Items are
// resolved in bounded-size chunks; one failing item never aborts the run,
// and the aggregate outcome is identical for every legal chunk size.
type BatchProcessor struct {
	resolver RateResolver
	items    LineItemSource
	clock    func() time.Time
	workers  int
}

// NewBatchProcessor returns a BatchProcessor resolving rates through
// resolver and reading order lines from items. A nil clock defaults to
// time.Now.
func NewBatchProcessor(resolver RateResolver, items LineItemSource, clock func() time.Time) *BatchProcessor {
	if clock == nil {
		clock = time.Now
	}
	return &BatchProcessor{
		resolver: resolver,
		items:    items,
		clock:    clock,
		workers:  batchWorkers,
	}
}

// BulkCalculate resolves and sums commissions for every line item of the
// given orders. batchSize bounds how many items are in flight at once; it
// never changes the result. An empty order list returns an empty result
// without touching the store.
func (p *BatchProcessor) BulkCalculate(ctx context.Context, orderIDs []int64, batchSize int) (BatchResult, error) {
	if p == nil || p.resolver == nil || p.items == nil {
		return BatchResult{}, ErrStoreNotConfigured
	}
	if batchSize < minBatchSize || batchSize > maxBatchSize {
		return BatchResult{}, ErrBatchSizeOutOfRange
	}

	started := p.clock()
	result := BatchResult{Errors: []BatchError{}}
	if len(orderIDs) == 0 {
		result.ProcessingTimeMs = p.clock().Sub(started).Milliseconds()
		return result, nil
	}

	items, err := p.items.ListLineItemsByOrderIDs(ctx, orderIDs)
	if err != nil {
		return BatchResult{}, err
	}

	outcomes := make([]itemOutcome, len(items))
	for chunkStart := 0; chunkStart < len(items); chunkStart += batchSize {
		chunkEnd := min(chunkStart+batchSize, len(items))
		p.processChunk(ctx, items[chunkStart:chunkEnd], outcomes[chunkStart:chunkEnd])
	}

	for i, outcome := range outcomes {
		if outcome.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchError{
				OrderID: items[i].OrderID,
				Message: outcome.err.Error(),
			})
			continue
		}
		result.Processed++
		result.TotalCommission += outcome.commission
	}
	result.ProcessingTimeMs = p.clock().Sub(started).Milliseconds()
	return result, nil
}

type itemOutcome struct {
	commission float64
	err        error
}

// processChunk resolves one chunk with a bounded worker pool. Each worker
// writes only its own outcome slot, so the later fold stays deterministic
// regardless of scheduling.
func (p *BatchProcessor) processChunk(ctx context.Context, chunk []LineItem, outcomes []itemOutcome) {
	workers := min(max(p.workers, 1), len(chunk))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.processItem(ctx, chunk[i])
			}
		}()
	}
	for i := range chunk {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func (p *BatchProcessor) processItem(ctx context.Context, item LineItem) itemOutcome {
	pct, err := p.resolver.Resolve(ctx, ResolveInput{
		ProductID:  item.ProductID,
		VendorID:   item.VendorID,
		CategoryID: item.CategoryID,
	})
	if err != nil {
		return itemOutcome{err: err}
	}
	return itemOutcome{commission: item.Gross() * pct / 100}
}
