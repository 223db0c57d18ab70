package rest

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// PageOptions selects one page of a large result set. The gateway applies
// limit/offset at the database level; Reverse flips the ordering, which is
// useful for reading the newest results without knowing the set size.
type PageOptions struct {
	Limit   int
	Offset  int
	Reverse bool
}

// Query renders the options as request query parameters.
func (o PageOptions) Query() url.Values {
	q := make(url.Values)
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.Reverse {
		q.Set("reverse", "true")
	}
	return q
}

// FetchFunc fetches one page of items for the given options.
type FetchFunc[T any] func(ctx context.Context, opts PageOptions) ([]T, error)

// Paginator lazily walks a paginated result set one item at a time,
// fetching pages on demand. A page shorter than the page size, or an empty
// page, marks the sequence exhausted; exhaustion is reported as
// ErrEndOfResults. A failed fetch leaves the cursor and buffer untouched so
// the next call retries the same page.
//
// A Paginator is for single-owner sequential use; it is not safe for
// concurrent Next calls, and it cannot be restarted. Construct a new one to
// re-read from the start.
type Paginator[T any] struct {
	fetch     FetchFunc[T]
	opts      PageOptions
	limit     int
	buf       []T
	exhausted bool
}

// NewPaginator creates a paginator over fetch starting from opts. A
// non-positive limit falls back to the default page size of 50.
func NewPaginator[T any](fetch FetchFunc[T], opts PageOptions) *Paginator[T] {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	return &Paginator[T]{
		fetch: fetch,
		opts:  opts,
		limit: opts.Limit,
	}
}

// Next returns the next item, fetching the next page when the buffer runs
// dry. At the end of the sequence it returns ErrEndOfResults, on every
// subsequent call too. Any other error is a fetch failure; calling Next
// again retries the same fetch.
func (p *Paginator[T]) Next(ctx context.Context) (T, error) {
	var zero T

	if len(p.buf) == 0 {
		if p.exhausted {
			return zero, ErrEndOfResults
		}

		items, err := p.fetch(ctx, p.opts)
		if err != nil {
			return zero, err
		}

		// A short page is the last page. A full final page costs one
		// extra fetch that comes back empty.
		if len(items) < p.limit {
			p.exhausted = true
		}
		p.opts.Offset += len(items)

		if len(items) == 0 {
			return zero, ErrEndOfResults
		}
		p.buf = items
	}

	item := p.buf[0]
	p.buf = p.buf[1:]
	return item, nil
}

// HasMore reports whether the sequence may yield further items. It never
// triggers a fetch, so it can report true right before Next returns
// ErrEndOfResults.
func (p *Paginator[T]) HasMore() bool {
	return len(p.buf) > 0 || !p.exhausted
}

// Options returns the current cursor state.
func (p *Paginator[T]) Options() PageOptions {
	return p.opts
}

// Collect drains the remaining sequence into a slice.
func (p *Paginator[T]) Collect(ctx context.Context) ([]T, error) {
	var items []T
	for {
		item, err := p.Next(ctx)
		if errors.Is(err, ErrEndOfResults) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

// Take returns up to n further items. Reaching the end of the sequence
// early is not an error.
func (p *Paginator[T]) Take(ctx context.Context, n int) ([]T, error) {
	items := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, err := p.Next(ctx)
		if errors.Is(err, ErrEndOfResults) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Skip advances past up to n items.
func (p *Paginator[T]) Skip(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if _, err := p.Next(ctx); err != nil {
			if errors.Is(err, ErrEndOfResults) {
				return nil
			}
			return err
		}
	}
	return nil
}

// ForEachChunk calls fn with successive chunks of at most size items until
// the sequence ends or fn returns an error.
func (p *Paginator[T]) ForEachChunk(ctx context.Context, size int, fn func([]T) error) error {
	if size <= 0 {
		size = p.limit
	}

	chunk := make([]T, 0, size)
	for {
		item, err := p.Next(ctx)
		if errors.Is(err, ErrEndOfResults) {
			break
		}
		if err != nil {
			return err
		}

		chunk = append(chunk, item)
		if len(chunk) >= size {
			if err := fn(chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}

	if len(chunk) > 0 {
		return fn(chunk)
	}
	return nil
}
