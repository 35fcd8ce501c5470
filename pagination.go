package pagou

import (
	"context"
	"net/url"
	"strconv"
)

// defaultPageLimit is used when the caller does not choose a page size.
const defaultPageLimit = 100

// PageCursor tracks the iterator's position in a list endpoint. A cursor is
// owned by exactly one iterator and advances monotonically.
type PageCursor struct {
	Page    int // 1-based
	Limit   int
	Filters url.Values
}

// Iterator lazily walks all items of a list endpoint, fetching successive
// pages as the consumer advances. It is finite, not restartable, and keeps
// at most one page fetch outstanding. Termination is driven by the
// server-reported total, never guessed from page fullness.
//
// Usage:
//
//	it := client.IterateTransactions(ctx, params)
//	for it.Next() {
//	    tx := it.Current()
//	    ...
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
type Iterator[T any] struct {
	ctx    context.Context
	client *Client
	path   string
	opts   []CallOption

	cursor  PageCursor
	items   []T
	idx     int
	current T
	meta    ListMeta
	done    bool
	err     error
}

func newIterator[T any](ctx context.Context, c *Client, path string, filters url.Values, limit int, opts ...CallOption) *Iterator[T] {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	return &Iterator[T]{
		ctx:    ctx,
		client: c,
		path:   path,
		opts:   opts,
		cursor: PageCursor{Page: 1, Limit: limit, Filters: filters},
	}
}

// Next advances to the next item, fetching the next page when the buffered
// one is drained. It returns false at the end of the sequence or on the
// first error; check Err afterwards.
func (it *Iterator[T]) Next() bool {
	if it.err != nil {
		return false
	}
	for {
		if it.idx < len(it.items) {
			it.current = it.items[it.idx]
			it.idx++
			return true
		}
		if it.done {
			return false
		}
		if err := it.fetch(); err != nil {
			it.err = err
			it.done = true
			return false
		}
	}
}

// Current returns the item Next advanced to.
func (it *Iterator[T]) Current() T { return it.current }

// Err returns the error that terminated the sequence, if any.
func (it *Iterator[T]) Err() error { return it.err }

// Meta returns the metadata of the most recently fetched page.
func (it *Iterator[T]) Meta() ListMeta { return it.meta }

func (it *Iterator[T]) fetch() error {
	// Each page fetch is a fresh logical call with its own spec.
	query := url.Values{}
	for key, values := range it.cursor.Filters {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	query.Set("page", strconv.Itoa(it.cursor.Page))
	query.Set("limit", strconv.Itoa(it.cursor.Limit))

	spec := it.client.newRequestSpec("GET", it.path, query, nil, it.opts...)
	env, err := executeList[T](it.ctx, it.client, spec)
	if err != nil {
		return err
	}

	it.items = env.Data
	it.idx = 0
	it.meta = env.Meta

	if len(env.Data) == 0 || env.Meta.Page*env.Meta.Limit >= env.Meta.Total {
		it.done = true
	} else {
		it.cursor.Page++
	}
	if it.client.metrics != nil {
		it.client.metrics.RecordPageFetch(it.path, env.Meta.Page)
	}
	return nil
}
