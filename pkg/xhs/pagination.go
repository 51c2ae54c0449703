package xhs

import (
	"context"
	"errors"

	"xhsclient/pkg/logger"
)

// ErrStop can be returned from a page callback to end collection early
// without an error.
var ErrStop = errors.New("stop paging")

// PageInfo describes one fetched page of a paginated collection
type PageInfo struct {
	Stream string
	// Page is 1-based across the whole collection, including resumed pages
	Page int
	// Cursor resumes the collection after this page. For search it is empty
	// and Page plus SearchID resume instead.
	Cursor   string
	SearchID string
	Items    int
	Total    int
	Done     bool
}

// CollectOption customises a multi-page collection
type CollectOption func(*collectOptions)

type collectOptions struct {
	startCursor string
	startPage   int
	searchID    string
	onPage      func(PageInfo) error
}

// WithStartCursor resumes a cursor-paginated collection
func WithStartCursor(cursor string) CollectOption {
	return func(o *collectOptions) { o.startCursor = cursor }
}

// WithStartPage resumes a page-numbered collection (search) at page
func WithStartPage(page int) CollectOption {
	return func(o *collectOptions) { o.startPage = page }
}

// WithSearchID reuses an existing search session
func WithSearchID(id string) CollectOption {
	return func(o *collectOptions) { o.searchID = id }
}

// WithPageCallback runs fn after every page. Returning ErrStop ends the
// collection; any other error aborts it.
func WithPageCallback(fn func(PageInfo) error) CollectOption {
	return func(o *collectOptions) { o.onPage = fn }
}

func buildOptions(opts []CollectOption) collectOptions {
	o := collectOptions{startPage: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.startPage < 1 {
		o.startPage = 1
	}
	return o
}

// page is what one fetch contributes to a collection
type page[T any] struct {
	items    []T
	cursor   string
	searchID string
	// done is set when the server reported there is nothing after this page
	done bool
}

type pager[T any] struct {
	stream string
	// limit trims the result; zero means no limit
	limit int
	// maxPages bounds the number of fetches; zero means no bound
	maxPages int
	fetch    func(ctx context.Context, cursor string, pageNum, remaining int) (page[T], error)
	log      logger.Logger
}

// collect fetches pages until the server reports no more data, limit items
// are gathered, maxPages is reached or the callback stops it. On error the
// items gathered so far are returned with it.
func (p pager[T]) collect(ctx context.Context, o collectOptions) ([]T, error) {
	var all []T
	cursor := o.startCursor
	fetched := 0

	for pageNum := o.startPage; ; pageNum++ {
		if p.limit > 0 && len(all) >= p.limit {
			break
		}
		if p.maxPages > 0 && fetched >= p.maxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return all, err
		}

		remaining := 0
		if p.limit > 0 {
			remaining = p.limit - len(all)
		}

		pg, err := p.fetch(ctx, cursor, pageNum, remaining)
		if err != nil {
			return all, err
		}
		fetched++

		if len(pg.items) == 0 {
			p.log.DebugWithFields("empty page, stopping", map[string]interface{}{
				"stream": p.stream,
				"page":   pageNum,
			})
			break
		}

		all = append(all, pg.items...)
		logger.LogPage(p.log, p.stream, pageNum, len(pg.items), len(all), pg.cursor)

		if o.onPage != nil {
			info := PageInfo{
				Stream:   p.stream,
				Page:     pageNum,
				Cursor:   pg.cursor,
				SearchID: pg.searchID,
				Items:    len(pg.items),
				Total:    len(all),
				Done:     pg.done,
			}
			if err := o.onPage(info); err != nil {
				if errors.Is(err, ErrStop) {
					break
				}
				return all, err
			}
		}

		if pg.done {
			break
		}
		cursor = pg.cursor
	}

	if p.limit > 0 && len(all) > p.limit {
		all = all[:p.limit]
	}
	return all, nil
}
