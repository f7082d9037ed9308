// Package view implements the paginated, search-filtered job listing backed by the status store.
//
// The server owns pagination and filtering. [PagedView] tracks the current page, page size, search
// term and total page count, and writes each fetched page into a [store.StatusStore] so live events
// can update the rows in place.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/desertthunder/cardx/internal/store"
)

// DefaultPageSize is the number of uploads per page.
const DefaultPageSize = 4

// ListParams selects one listing page.
type ListParams = models.ListParams

// Lister is the REST collaborator used by the view.
type Lister interface {
	ListUploads(ctx context.Context, p ListParams) (*models.UploadPage, error)
	DeleteUpload(ctx context.Context, id int) error
	ClearUploads(ctx context.Context) error
}

// Options configures a [PagedView].
type Options struct {
	Lister   Lister
	Store    *store.StatusStore
	PageSize int
	Logger   *log.Logger
}

// PagedView is the listing state. Safe for concurrent use.
//
// Only the most recently issued fetch may write the store. Responses of superseded fetches are dropped.
type PagedView struct {
	lister   Lister
	store    *store.StatusStore
	pageSize int
	logger   *log.Logger

	mu     sync.Mutex
	page   int
	total  int
	search string
	seq    uint64
}

// New creates a [PagedView] on page 1. It does not fetch.
func New(opts Options) *PagedView {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &PagedView{
		lister:   opts.Lister,
		store:    opts.Store,
		pageSize: opts.PageSize,
		logger:   shared.WithLogger(opts.Logger, "component", "view"),
		page:     1,
		total:    1,
	}
}

// Refresh re-issues the fetch for the current page and search.
func (v *PagedView) Refresh(ctx context.Context) error {
	return v.fetch(ctx)
}

// SetSearch changes the search term, returns to page 1 and fetches.
func (v *PagedView) SetSearch(ctx context.Context, term string) error {
	v.mu.Lock()
	v.search = term
	v.page = 1
	v.mu.Unlock()
	return v.fetch(ctx)
}

// SetPage moves to page n, clamped to the known page range, and fetches.
func (v *PagedView) SetPage(ctx context.Context, n int) error {
	v.mu.Lock()
	v.page = clamp(n, v.total)
	v.mu.Unlock()
	return v.fetch(ctx)
}

// NextPage moves forward one page.
func (v *PagedView) NextPage(ctx context.Context) error {
	return v.SetPage(ctx, v.Page()+1)
}

// PrevPage moves back one page.
func (v *PagedView) PrevPage(ctx context.Context) error {
	return v.SetPage(ctx, v.Page()-1)
}

// Delete removes one upload on the server and re-fetches the current page. If the page no longer exists
// the view moves to the last page and fetches once more.
func (v *PagedView) Delete(ctx context.Context, id int) error {
	if err := v.lister.DeleteUpload(ctx, id); err != nil {
		return wrapAPI(fmt.Sprintf("delete upload %d", id), err)
	}
	if err := v.fetch(ctx); err != nil {
		return err
	}

	v.mu.Lock()
	past := v.page > v.total
	if past {
		v.page = v.total
	}
	v.mu.Unlock()

	if past {
		return v.fetch(ctx)
	}
	return nil
}

// ClearAll deletes every upload on the server and resets the view without fetching.
func (v *PagedView) ClearAll(ctx context.Context) error {
	if err := v.lister.ClearUploads(ctx); err != nil {
		return wrapAPI("clear uploads", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	v.store.Clear()
	v.page = 1
	v.total = 1
	return nil
}

// Rows returns the uploads of the current page with live status applied.
func (v *PagedView) Rows() []models.Upload { return v.store.List() }

// Store returns the backing status store.
func (v *PagedView) Store() *store.StatusStore { return v.store }

// Page returns the current 1-based page.
func (v *PagedView) Page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// TotalPages returns the page count reported by the last applied fetch, at least 1.
func (v *PagedView) TotalPages() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.total
}

// Search returns the current search term.
func (v *PagedView) Search() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.search
}

// PageSize returns the number of uploads requested per page.
func (v *PagedView) PageSize() int { return v.pageSize }

func (v *PagedView) fetch(ctx context.Context) error {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	params := ListParams{Page: v.page, PageSize: v.pageSize, Search: v.search}
	v.mu.Unlock()

	page, err := v.lister.ListUploads(ctx, params)

	v.mu.Lock()
	defer v.mu.Unlock()

	if seq != v.seq {
		v.logger.Debug("discarding superseded listing", "page", params.Page, "search", params.Search)
		return nil
	}
	if err != nil {
		return wrapAPI("list uploads", err)
	}

	if page == nil {
		page = &models.UploadPage{}
	}
	v.total = max(page.TotalPages, 1)
	v.store.Replace(page.Items)
	return nil
}

func wrapAPI(op string, err error) error {
	if errors.Is(err, shared.ErrAPIRequest) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, op, err)
}

func clamp(n, total int) int {
	return max(1, min(n, max(total, 1)))
}
