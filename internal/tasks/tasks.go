// package tasks implements bulk operations against the REST API.
package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/shared"
)

// Source is the subset of the REST client used by bulk operations.
type Source interface {
	ListUploads(ctx context.Context, p models.ListParams) (*models.UploadPage, error)
	GetCards(ctx context.Context, uploadID int) ([]models.Card, error)
}

// CollectUploads fetches every page of the listing matching search.
func CollectUploads(ctx context.Context, src Source, search string, pageSize int, prog chan<- ProgressUpdate) ([]models.Upload, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: upload source not initialized", shared.ErrServiceUnavailable)
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	var all []models.Upload
	total := 1
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		res, err := src.ListUploads(ctx, models.ListParams{Page: page, PageSize: pageSize, Search: search})
		if err != nil {
			return all, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		total = max(res.TotalPages, 1)
		all = append(all, res.Items...)

		sendProgress(prog, fetchPageUpdate(page, total, len(all)))
	}
	return all, nil
}

// sendProgress sends update unless prog is nil or full.
func sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
