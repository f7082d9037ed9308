package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/cardx/internal/formatter"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestName is the summary file written into the export directory.
const ManifestName = "export_manifest.json"

// BulkExportOpts contains configuration for bulk card exports.
type BulkExportOpts struct {
	Format            formatter.Format // Card format (default: text)
	OutputDir         string           // Output directory (default: cardx_export_{epoch})
	NumWorkers        int              // Concurrent workers (default: 4, max 10)
	RateLimit         float64          // Card requests per second (default: 5)
	IncludeUnfinished bool             // Also export uploads that are not done yet
}

// ExportResult is the outcome for one upload.
type ExportResult struct {
	UploadID int    `json:"upload_id"`
	Filename string `json:"filename"`
	Cards    int    `json:"cards"`
	File     string `json:"file,omitempty"`
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export and is written as the manifest.
type BulkExportResult struct {
	Format            formatter.Format `json:"format"`
	TotalUploads      int              `json:"total_uploads"`
	SuccessfulExports int              `json:"successful_exports"`
	FailedExports     int              `json:"failed_exports"`
	SkippedUploads    int              `json:"skipped_uploads"`
	OutputDirectory   string           `json:"output_directory"`
	ManifestPath      string           `json:"-"`
	Results           []ExportResult   `json:"results"`
}

// BulkExport writes the flashcards of uploads to opts.OutputDir, one file per upload.
//
// Cards are fetched by a worker pool sharing one rate limiter. A failed upload is recorded in the
// result and does not stop the others. Results are ordered by upload id.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	src Source,
	uploads []models.Upload,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: upload source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatText
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("cardx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalUploads:    len(uploads),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ExportResult, 0, len(uploads)),
	}

	var pending []models.Upload
	for _, u := range uploads {
		if opts.IncludeUnfinished || u.Status == models.StatusDone {
			pending = append(pending, u)
			continue
		}
		result.SkippedUploads++
		result.Results = append(result.Results, ExportResult{UploadID: u.ID, Filename: u.Filename, Skipped: true})
		sendProgress(prog, skippedUpdate(len(result.Results), len(uploads), u))
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Upload)
	results := make(chan ExportResult, len(pending))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, limiter, src, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for _, u := range pending {
			select {
			case <-ctx.Done():
				return
			case jobs <- u:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		result.Results = append(result.Results, res)
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(len(result.Results), len(uploads), res))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(len(result.Results), len(uploads), res))
		}
	}

	sort.Slice(result.Results, func(i, j int) bool { return result.Results[i].UploadID < result.Results[j].UploadID })

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d uploads: %w", result.SuccessfulExports+result.FailedExports, err)
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	data, err := formatter.MarshalJSON(result)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportWorker is a worker goroutine that exports uploads from the jobs channel.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	src Source,
	jobs <-chan models.Upload,
	results chan<- ExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for u := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		results <- exportUpload(ctx, src, u, opts)
	}
}

// exportUpload fetches and writes the cards of one upload.
func exportUpload(ctx context.Context, src Source, u models.Upload, opts BulkExportOpts) ExportResult {
	res := ExportResult{UploadID: u.ID, Filename: u.Filename}

	cards, err := src.GetCards(ctx, u.ID)
	if err != nil {
		res.Error = fmt.Sprintf("failed to fetch cards: %v", err)
		return res
	}
	res.Cards = len(cards)

	data, err := formatter.ExportCards(cards, opts.Format)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	path := filepath.Join(opts.OutputDir, ExportFilename(u, opts.Format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		res.Error = fmt.Sprintf("failed to write %s: %v", path, err)
		return res
	}
	res.File = path
	res.Success = true
	return res
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ExportFilename names the card file of u, e.g. "12_lecture-notes.md".
func ExportFilename(u models.Upload, f formatter.Format) string {
	base := strings.TrimSuffix(u.Filename, filepath.Ext(u.Filename))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-.")
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%d_%s%s", u.ID, strings.ToLower(base), extension(f))
}

func extension(f formatter.Format) string {
	switch f {
	case formatter.FormatCSV:
		return ".csv"
	case formatter.FormatMarkdown:
		return ".md"
	case formatter.FormatJSON:
		return ".json"
	case formatter.FormatYAML:
		return ".yaml"
	case formatter.FormatXLSX:
		return ".xlsx"
	default:
		return ".txt"
	}
}
