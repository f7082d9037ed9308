package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/cardx/internal/formatter"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/desertthunder/cardx/internal/tasks"
	"github.com/urfave/cli/v3"
)

func parseID(cmd *cli.Command) (int, error) {
	return parseIDArg(cmd, "id", "upload")
}

// parseIDArg reads a positive integer argument, accepting a leading "#".
func parseIDArg(cmd *cli.Command, name, what string) (int, error) {
	raw := strings.TrimSpace(cmd.StringArg(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s id is required", shared.ErrMissingArgument, what)
	}
	id, err := strconv.Atoi(strings.TrimPrefix(raw, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a %s id", shared.ErrInvalidArgument, raw, what)
	}
	return id, nil
}

// outputFormat parses --format and refuses to send binary formats to the terminal.
func outputFormat(cmd *cli.Command) (formatter.Format, error) {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return "", err
	}
	if out := cmd.String("output"); format.Binary() && (out == "" || out == "-") {
		return "", fmt.Errorf("%w: --format %s needs --output <file>", shared.ErrMissingArgument, format)
	}
	return format, nil
}

// UploadsList prints one page of uploads.
func (r *Runner) UploadsList(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	params := models.ListParams{
		Page:     int(cmd.Int("page")),
		PageSize: int(cmd.Int("page-size")),
		Search:   strings.TrimSpace(cmd.String("search")),
	}
	if params.Page < 1 {
		return fmt.Errorf("%w: --page must be at least 1", shared.ErrInvalidFlag)
	}
	if params.PageSize <= 0 {
		params.PageSize = r.config.Listing.PageSize
	}

	if _, err := r.authenticate(); err != nil {
		return err
	}

	r.logger.Debug("listing uploads", "page", params.Page, "page_size", params.PageSize, "search", params.Search)

	page, err := r.api.ListUploads(ctx, params)
	if err != nil {
		return err
	}

	data, err := formatter.ExportUploads(formatter.Listing{
		Uploads:    page.Items,
		Page:       params.Page,
		TotalPages: max(page.TotalPages, 1),
		Search:     params.Search,
	}, format)
	if err != nil {
		return err
	}
	return formatter.Write(r.output, cmd.String("output"), data)
}

// UploadsShow prints the extracted text of an upload.
func (r *Runner) UploadsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	text, err := r.api.GetUploadText(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(text, true)
	}
	r.writePlain("%s\n\n", text.Filename)
	return r.writePlain("%s\n", text.Text)
}

// UploadsCards exports the flashcards of an upload.
func (r *Runner) UploadsCards(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	cards, err := r.api.GetCards(ctx, id)
	if err != nil {
		return err
	}

	data, err := formatter.ExportCards(cards, format)
	if err != nil {
		return err
	}
	return formatter.Write(r.output, cmd.String("output"), data)
}

// UploadsUpload sends a PDF and optionally follows it until generation finishes.
func (r *Runner) UploadsUpload(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to a PDF is required", shared.ErrMissingArgument)
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	r.logger.Info("uploading", "path", path)

	res, err := r.api.UploadPDF(ctx, path)
	if err != nil {
		return err
	}

	r.writePlain("✓ Uploaded %s as #%d\n", res.Filename, res.ID)
	if res.Preview != "" {
		r.writePlain("\n%s\n", res.Preview)
	}

	if cmd.Bool("watch") {
		r.writePlain("\nGenerating flashcards (ctrl+c to stop)...\n")
		return r.watch(ctx, watchOpts{until: res.ID, generate: true})
	}
	if cmd.Bool("generate") {
		return r.generate(ctx, r.output, res.ID)
	}
	return nil
}

// UploadsGenerate starts flashcard generation for an existing upload.
func (r *Runner) UploadsGenerate(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}
	if cmd.Bool("watch") {
		return r.watch(ctx, watchOpts{until: id, generate: true})
	}
	return r.generate(ctx, r.output, id)
}

// CardsAdd adds a hand-written flashcard to an upload.
func (r *Runner) CardsAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	card, err := r.api.CreateCard(ctx, id, models.CardInput{
		Question: cmd.String("question"),
		Answer:   cmd.String("answer"),
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Added card #%d to upload #%d\n", card.ID, id)
}

// CardsDelete removes one flashcard by its id.
func (r *Runner) CardsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parseIDArg(cmd, "card", "card")
	if err != nil {
		return err
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	if err := r.api.DeleteCard(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted card #%d\n", id)
}

// UploadsDelete removes one upload.
func (r *Runner) UploadsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	if err := r.api.DeleteUpload(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted upload #%d\n", id)
}

// UploadsClear removes every upload of the logged in user.
func (r *Runner) UploadsClear(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: clearing deletes every upload, pass --yes to confirm", shared.ErrMissingArgument)
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	if err := r.api.ClearUploads(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Cleared all uploads\n")
}

// UploadsExport writes the flashcards of every matching upload to a directory, with a manifest.
func (r *Runner) UploadsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if _, err := r.authenticate(); err != nil {
		return err
	}

	out := &syncWriter{w: r.output}
	prog := make(chan tasks.ProgressUpdate, 32)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range prog {
			fmt.Fprintln(out, update.Message)
		}
	}()

	result, err := func() (*tasks.BulkExportResult, error) {
		defer close(prog)
		uploads, err := tasks.CollectUploads(ctx, r.api, strings.TrimSpace(cmd.String("search")), 20, prog)
		if err != nil {
			return nil, err
		}
		return tasks.BulkExport(ctx, prog, r.api, uploads, tasks.BulkExportOpts{
			Format:            format,
			OutputDir:         cmd.String("dir"),
			NumWorkers:        int(cmd.Int("workers")),
			RateLimit:         r.config.API.RequestsPerSecond,
			IncludeUnfinished: cmd.Bool("all"),
		})
	}()
	<-printed
	if err != nil {
		return err
	}

	r.writePlain("\n✓ Exported %d of %d uploads to %s\n", result.SuccessfulExports, result.TotalUploads, result.OutputDirectory)
	if result.FailedExports > 0 {
		r.writePlain("✗ %d failed, see %s\n", result.FailedExports, result.ManifestPath)
	}
	if result.SkippedUploads > 0 {
		r.writePlain("- %d not done yet, pass --all to include them\n", result.SkippedUploads)
	}
	return nil
}
