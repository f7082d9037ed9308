// package formatter renders upload listings and flashcards in the supported output formats
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/goccy/go-json"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatXLSX     Format = "xlsx"
)

// Formats lists every supported format in flag help order.
var Formats = []Format{FormatTable, FormatCSV, FormatMarkdown, FormatText, FormatJSON, FormatYAML, FormatXLSX}

// Binary reports whether f produces non-text output that should not go to a terminal.
func (f Format) Binary() bool {
	return f == FormatXLSX
}

// ParseFormat accepts a format name, with "md", "txt", "yml" and "excel" as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, name)
}

// Listing is one rendered page of uploads.
type Listing struct {
	Uploads    []models.Upload `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Search     string          `json:"search,omitempty"`
}

const timeLayout = "2006-01-02 15:04"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

// ExportUploads renders l in format f.
func ExportUploads(l Listing, f Format) ([]byte, error) {
	switch f {
	case FormatTable:
		return UploadsToTable(l)
	case FormatCSV:
		return UploadsToCSV(l.Uploads)
	case FormatMarkdown:
		return UploadsToMarkdown(l)
	case FormatText:
		return UploadsToText(l)
	case FormatJSON:
		return MarshalJSON(l)
	case FormatYAML:
		return UploadsToYAML(l)
	case FormatXLSX:
		return UploadsToXLSX(l.Uploads)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
}

// UploadsToTable renders aligned columns: ID, Filename, Created, Status, followed by a page footer.
func UploadsToTable(l Listing) ([]byte, error) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tFILENAME\tCREATED\tSTATUS")
	for _, u := range l.Uploads {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Filename, formatTime(u.CreatedAt), u.Status.Label())
	}
	if err := tw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write table: %w", err)
	}

	buf.WriteString(footer(l))
	return buf.Bytes(), nil
}

// UploadsToCSV converts uploads to CSV with columns: ID, Filename, Created, Status
func UploadsToCSV(uploads []models.Upload) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Filename", "Created", "Status"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, u := range uploads {
		created := ""
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.UTC().Format(time.RFC3339)
		}
		record := []string{strconv.Itoa(u.ID), u.Filename, created, string(u.Status)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// UploadsToMarkdown renders a Markdown table with a heading and page footer.
func UploadsToMarkdown(l Listing) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Uploads\n\n")
	if l.Search != "" {
		buf.WriteString(fmt.Sprintf("**Search**: %s\n\n", l.Search))
	}

	if len(l.Uploads) == 0 {
		buf.WriteString("_No uploads._\n\n")
	} else {
		buf.WriteString("| ID | Filename | Created | Status |\n")
		buf.WriteString("|---:|---|---|---|\n")
		for _, u := range l.Uploads {
			buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n", u.ID, escapeCell(u.Filename), formatTime(u.CreatedAt), u.Status.Label()))
		}
		buf.WriteString("\n")
	}

	buf.WriteString(fmt.Sprintf("**Page**: %d of %d\n", max(l.Page, 1), max(l.TotalPages, 1)))
	return buf.Bytes(), nil
}

// UploadsToText renders one line per upload.
func UploadsToText(l Listing) ([]byte, error) {
	var buf bytes.Buffer
	for _, u := range l.Uploads {
		buf.WriteString(fmt.Sprintf("#%d %s [%s]\n", u.ID, u.Filename, u.Status.Label()))
	}
	buf.WriteString(footer(l))
	return buf.Bytes(), nil
}

func footer(l Listing) string {
	s := fmt.Sprintf("\nPage %d of %d", max(l.Page, 1), max(l.TotalPages, 1))
	if l.Search != "" {
		s += fmt.Sprintf(" (search: %q)", l.Search)
	}
	return s + "\n"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// ExportCards renders flashcards in format f. Table and text share the question/answer layout.
func ExportCards(cards []models.Card, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CardsToCSV(cards)
	case FormatMarkdown:
		return CardsToMarkdown(cards)
	case FormatJSON:
		return MarshalJSON(cards)
	case FormatYAML:
		return CardsToYAML(cards)
	case FormatXLSX:
		return CardsToXLSX(cards)
	case FormatTable, FormatText:
		return CardsToText(cards)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
}

// CardsToCSV converts flashcards to CSV with columns: ID, Question, Answer
func CardsToCSV(cards []models.Card) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Question", "Answer"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, c := range cards {
		if err := writer.Write([]string{strconv.Itoa(c.ID), c.Question, c.Answer}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// CardsToMarkdown renders each card as a numbered question with its answer quoted below.
func CardsToMarkdown(cards []models.Card) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("# Flashcards\n\n**Cards**: %d\n\n", len(cards)))
	for i, c := range cards {
		buf.WriteString(fmt.Sprintf("%d. **%s**\n\n   > %s\n\n", i+1, c.Question, c.Answer))
	}
	return buf.Bytes(), nil
}

// CardsToText renders Q/A pairs separated by blank lines.
func CardsToText(cards []models.Card) ([]byte, error) {
	var buf bytes.Buffer
	for i, c := range cards {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(fmt.Sprintf("Q%d: %s\nA%d: %s\n", i+1, c.Question, i+1, c.Answer))
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes v as indented JSON with a trailing newline.
func MarshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Write sends data to path, or to w when path is empty or "-".
func Write(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
