package tasks

import (
	"fmt"

	"github.com/desertthunder/cardx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchUploads Phase = iota
	ExportCards
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchUploads:
		return "fetch_uploads"
	case ExportCards:
		return "export_cards"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchPageUpdate(step, total, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchUploads,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetched %d uploads...", step, total, count),
	}
}

func skippedUpdate(step, total int, u models.Upload) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCards,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] - %s (%s, skipped)", step, total, u.Filename, u.Status.Label()),
		Data:    u,
	}
}

func exportCompletedUpdate(step, total int, res ExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCards,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d cards)", step, total, res.Filename, res.Cards),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res ExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCards,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, res.Filename, res.Error),
		Data:    res,
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
