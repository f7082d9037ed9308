package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// WriterNotifier prints each alert as one styled line.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier creates a [WriterNotifier] writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify prints a. The returned handle only tracks visibility, a printed line cannot be withdrawn.
func (n *WriterNotifier) Notify(a Alert) Handle {
	n.mu.Lock()
	defer n.mu.Unlock()

	fmt.Fprintln(n.w, Render(a))
	return &BasicHandle{}
}

// Render formats an alert with its level marker.
func Render(a Alert) string {
	if a.Level == LevelFailure {
		return failureStyle.Render("✗ " + a.Message)
	}
	return successStyle.Render("✓ " + a.Message)
}
