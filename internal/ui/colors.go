package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/stream"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	toast lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		toast: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func statusBadge(s models.Status) string {
	switch s {
	case models.StatusDone:
		return styles.ok.Render(s.Label())
	case models.StatusError:
		return styles.err.Render(s.Label())
	case models.StatusGenerating:
		return styles.warn.Render(s.Label())
	default:
		return styles.help.Render(s.Label())
	}
}

func connectionBadge(s stream.State) string {
	switch s {
	case stream.StateConnected:
		return styles.ok.Render("● " + s.Label())
	case stream.StateConnecting, stream.StateReconnectScheduled:
		return styles.warn.Render("● " + s.Label())
	default:
		return styles.help.Render("○ " + s.Label())
	}
}
