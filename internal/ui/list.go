package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/cardx/internal/models"
)

var (
	_ list.Item = uploadItem{}
)

// uploadItem wraps [models.Upload] to implement [list.Item].
type uploadItem struct {
	upload models.Upload
}

func (i uploadItem) FilterValue() string { return i.upload.Filename }
func (i uploadItem) Title() string       { return i.upload.Filename }
func (i uploadItem) Description() string {
	desc := fmt.Sprintf("#%d • %s", i.upload.ID, statusBadge(i.upload.Status))
	if !i.upload.CreatedAt.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, i.upload.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return desc
}

func uploadItems(uploads []models.Upload) []list.Item {
	items := make([]list.Item, len(uploads))
	for i, u := range uploads {
		items[i] = uploadItem{upload: u}
	}
	return items
}
