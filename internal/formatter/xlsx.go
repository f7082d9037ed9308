package formatter

import (
	"fmt"

	"github.com/desertthunder/cardx/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	uploadsSheet = "Uploads"
	cardsSheet   = "Cards"
)

// UploadsToXLSX writes uploads to a single-sheet workbook with columns: ID, Filename, Created, Status
func UploadsToXLSX(uploads []models.Upload) ([]byte, error) {
	rows := make([][]any, 0, len(uploads))
	for _, u := range uploads {
		rows = append(rows, []any{u.ID, u.Filename, formatTime(u.CreatedAt), u.Status.Label()})
	}
	return workbook(uploadsSheet, []any{"ID", "Filename", "Created", "Status"}, rows, map[string]float64{"B": 40, "C": 18, "D": 14})
}

// CardsToXLSX writes flashcards to a single-sheet workbook with columns: ID, Question, Answer
func CardsToXLSX(cards []models.Card) ([]byte, error) {
	rows := make([][]any, 0, len(cards))
	for _, c := range cards {
		rows = append(rows, []any{c.ID, c.Question, c.Answer})
	}
	return workbook(cardsSheet, []any{"ID", "Question", "Answer"}, rows, map[string]float64{"B": 60, "C": 60})
}

func workbook(sheet string, header []any, rows [][]any, widths map[string]float64) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}
	for col, w := range widths {
		_ = f.SetColWidth(sheet, col, col, w)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
