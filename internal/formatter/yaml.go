package formatter

import (
	"bytes"
	"fmt"
	"time"

	"github.com/desertthunder/cardx/internal/models"
	"gopkg.in/yaml.v3"
)

type yamlUpload struct {
	ID       int    `yaml:"id"`
	Filename string `yaml:"filename"`
	Created  string `yaml:"created,omitempty"`
	Status   string `yaml:"status"`
}

type yamlListing struct {
	Page       int          `yaml:"page"`
	TotalPages int          `yaml:"total_pages"`
	Search     string       `yaml:"search,omitempty"`
	Uploads    []yamlUpload `yaml:"uploads"`
}

type yamlCard struct {
	ID       int    `yaml:"id"`
	UploadID int    `yaml:"upload_id"`
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// UploadsToYAML renders the listing as a YAML document.
func UploadsToYAML(l Listing) ([]byte, error) {
	doc := yamlListing{
		Page:       max(l.Page, 1),
		TotalPages: max(l.TotalPages, 1),
		Search:     l.Search,
		Uploads:    make([]yamlUpload, 0, len(l.Uploads)),
	}
	for _, u := range l.Uploads {
		y := yamlUpload{ID: u.ID, Filename: u.Filename, Status: string(u.Status)}
		if !u.CreatedAt.IsZero() {
			y.Created = u.CreatedAt.UTC().Format(time.RFC3339)
		}
		doc.Uploads = append(doc.Uploads, y)
	}
	return marshalYAML(doc)
}

// CardsToYAML renders flashcards as a YAML sequence.
func CardsToYAML(cards []models.Card) ([]byte, error) {
	doc := make([]yamlCard, 0, len(cards))
	for _, c := range cards {
		doc = append(doc, yamlCard(c))
	}
	return marshalYAML(doc)
}

func marshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}
