package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the processing state of an [Upload].
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusGenerating Status = "generating"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// IsTerminal reports whether no further transition is expected after s.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// Label returns the human-readable badge text for s.
func (s Status) Label() string {
	switch s {
	case StatusUploaded:
		return "Uploaded"
	case StatusGenerating:
		return "Generating"
	case StatusDone:
		return "Done"
	case StatusError:
		return "Error"
	default:
		return string(s)
	}
}

// timestampLayouts are tried in order when decoding listing timestamps.
// The server emits naive ISO-8601 values, which are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an upload timestamp as produced by the listing endpoint.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// Upload is a unit of asynchronous server-side PDF processing, identified by ID.
//
// Records are created only from listing fetches. The sync core mutates Status and nothing else.
type Upload struct {
	ID        int
	Filename  string
	CreatedAt time.Time
	Status    Status
}

type uploadJSON struct {
	ID        int    `json:"id"`
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
	Status    Status `json:"status,omitempty"`
}

// MarshalJSON encodes the upload using the listing endpoint's field names.
func (u Upload) MarshalJSON() ([]byte, error) {
	return json.Marshal(uploadJSON{
		ID:        u.ID,
		Filename:  u.Filename,
		Timestamp: u.CreatedAt.UTC().Format(time.RFC3339),
		Status:    u.Status,
	})
}

// UnmarshalJSON decodes a listing item. A missing status means [StatusUploaded].
func (u *Upload) UnmarshalJSON(data []byte) error {
	var raw uploadJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.ID = raw.ID
	u.Filename = raw.Filename
	u.Status = raw.Status
	if u.Status == "" {
		u.Status = StatusUploaded
	}

	u.CreatedAt = time.Time{}
	if raw.Timestamp != "" {
		ts, err := ParseTimestamp(raw.Timestamp)
		if err != nil {
			return err
		}
		u.CreatedAt = ts
	}
	return nil
}

// ListParams selects one page of the listing. Page is 1-based; an empty Search matches everything.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
}

// UploadPage is one page of the server-side paginated, search-filtered listing.
type UploadPage struct {
	Items      []Upload `json:"items"`
	TotalPages int      `json:"total_pages"`
}

// UploadText is the extracted text preview of one upload.
type UploadText struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// UploadResult is the server's response to a PDF upload.
type UploadResult struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
	Preview  string `json:"preview,omitempty"`
}

// GenerateResult reports how many flashcards a generation run created.
type GenerateResult struct {
	Created int `json:"created"`
}

// CardInput is the body of a manual flashcard.
type CardInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Card is a flashcard generated from an upload.
type Card struct {
	ID       int    `json:"id"`
	UploadID int    `json:"upload_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// User is the authenticated account as returned by /auth/me.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}
