package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestUpload(t *testing.T) {
	t.Run("UnmarshalJSON", func(t *testing.T) {
		tc := []struct {
			name       string
			input      string
			wantStatus Status
			wantTime   time.Time
			wantErr    bool
		}{
			{
				name:       "naive timestamp with fraction",
				input:      `{"id": 42, "filename": "report.pdf", "timestamp": "2025-03-01T10:20:30.123456", "status": "generating"}`,
				wantStatus: StatusGenerating,
				wantTime:   time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.UTC),
			},
			{
				name:       "missing status defaults to uploaded",
				input:      `{"id": 1, "filename": "a.pdf", "timestamp": "2025-03-01T10:20:30"}`,
				wantStatus: StatusUploaded,
				wantTime:   time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC),
			},
			{
				name:       "zoned timestamp",
				input:      `{"id": 1, "filename": "a.pdf", "timestamp": "2025-03-01T10:20:30Z", "status": "done"}`,
				wantStatus: StatusDone,
				wantTime:   time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC),
			},
			{
				name:    "garbage timestamp",
				input:   `{"id": 1, "filename": "a.pdf", "timestamp": "yesterday"}`,
				wantErr: true,
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				var u Upload
				err := json.Unmarshal([]byte(tt.input), &u)
				if tt.wantErr {
					if err == nil {
						t.Fatal("expected error, got nil")
					}
					return
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if u.Status != tt.wantStatus {
					t.Errorf("expected status %s, got %s", tt.wantStatus, u.Status)
				}
				if !u.CreatedAt.Equal(tt.wantTime) {
					t.Errorf("expected time %v, got %v", tt.wantTime, u.CreatedAt)
				}
			})
		}
	})

	t.Run("IsTerminal", func(t *testing.T) {
		if StatusUploaded.IsTerminal() || StatusGenerating.IsTerminal() {
			t.Error("uploaded and generating should not be terminal")
		}
		if !StatusDone.IsTerminal() || !StatusError.IsTerminal() {
			t.Error("done and error should be terminal")
		}
	})
}

func TestStatusEvent(t *testing.T) {
	t.Run("decodes wire names", func(t *testing.T) {
		var ev StatusEvent
		data := `{"upload_id": 42, "status": "done", "type": "status_update", "finished": true}`
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev.UploadID != 42 || ev.Status != StatusDone || ev.Kind != KindStatusUpdate {
			t.Errorf("unexpected event: %+v", ev)
		}
		if !ev.IsFinished() {
			t.Error("expected finished to be true")
		}
	})

	t.Run("finished defaults to false", func(t *testing.T) {
		ev := StatusEvent{UploadID: 1, Status: StatusGenerating, Kind: KindStatusUpdate}
		if ev.IsFinished() {
			t.Error("expected finished to be false")
		}
	})
}

func TestCredential(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		if err := NewCredential("http://127.0.0.1:8000/", "alice", "tok", "").Validate(); err != nil {
			t.Errorf("expected valid credential, got %v", err)
		}
		if err := NewCredential("http://127.0.0.1:8000", "alice", "", "").Validate(); err == nil {
			t.Error("expected error for missing token")
		}
		if err := NewCredential("", "alice", "tok", "").Validate(); err == nil {
			t.Error("expected error for missing server")
		}
	})

	t.Run("normalizes server and token type", func(t *testing.T) {
		c := NewCredential("http://127.0.0.1:8000/", "alice", "tok", "")
		if c.Server() != "http://127.0.0.1:8000" {
			t.Errorf("expected trailing slash trimmed, got %s", c.Server())
		}
		if c.TokenType() != "bearer" {
			t.Errorf("expected bearer token type, got %s", c.TokenType())
		}
	})
}
