package models

import "fmt"

// EventKind classifies a [StatusEvent].
type EventKind string

const (
	// KindInitial seeds state after a (re)connect. Never a new transition.
	KindInitial      EventKind = "initial"
	KindStatusUpdate EventKind = "status_update"
	KindFinal        EventKind = "final"
	KindError        EventKind = "error"
)

// StatusEvent is one status notification pushed over the event channel.
type StatusEvent struct {
	UploadID int       `json:"upload_id"`
	Status   Status    `json:"status"`
	Kind     EventKind `json:"type"`
	Finished *bool     `json:"finished,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// IsFinished reports the optional finished flag, defaulting to false.
func (e StatusEvent) IsFinished() bool {
	return e.Finished != nil && *e.Finished
}

func (e StatusEvent) String() string {
	if e.Error != "" {
		return fmt.Sprintf("upload #%d %s (%s): %s", e.UploadID, e.Status, e.Kind, e.Error)
	}
	return fmt.Sprintf("upload #%d %s (%s)", e.UploadID, e.Status, e.Kind)
}
