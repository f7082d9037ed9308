package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardx/internal/models"
	"github.com/goccy/go-json"
)

var (
	// ErrHeartbeat marks empty or comment frames, which carry no event.
	ErrHeartbeat = errors.New("heartbeat frame")
	// ErrMalformed marks frames that are not a structurally valid status event.
	ErrMalformed = errors.New("malformed frame")
)

// Decoder turns raw frames into status events.
type Decoder struct {
	logger *log.Logger
}

// NewDecoder creates a [Decoder]. A nil logger falls back to [log.Default].
func NewDecoder(logger *log.Logger) *Decoder {
	if logger == nil {
		logger = log.Default()
	}
	return &Decoder{logger: logger}
}

// Decode returns the event carried by frame, or false if the frame is to be ignored.
//
// Malformed frames are logged at warn level, heartbeats at debug level.
func (d *Decoder) Decode(frame string) (models.StatusEvent, bool) {
	ev, err := DecodeFrame(frame)
	switch {
	case err == nil:
		return ev, true
	case errors.Is(err, ErrHeartbeat):
		d.logger.Debug("heartbeat")
	default:
		d.logger.Warn("dropping frame", "error", err, "frame", truncate(frame, 200))
	}
	return models.StatusEvent{}, false
}

// DecodeFrame parses one frame. The returned error wraps [ErrHeartbeat] or [ErrMalformed].
func DecodeFrame(frame string) (models.StatusEvent, error) {
	trimmed := strings.TrimSpace(frame)
	if trimmed == "" || strings.HasPrefix(trimmed, ":") {
		return models.StatusEvent{}, ErrHeartbeat
	}

	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return models.StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := frameSchema.Validate(doc); err != nil {
		if msg := controlMessage(doc); msg != "" {
			return models.StatusEvent{}, fmt.Errorf("%w: server message %q", ErrMalformed, msg)
		}
		return models.StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var ev models.StatusEvent
	if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
		return models.StatusEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ev, nil
}

// controlMessage extracts the text of server control frames such as
// {"error": "Unauthorized", "type": "auth_error"} or the connection greeting.
func controlMessage(doc any) string {
	obj, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"error", "test"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
