package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardx/internal/shared"
)

const maxFrameSize = 1 << 20

// HTTPDialer opens Server-Sent Events channels with net/http.
type HTTPDialer struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// NewHTTPDialer creates an [HTTPDialer] for the events endpoint at eventsURL.
//
// The client must not set a total Timeout, since the response body stays open for the life of the channel.
func NewHTTPDialer(eventsURL string, client *http.Client, logger *log.Logger) *HTTPDialer {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HTTPDialer{url: eventsURL, client: client, logger: shared.WithLogger(logger, "component", "sse")}
}

// Dial starts a request in the background and returns immediately.
func (d *HTTPDialer) Dial(p Params, l Listener) Channel {
	ctx, cancel := context.WithCancel(context.Background())
	ch := &httpChannel{cancel: cancel}
	go d.run(ctx, p, l)
	return ch
}

func (d *HTTPDialer) run(ctx context.Context, p Params, l Listener) {
	req, err := d.newRequest(ctx, p)
	if err != nil {
		l.OnError(err)
		return
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			l.OnError(fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err))
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		l.OnError(fmt.Errorf("%w: %s", shared.ErrStreamStatus, resp.Status))
		return
	}

	l.OnOpen()

	err = ReadFrames(resp.Body, func(frame string) {
		if ctx.Err() == nil {
			l.OnMessage(frame)
		}
	})
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = shared.ErrStreamClosed
	} else {
		err = fmt.Errorf("%w: %v", shared.ErrStreamClosed, err)
	}
	d.logger.Debug("stream ended", "connection_id", p.ConnectionID, "error", err)
	l.OnError(err)
}

func (d *HTTPDialer) newRequest(ctx context.Context, p Params) (*http.Request, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return nil, fmt.Errorf("%w: events url %q: %v", shared.ErrInvalidConfig, d.url, err)
	}
	q := u.Query()
	q.Set("token", p.Token)
	q.Set("connection_id", strconv.Itoa(p.ConnectionID))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	return req, nil
}

type httpChannel struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (c *httpChannel) Close() { c.once.Do(c.cancel) }

// ReadFrames parses a Server-Sent Events body and calls emit for each frame.
//
// Comment lines are emitted verbatim. Consecutive data lines are joined with "\n" and emitted on a blank line.
// Other fields (event, id, retry) are ignored, as is data left without a terminating blank line.
// Returns nil on a clean EOF.
func ReadFrames(r io.Reader, emit func(frame string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)

	var data []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		switch {
		case line == "":
			if len(data) > 0 {
				emit(strings.Join(data, "\n"))
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
			emit(line)
		default:
			field, value, _ := strings.Cut(line, ":")
			if field == "data" {
				data = append(data, strings.TrimPrefix(value, " "))
			}
		}
	}
	return scanner.Err()
}
