package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/notify"
	"github.com/desertthunder/cardx/internal/session"
	"github.com/desertthunder/cardx/internal/stream"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

var errWatchDone = errors.New("watched upload finished")

// generateGrace is how long a watch waits for the terminal status event after generation returns.
var generateGrace = 2 * time.Second

type watchOpts struct {
	// until stops the watch once this upload reaches a terminal status. Zero watches forever.
	until int
	json  bool
	// generate starts card generation for until once the session is running.
	generate bool
}

// Watch prints every decoded status event and alert until interrupted.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	return r.watch(ctx, watchOpts{until: int(cmd.Int("upload")), json: cmd.Bool("json")})
}

func (r *Runner) watch(ctx context.Context, opts watchOpts) error {
	token, err := r.authenticate()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := &syncWriter{w: r.output}
	events := make(chan models.StatusEvent, 64)

	sess := session.New(session.Options{
		Dialer:   r.eventDialer(),
		Notifier: notify.NewWriterNotifier(out),
		Observer: session.ObserverFuncs{
			Status: func(ev models.StatusEvent, applied bool) {
				select {
				case events <- ev:
				default:
					r.logger.Warn("event printer is behind, dropping event", "upload_id", ev.UploadID)
				}
			},
			Connection: func(state stream.State) {
				r.logger.Info("live updates", "state", state)
			},
		},
		ReconnectDelay: r.config.Stream.ReconnectDelay,
		ConnectDelay:   r.config.Stream.ConnectDelay,
		AlertOnFinal:   r.config.Notifications.AlertOnFinal,
		Logger:         r.logger,
	})
	if err := sess.Start(token); err != nil {
		return err
	}
	defer sess.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		sess.Close()
		return nil
	})
	if opts.generate && opts.until != 0 {
		g.Go(func() error {
			if err := r.generate(gctx, out, opts.until); err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case <-gctx.Done():
			case <-time.After(generateGrace):
			}
			return errWatchDone
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev := <-events:
				if err := printEvent(out, ev, opts.json); err != nil {
					return err
				}
				if opts.until != 0 && ev.UploadID == opts.until && ev.Status.IsTerminal() {
					return errWatchDone
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errWatchDone) {
		return err
	}
	return nil
}

// generate runs card generation for one upload and reports the count.
func (r *Runner) generate(ctx context.Context, w io.Writer, id int) error {
	r.logger.Info("generating flashcards", "upload_id", id)
	res, err := r.api.GenerateCards(ctx, id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "✓ Generated %d flashcards for #%d\n", res.Created, id)
	return err
}

func printEvent(w io.Writer, ev models.StatusEvent, asJSON bool) error {
	var err error
	if asJSON {
		var data []byte
		if data, err = json.Marshal(ev); err == nil {
			_, err = fmt.Fprintf(w, "%s\n", data)
		}
	} else {
		_, err = fmt.Fprintf(w, "[%s] %s\n", time.Now().Format(time.TimeOnly), ev)
	}
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
