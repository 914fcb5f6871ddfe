// Package mailbox runs the host side of the mail protocol: one dispatch
// goroutine reads the link, decodes each mail through the catalog and hands
// it to the pending exchange or to indication waiters.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/danmuck/dectmail/internal/observability"
	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/session"
	"github.com/danmuck/dectmail/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed         = errors.New("mailbox: closed")
	ErrUnconfirmed    = errors.New("mailbox: request has no confirmation")
	ErrAlreadyPending = session.ErrAlreadyPending
)

// Engine owns a link for its lifetime. Command and Send are the only
// writers; the dispatch goroutine is the only reader.
type Engine struct {
	link    transport.Link
	cat     *catalog.Catalog
	cfg     session.Config
	corr    *session.Correlator
	waiters *session.Waiters
	logger  zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Connect starts the dispatch loop on link. Cancelling ctx closes the engine.
func Connect(ctx context.Context, link transport.Link, cat *catalog.Catalog, cfg session.Config) (*Engine, error) {
	if link == nil {
		return nil, fmt.Errorf("mailbox: link is required")
	}
	if cat == nil {
		return nil, fmt.Errorf("mailbox: catalog is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := &Engine{
		link:    link,
		cat:     cat,
		cfg:     cfg.WithDefaults(),
		corr:    session.NewCorrelator(),
		waiters: session.NewWaiters(),
		logger:  log.With().Str("component", "mailbox").Logger(),
		done:    make(chan struct{}),
	}
	e.wg.Add(1)
	go e.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = e.shutdown(nil)
		case <-e.done:
		}
	}()
	e.logger.Debug().Int("primitives", cat.Len()).Msg("dispatch started")
	return e, nil
}

func (e *Engine) Config() session.Config {
	return e.cfg
}

// Catalog returns the registry the engine decodes with.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.cat
}

// Done is closed once the engine stops.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Err reports the link failure that stopped the engine, or nil after Close.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Close stops the dispatch loop and closes the link. Blocked callers
// return ErrClosed.
func (e *Engine) Close() error {
	err := e.shutdown(nil)
	e.wg.Wait()
	return err
}

func (e *Engine) shutdown(cause error) error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.err = cause
		e.mu.Unlock()
		close(e.done)
		err = e.link.Close()
	})
	return err
}

func (e *Engine) closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *Engine) readLoop() {
	defer e.wg.Done()

	backoff := session.NewReadBackoff(e.cfg.ReadBackoff, nil)
	for {
		raw, err := e.link.ReadFrame()
		if err != nil {
			if e.closed() {
				return
			}
			if transport.IsFrameError(err) {
				observability.RecordDrop(observability.DropChecksum)
				e.logger.Warn().Err(err).Msg("frame rejected by link")
				continue
			}
			if isTerminal(err) {
				e.logger.Error().Err(err).Msg("link closed")
				_ = e.shutdown(err)
				return
			}
			delay := backoff.Fail()
			e.logger.Error().Err(err).Int("failures", backoff.Failures()).Dur("backoff", delay).Msg("link read failed")
			select {
			case <-time.After(delay):
			case <-e.done:
				return
			}
			continue
		}
		backoff.Reset()
		e.dispatch(raw, time.Now())
	}
}

func isTerminal(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed)
}

// dispatch routes one registered mail: the pending exchange first, then
// every matching waiter.
func (e *Engine) dispatch(raw []byte, at time.Time) {
	f, err := frame.Decode(raw)
	if err != nil {
		observability.RecordDrop(observability.DropTooShort)
		e.logger.Warn().Err(err).Hex("mail", raw).Msg("mail dropped")
		return
	}
	out, err := e.cat.Decode(f)
	if err != nil {
		observability.RecordDrop(observability.DropDecode)
		e.logger.Warn().Err(err).Str("primitive", f.Primitive.String()).Hex("payload", f.Payload).Msg("mail dropped")
		return
	}
	// Unregistered primitives never resolve an exchange or a waiter.
	if out.Kind == catalog.KindUnknown {
		observability.RecordDrop(observability.DropUnknown)
		e.logger.Warn().Str("primitive", f.Primitive.String()).Hex("payload", f.Payload).Msg("unknown primitive")
		return
	}
	observability.RecordFrameReceived(out.Name)
	e.logger.Debug().Str("primitive", f.Primitive.String()).Str("name", out.Name).Int("len", len(f.Payload)).Msg("mail received")

	in := session.Inbound{Frame: f, Outcome: out, ReceivedAt: at}
	if e.corr.Offer(in) {
		return
	}
	if n := e.waiters.Offer(in); n > 0 {
		observability.SetLiveWaiters(e.waiters.Len())
		return
	}
	if out.Kind == catalog.KindTyped {
		observability.RecordDrop(observability.DropUnmatched)
		e.logger.Info().Str("name", out.Name).Msg("unsolicited mail")
	}
}
