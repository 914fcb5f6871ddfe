package mailbox

import (
	"context"
	"time"

	"github.com/danmuck/dectmail/internal/observability"
	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/session"
)

// Command sends req and waits for one of its confirmations. The request is
// transmitted up to maxRetries+1 times, each attempt waiting timeout. A zero
// timeout sends once and waits until a confirmation, ctx or Close.
//
// ok is false when every attempt went unanswered; that is a result, not an
// error.
func (e *Engine) Command(ctx context.Context, req catalog.Request, timeout time.Duration, maxRetries int) (catalog.Outcome, bool, error) {
	name := e.cat.Name(req.Primitive())
	if e.closed() {
		return catalog.Outcome{}, false, ErrClosed
	}
	expect := req.Confirms()
	if len(expect) == 0 {
		return catalog.Outcome{}, false, ErrUnconfirmed
	}
	raw := catalog.EncodeRequest(req)
	x, err := e.corr.Begin(raw, expect, maxRetries, timeout)
	if err != nil {
		observability.RecordCommand(name, "rejected")
		return catalog.Outcome{}, false, err
	}
	defer e.corr.Finish(x)

	logger := e.logger.With().Str("request", name).Logger()
	for {
		retransmit := x.Attempts() > 0
		x.MarkSent(time.Now())
		if err := e.link.WriteFrame(raw); err != nil {
			observability.RecordCommand(name, "error")
			if e.closed() {
				return catalog.Outcome{}, false, ErrClosed
			}
			return catalog.Outcome{}, false, err
		}
		observability.RecordFrameSent(name, retransmit)
		logger.Debug().Int("attempt", x.Attempts()).Dur("timeout", timeout).Msg("request sent")

		var expired <-chan time.Time
		var timer *time.Timer
		if timeout > 0 {
			timer = time.NewTimer(timeout)
			expired = timer.C
		}

		select {
		case in := <-x.Done():
			stopTimer(timer)
			observability.RecordCommand(name, "ok")
			logger.Debug().Str("confirmation", in.Outcome.Name).Int("attempts", x.Attempts()).Msg("request confirmed")
			return in.Outcome, true, nil
		case <-expired:
			select {
			case in := <-x.Done():
				observability.RecordCommand(name, "ok")
				return in.Outcome, true, nil
			default:
			}
			if !x.Retry() {
				observability.RecordCommand(name, "no_response")
				logger.Warn().Int("attempts", x.Attempts()).Msg("no response")
				return catalog.Outcome{}, false, nil
			}
			logger.Debug().Int("attempt", x.Attempts()).Msg("confirmation timed out, retransmitting")
		case <-ctx.Done():
			stopTimer(timer)
			observability.RecordCommand(name, "cancelled")
			return catalog.Outcome{}, false, ctx.Err()
		case <-e.done:
			stopTimer(timer)
			observability.RecordCommand(name, "closed")
			return catalog.Outcome{}, false, ErrClosed
		}
	}
}

// Do runs Command with the engine's configured timeout and retries.
func (e *Engine) Do(ctx context.Context, req catalog.Request) (catalog.Outcome, bool, error) {
	return e.Command(ctx, req, e.cfg.CommandTimeout, e.cfg.MaxRetries)
}

// Send transmits req once without correlation. Use it for requests the
// device answers with indications only, after subscribing to them.
func (e *Engine) Send(ctx context.Context, req catalog.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.closed() {
		return ErrClosed
	}
	name := e.cat.Name(req.Primitive())
	if err := e.link.WriteFrame(catalog.EncodeRequest(req)); err != nil {
		if e.closed() {
			return ErrClosed
		}
		return err
	}
	observability.RecordFrameSent(name, false)
	e.logger.Debug().Str("request", name).Msg("request sent")
	return nil
}

// Subscribe registers a waiter for any of targets. Mail that arrives before
// a waiter exists is not replayed, so subscribe before sending the request
// that triggers it.
func (e *Engine) Subscribe(targets ...frame.Primitive) *session.Waiter {
	w := e.waiters.Register(targets...)
	observability.SetLiveWaiters(e.waiters.Len())
	return w
}

func (e *Engine) Unsubscribe(w *session.Waiter) {
	e.waiters.Cancel(w)
	observability.SetLiveWaiters(e.waiters.Len())
}

// Await blocks until w resolves. A zero timeout waits without bound. The
// waiter is always unregistered on return.
func (e *Engine) Await(ctx context.Context, w *session.Waiter, timeout time.Duration) (catalog.Outcome, bool, error) {
	var expired <-chan time.Time
	var timer *time.Timer
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		expired = timer.C
	}
	defer stopTimer(timer)

	select {
	case in := <-w.Done():
		observability.RecordWait("ok")
		return in.Outcome, true, nil
	case <-expired:
		if in, ok := e.release(w); ok {
			observability.RecordWait("ok")
			return in.Outcome, true, nil
		}
		observability.RecordWait("timeout")
		e.logger.Debug().Interface("targets", w.Targets()).Dur("timeout", timeout).Msg("wait timed out")
		return catalog.Outcome{}, false, nil
	case <-ctx.Done():
		e.release(w)
		observability.RecordWait("cancelled")
		return catalog.Outcome{}, false, ctx.Err()
	case <-e.done:
		e.release(w)
		observability.RecordWait("closed")
		return catalog.Outcome{}, false, ErrClosed
	}
}

// WaitFor subscribes to targets and awaits the first of them.
func (e *Engine) WaitFor(ctx context.Context, targets []frame.Primitive, timeout time.Duration) (catalog.Outcome, bool, error) {
	return e.Await(ctx, e.Subscribe(targets...), timeout)
}

// release unregisters w. If the dispatch loop resolved it first the mail is
// returned instead.
func (e *Engine) release(w *session.Waiter) (session.Inbound, bool) {
	cancelled := e.waiters.Cancel(w)
	observability.SetLiveWaiters(e.waiters.Len())
	if cancelled {
		return session.Inbound{}, false
	}
	select {
	case in := <-w.Done():
		return in, true
	default:
		return session.Inbound{}, false
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
