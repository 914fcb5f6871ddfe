package mailbox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/dectmail/internal/api"
	"github.com/danmuck/dectmail/internal/protocol/catalog"
	"github.com/danmuck/dectmail/internal/protocol/frame"
	"github.com/danmuck/dectmail/internal/protocol/session"
	"github.com/danmuck/dectmail/internal/protocol/status"
	"github.com/danmuck/dectmail/internal/testutil/testlog"
	"github.com/danmuck/dectmail/internal/transport"
)

var fwVersionPayload = []byte{0x00, 0x21, 0x03, 0x01, 0x00, 0x24, 0x03, 0x15, 0x10, 0x42, 0x02}

// fakeDevice answers host mails with whatever handler returns.
type fakeDevice struct {
	link    *transport.Stream
	handler func(frame.Frame) [][]byte

	mu       sync.Mutex
	received [][]byte
	at       []time.Time
}

func (d *fakeDevice) serve() {
	for {
		raw, err := d.link.ReadFrame()
		if err != nil {
			return
		}
		d.mu.Lock()
		d.received = append(d.received, raw)
		d.at = append(d.at, time.Now())
		d.mu.Unlock()
		f, err := frame.Decode(raw)
		if err != nil || d.handler == nil {
			continue
		}
		for _, out := range d.handler(f) {
			if err := d.link.WriteFrame(out); err != nil {
				return
			}
		}
	}
}

func (d *fakeDevice) push(t *testing.T, mails ...[]byte) {
	t.Helper()
	go func() {
		for _, m := range mails {
			if err := d.link.WriteFrame(m); err != nil {
				return
			}
		}
	}()
}

func (d *fakeDevice) sent() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.received))
	copy(out, d.received)
	return out
}

func (d *fakeDevice) sentAt() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Time, len(d.at))
	copy(out, d.at)
	return out
}

func startEngine(t *testing.T, handler func(frame.Frame) [][]byte) (*Engine, *fakeDevice) {
	t.Helper()
	testlog.Start(t)
	cat, err := api.NewCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	host, dev := transport.Pipe()
	d := &fakeDevice{link: dev, handler: handler}
	go d.serve()
	e, err := Connect(context.Background(), host, cat, session.Config{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = e.Close()
		_ = dev.Close()
	})
	return e, d
}

func answer(req, cfm frame.Primitive, payload []byte) func(frame.Frame) [][]byte {
	return func(f frame.Frame) [][]byte {
		if f.Primitive != req {
			return nil
		}
		return [][]byte{frame.Encode(cfm, payload)}
	}
}

func TestCommandRetransmitsIdenticalRequest(t *testing.T) {
	e, d := startEngine(t, nil)

	const timeout = 30 * time.Millisecond
	start := time.Now()
	_, ok, err := e.Command(context.Background(), api.PpGetFwVersionReq{}, timeout, 2)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if ok {
		t.Fatalf("expected no response")
	}
	if elapsed < 3*timeout {
		t.Fatalf("expected command to wait out every attempt, returned after %v", elapsed)
	}
	time.Sleep(10 * time.Millisecond)
	sent := d.sent()
	if len(sent) != 3 {
		t.Fatalf("expected 3 transmissions, got %d", len(sent))
	}
	for _, raw := range sent {
		if !bytes.Equal(raw, sent[0]) {
			t.Fatalf("retransmission differs: %x vs %x", raw, sent[0])
		}
	}
	// Receive times carry pipe delivery jitter on both ends.
	const slack = 5 * time.Millisecond
	at := d.sentAt()
	for i := 1; i < len(at); i++ {
		if gap := at[i].Sub(at[i-1]); gap < timeout-slack {
			t.Fatalf("transmission %d followed the previous one after %v, want at least %v", i, gap, timeout)
		}
	}
	if _, pending := e.corr.Pending(); pending {
		t.Fatalf("exhausted exchange must release the slot")
	}
}

func TestCommandResolvesOnFirstConfirmation(t *testing.T) {
	e, d := startEngine(t, answer(api.ApiPpGetFwVersionReq, api.ApiPpGetFwVersionCfm, fwVersionPayload))

	out, ok, err := e.Command(context.Background(), api.PpGetFwVersionReq{}, time.Second, 2)
	if err != nil || !ok {
		t.Fatalf("expected confirmation, got ok=%v err=%v", ok, err)
	}
	cfm, isCfm := out.Message.(api.PpGetFwVersionCfm)
	if out.Kind != catalog.KindTyped || !isCfm || cfm.VersionHex != 0x00010321 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if n := len(d.sent()); n != 1 {
		t.Fatalf("expected a single transmission, got %d", n)
	}
}

func TestCommandSurfacesDeviceStatus(t *testing.T) {
	e, _ := startEngine(t, answer(api.ApiImageActivateReq, api.ApiImageActivateCfm, []byte{0x15}))

	out, ok, err := e.Do(context.Background(), api.ImageActivateReq{ImageIndex: 0})
	if err != nil || !ok {
		t.Fatalf("expected confirmation, got ok=%v err=%v", ok, err)
	}
	st, hasStatus := out.Status()
	if !hasStatus || st != status.NotFound {
		t.Fatalf("expected RSS_NOT_FOUND, got %v", st)
	}
}

func TestCommandZeroTimeoutWaitsWithoutRetry(t *testing.T) {
	e, d := startEngine(t, func(f frame.Frame) [][]byte {
		time.Sleep(50 * time.Millisecond)
		return [][]byte{frame.Encode(api.ApiFpGetFwVersionCfm, fwVersionPayload)}
	})

	_, ok, err := e.Command(context.Background(), api.FpGetFwVersionReq{}, 0, 3)
	if err != nil || !ok {
		t.Fatalf("expected confirmation, got ok=%v err=%v", ok, err)
	}
	if n := len(d.sent()); n != 1 {
		t.Fatalf("expected one transmission, got %d", n)
	}
}

func TestCommandAlreadyPending(t *testing.T) {
	e, _ := startEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := e.Command(ctx, api.FpGetFwVersionReq{}, time.Minute, 0)
		errCh <- err
	}()
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := e.corr.Pending(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first command never became pending")
		}
		time.Sleep(time.Millisecond)
	}

	if _, _, err := e.Command(context.Background(), api.PpGetFwVersionReq{}, time.Second, 0); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("expected ErrAlreadyPending, got %v", err)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, ok := e.corr.Pending(); ok {
		t.Fatalf("cancelled command must release the slot")
	}
}

func TestCommandRejectsIndicationOnlyRequest(t *testing.T) {
	e, d := startEngine(t, nil)
	if _, _, err := e.Do(context.Background(), api.PpMmLockReq{}); !errors.Is(err, ErrUnconfirmed) {
		t.Fatalf("expected ErrUnconfirmed, got %v", err)
	}
	if n := len(d.sent()); n != 0 {
		t.Fatalf("nothing should be sent, got %d", n)
	}
}

func TestWaitForResolvesOnAnyTarget(t *testing.T) {
	e, d := startEngine(t, nil)

	w := e.Subscribe(api.ApiPpMmRegistrationCompleteInd, api.ApiPpMmRegistrationFailedInd)
	d.push(t, frame.Encode(api.ApiPpMmRegistrationFailedInd, []byte{0x10, 0x00, 0x00}))

	out, ok, err := e.Await(context.Background(), w, time.Second)
	if err != nil || !ok {
		t.Fatalf("expected indication, got ok=%v err=%v", ok, err)
	}
	ind, isInd := out.Message.(api.PpMmRegistrationFailedInd)
	if !isInd || ind.Reason != 0x10 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if e.waiters.Len() != 0 {
		t.Fatalf("resolved waiter must be removed")
	}
}

func TestWaitForTimesOut(t *testing.T) {
	e, _ := startEngine(t, nil)

	_, ok, err := e.WaitFor(context.Background(), []frame.Primitive{api.ApiPpMmLockedInd}, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("timeout is not an error: %v", err)
	}
	if ok {
		t.Fatalf("expected not received")
	}
	if e.waiters.Len() != 0 {
		t.Fatalf("timed out waiter must be removed, got %d", e.waiters.Len())
	}
}

func TestWaitForCancelUnregisters(t *testing.T) {
	e, _ := startEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w := e.Subscribe(api.ApiPpMmFpNameInd)
	errCh := make(chan error, 1)
	go func() {
		_, _, err := e.Await(ctx, w, 0)
		errCh <- err
	}()
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if e.waiters.Len() != 0 {
		t.Fatalf("cancelled waiter must be removed, got %d", e.waiters.Len())
	}
}

func TestOverlappingWaitersBothResolve(t *testing.T) {
	e, d := startEngine(t, nil)

	a := e.Subscribe(api.ApiPpMmLockedInd, api.ApiPpMmUnlockedInd)
	b := e.Subscribe(api.ApiPpMmLockedInd)
	d.push(t, frame.Encode(api.ApiPpMmLockedInd, nil))

	for _, w := range []*session.Waiter{a, b} {
		out, ok, err := e.Await(context.Background(), w, time.Second)
		if err != nil || !ok || out.Primitive != api.ApiPpMmLockedInd {
			t.Fatalf("expected locked indication, got %+v ok=%v err=%v", out, ok, err)
		}
	}
}

func TestDispatchSurvivesBadMail(t *testing.T) {
	e, d := startEngine(t, func(f frame.Frame) [][]byte {
		if f.Primitive != api.ApiPpGetFwVersionReq {
			return nil
		}
		return [][]byte{
			{0x01},
			frame.Encode(0x7777, []byte{0xAA}),
			frame.Encode(api.ApiPpGetFwVersionCfm, fwVersionPayload[:4]),
			frame.Encode(api.ApiPpGetFwVersionCfm, fwVersionPayload),
		}
	})

	out, ok, err := e.Command(context.Background(), api.PpGetFwVersionReq{}, time.Second, 0)
	if err != nil || !ok {
		t.Fatalf("expected the valid confirmation to resolve, got ok=%v err=%v", ok, err)
	}
	if out.Primitive != api.ApiPpGetFwVersionCfm {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if n := len(d.sent()); n != 1 {
		t.Fatalf("expected one transmission, got %d", n)
	}
}

// unknownConfirm expects an unregistered primitive alongside the real
// confirmation.
type unknownConfirm struct {
	api.PpGetFwVersionReq
}

func (unknownConfirm) Confirms() []frame.Primitive {
	return []frame.Primitive{0x7777, api.ApiPpGetFwVersionCfm}
}

func TestUnknownPrimitiveResolvesNothing(t *testing.T) {
	e, d := startEngine(t, func(f frame.Frame) [][]byte {
		if f.Primitive != api.ApiPpGetFwVersionReq {
			return nil
		}
		return [][]byte{
			frame.Encode(0x7777, []byte{0xAA}),
			frame.Encode(api.ApiPpGetFwVersionCfm, fwVersionPayload),
		}
	})

	only := e.Subscribe(0x7777)
	either := e.Subscribe(0x7777, api.ApiPpMmLockedInd)
	d.push(t, frame.Encode(0x7777, []byte{0x01}), frame.Encode(api.ApiPpMmLockedInd, nil))

	out, ok, err := e.Await(context.Background(), either, time.Second)
	if err != nil || !ok {
		t.Fatalf("expected locked indication, got ok=%v err=%v", ok, err)
	}
	if out.Primitive != api.ApiPpMmLockedInd || out.Kind == catalog.KindUnknown {
		t.Fatalf("unregistered mail resolved the waiter: %+v", out)
	}
	if _, ok, err := e.Await(context.Background(), only, 20*time.Millisecond); err != nil || ok {
		t.Fatalf("expected unregistered mail to be dropped, got ok=%v err=%v", ok, err)
	}

	out, ok, err = e.Command(context.Background(), unknownConfirm{}, time.Second, 0)
	if err != nil || !ok {
		t.Fatalf("expected confirmation, got ok=%v err=%v", ok, err)
	}
	if out.Primitive != api.ApiPpGetFwVersionCfm || out.Kind != catalog.KindTyped {
		t.Fatalf("unregistered mail resolved the exchange: %+v", out)
	}
}

func TestSendWithoutCorrelation(t *testing.T) {
	e, d := startEngine(t, func(f frame.Frame) [][]byte {
		if f.Primitive != api.ApiPpMmRegistrationSearchReq {
			return nil
		}
		return [][]byte{frame.Encode(api.ApiPpMmRegistrationSearchInd, make([]byte, 13))}
	})

	w := e.Subscribe(api.ApiPpMmRegistrationSearchInd)
	if err := e.Send(context.Background(), api.PpMmRegistrationSearchReq{SearchMode: api.SearchContinuous}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, ok, err := e.Await(context.Background(), w, time.Second); err != nil || !ok {
		t.Fatalf("expected search indication, got ok=%v err=%v", ok, err)
	}
	if got := d.sent(); len(got) != 1 || !bytes.Equal(got[0], []byte{0x07, 0x51, 0x00}) {
		t.Fatalf("unexpected wire mails %x", got)
	}
}

func TestCloseWakesCallers(t *testing.T) {
	e, _ := startEngine(t, nil)

	waitErr := make(chan error, 1)
	cmdErr := make(chan error, 1)
	go func() {
		_, _, err := e.WaitFor(context.Background(), []frame.Primitive{api.ApiPpMmLockedInd}, 0)
		waitErr <- err
	}()
	go func() {
		_, _, err := e.Command(context.Background(), api.FpGetFwVersionReq{}, 0, 0)
		cmdErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := <-waitErr; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from wait, got %v", err)
	}
	if err := <-cmdErr; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from command, got %v", err)
	}
	if e.Err() != nil {
		t.Fatalf("clean close must not record an error, got %v", e.Err())
	}
	if _, _, err := e.Do(context.Background(), api.FpGetFwVersionReq{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}

func TestPeerCloseStopsEngine(t *testing.T) {
	e, d := startEngine(t, nil)
	_ = d.link.Close()

	select {
	case <-e.Done():
	case <-time.After(time.Second):
		t.Fatalf("engine did not stop after peer close")
	}
	if !errors.Is(e.Err(), io.EOF) {
		t.Fatalf("expected io.EOF, got %v", e.Err())
	}
}
