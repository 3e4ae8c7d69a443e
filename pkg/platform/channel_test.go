package platform

import (
	stderrors "errors"
	"testing"

	"github.com/go-drift/geolocation/pkg/errors"
)

type captureHandler struct {
	errs []*errors.GeoError
}

func (h *captureHandler) HandleError(err *errors.GeoError)   { h.errs = append(h.errs, err) }
func (h *captureHandler) HandlePanic(err *errors.PanicError) {}

func captureReports(t *testing.T) *captureHandler {
	t.Helper()
	h := &captureHandler{}
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return h
}

func TestMethodChannel_InvokeRoundTrip(t *testing.T) {
	var gotChannel, gotMethod string
	var gotArgs any
	SetupTestBridge(t.Cleanup, func(channel, method string, args any) (any, error) {
		gotChannel, gotMethod, gotArgs = channel, method, args
		return map[string]any{"watchId": 7}, nil
	})

	ch := NewMethodChannel("test/invoke")
	result, err := ch.Invoke("watchPosition", map[string]any{"requestId": 3})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if gotChannel != "test/invoke" || gotMethod != "watchPosition" {
		t.Errorf("bridge saw %s.%s", gotChannel, gotMethod)
	}
	args, ok := AsMap(gotArgs)
	if !ok || args["requestId"] != float64(3) {
		t.Errorf("args = %#v, want requestId 3", gotArgs)
	}
	m, ok := AsMap(result)
	if !ok || m["watchId"] != float64(7) {
		t.Errorf("result = %#v, want watchId 7", result)
	}
}

func TestMethodChannel_InvokeWithoutBridge(t *testing.T) {
	t.Cleanup(ResetForTest)
	ch := NewMethodChannel("test/nobridge")
	if _, err := ch.Invoke("getCurrentPosition", nil); !stderrors.Is(err, ErrPlatformUnavailable) {
		t.Errorf("err = %v, want ErrPlatformUnavailable", err)
	}
}

func TestMethodChannel_InvokeError(t *testing.T) {
	SetupTestBridge(t.Cleanup, func(string, string, any) (any, error) {
		return nil, NewChannelError("unavailable", "no gps")
	})
	_, err := NewMethodChannel("test/err").Invoke("x", nil)
	var chErr *ChannelError
	if !stderrors.As(err, &chErr) || chErr.Code != "unavailable" {
		t.Fatalf("err = %v, want ChannelError unavailable", err)
	}
	if got, want := chErr.Error(), "unavailable: no gps"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestEventChannel_StartStopStream(t *testing.T) {
	bridge := SetupTestBridge(t.Cleanup, nil)
	ch := NewEventChannel("test/stream")

	a := ch.Listen(EventHandler{})
	b := ch.Listen(EventHandler{})
	if bridge.Started["test/stream"] != 1 {
		t.Errorf("started %d times, want 1", bridge.Started["test/stream"])
	}

	a.Cancel()
	if bridge.Stopped["test/stream"] != 0 {
		t.Error("stream stopped while a listener remains")
	}
	b.Cancel()
	b.Cancel()
	if bridge.Stopped["test/stream"] != 1 {
		t.Errorf("stopped %d times, want 1", bridge.Stopped["test/stream"])
	}
}

func TestEventChannel_StartDeferredUntilBridge(t *testing.T) {
	t.Cleanup(ResetForTest)
	captureReports(t)

	ch := NewEventChannel("test/deferred")
	var startErr error
	ch.Listen(EventHandler{OnError: func(err error) { startErr = err }})
	if !stderrors.Is(startErr, ErrPlatformUnavailable) {
		t.Fatalf("start error = %v, want ErrPlatformUnavailable", startErr)
	}

	bridge := &FakeBridge{}
	SetNativeBridge(bridge)
	if bridge.Started["test/deferred"] != 1 {
		t.Error("SetNativeBridge should start streams with pending listeners")
	}
}

func TestHandleEvent_DeliversInOrder(t *testing.T) {
	SetupTestBridge(t.Cleanup, nil)
	ch := NewEventChannel("test/events")

	var got []any
	sub := ch.Listen(EventHandler{OnEvent: func(data any) { got = append(got, data) }})

	for _, payload := range []string{`1`, `2`, `3`} {
		if err := HandleEvent("test/events", []byte(payload)); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	sub.Cancel()
	if err := HandleEvent("test/events", []byte(`4`)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if len(got) != 3 || got[0] != float64(1) || got[2] != float64(3) {
		t.Errorf("got %v, want [1 2 3]", got)
	}
}

func TestHandleEvent_UnknownChannel(t *testing.T) {
	h := captureReports(t)
	err := HandleEvent("test/nowhere", []byte(`{}`))
	if !stderrors.Is(err, ErrChannelNotRegistered) {
		t.Fatalf("err = %v, want ErrChannelNotRegistered", err)
	}
	if len(h.errs) != 1 || h.errs[0].Channel != "test/nowhere" {
		t.Errorf("reports = %v", h.errs)
	}
}

func TestHandleEvent_BadPayloadGoesToOnError(t *testing.T) {
	SetupTestBridge(t.Cleanup, nil)
	ch := NewEventChannel("test/bad")
	var gotErr error
	ch.Listen(EventHandler{OnError: func(err error) { gotErr = err }})

	if err := HandleEvent("test/bad", []byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
	if gotErr == nil {
		t.Error("OnError should receive the decode error")
	}
}

func TestHandleEventErrorAndDone(t *testing.T) {
	SetupTestBridge(t.Cleanup, nil)
	ch := NewEventChannel("test/lifecycle")

	var gotErr error
	done := false
	sub := ch.Listen(EventHandler{
		OnError: func(err error) { gotErr = err },
		OnDone:  func() { done = true },
	})

	if err := HandleEventError("test/lifecycle", "denied", "user said no"); err != nil {
		t.Fatalf("HandleEventError: %v", err)
	}
	var chErr *ChannelError
	if !stderrors.As(gotErr, &chErr) || chErr.Message != "user said no" {
		t.Errorf("OnError got %v", gotErr)
	}

	if err := HandleEventDone("test/lifecycle"); err != nil {
		t.Fatalf("HandleEventDone: %v", err)
	}
	if !done || !sub.IsCanceled() {
		t.Error("done should fire and cancel the subscription")
	}
}

func TestStream_ParseErrorsAreReported(t *testing.T) {
	SetupTestBridge(t.Cleanup, nil)
	h := captureReports(t)

	ch := NewEventChannel("test/typed")
	stream := NewStream(ch, func(data any) (int64, error) {
		n, ok := AsInt64(data)
		if !ok {
			return 0, stderrors.New("not an integer")
		}
		return n, nil
	})

	var got []int64
	unsubscribe := stream.Listen(func(n int64) { got = append(got, n) })
	defer unsubscribe()

	_ = HandleEvent("test/typed", []byte(`5`))
	_ = HandleEvent("test/typed", []byte(`"five"`))
	_ = HandleEvent("test/typed", []byte(`6`))

	if len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Errorf("got %v, want [5 6]", got)
	}
	if len(h.errs) != 1 || h.errs[0].Kind != errors.KindParsing || h.errs[0].Channel != "test/typed" {
		t.Errorf("reports = %v, want one parsing error", h.errs)
	}
}

func TestDispatchOrRun(t *testing.T) {
	t.Cleanup(ResetForTest)

	ran := false
	DispatchOrRun(func() { ran = true })
	if !ran {
		t.Error("without a dispatcher the callback should run inline")
	}

	var queued []func()
	RegisterDispatch(func(cb func()) { queued = append(queued, cb) })
	ran = false
	DispatchOrRun(func() { ran = true })
	if ran || len(queued) != 1 {
		t.Fatal("with a dispatcher the callback should be queued")
	}
	queued[0]()
	if !ran {
		t.Error("queued callback did not run")
	}
}

func TestConvertHelpers(t *testing.T) {
	if n, ok := AsInt64(float64(12)); !ok || n != 12 {
		t.Errorf("AsInt64(12.0) = %d, %v", n, ok)
	}
	if _, ok := AsInt64(1.5); ok {
		t.Error("AsInt64 should reject fractional floats")
	}
	if f, ok := AsFloat64(3); !ok || f != 3 {
		t.Errorf("AsFloat64(3) = %v, %v", f, ok)
	}
	if _, ok := AsFloat64("3"); ok {
		t.Error("AsFloat64 should reject strings")
	}
	m, ok := AsMap(map[any]any{"a": 1, 2: "b"})
	if !ok || len(m) != 1 || m["a"] != 1 {
		t.Errorf("AsMap = %v, %v", m, ok)
	}
	if s, ok := AsString([]byte("x")); !ok || s != "x" {
		t.Errorf("AsString = %q, %v", s, ok)
	}
}
