package platform

import (
	"errors"
	"testing"
)

func TestMethodChannelInvokeWithoutBridge(t *testing.T) {
	t.Cleanup(ResetForTest)
	ch := NewMethodChannel("test/no_bridge")
	if _, err := ch.Invoke("ping", nil); !errors.Is(err, ErrPlatformUnavailable) {
		t.Errorf("err = %v, want ErrPlatformUnavailable", err)
	}
}

func TestMethodChannelInvokeRoundTrip(t *testing.T) {
	bridge := setupTestBridge(t)
	ch := NewMethodChannel("test/round_trip")
	if _, err := ch.Invoke("ping", map[string]any{"n": 1}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	call := bridge.last()
	if call.channel != "test/round_trip" || call.method != "ping" || call.args["n"] != float64(1) {
		t.Errorf("unexpected call %+v", call)
	}
}

func TestHandleMethodCallRoutesToHandler(t *testing.T) {
	setupTestBridge(t)
	ch := NewMethodChannel("test/inbound")
	ch.SetHandler(func(method string, args any) (any, error) {
		return map[string]any{"echo": method}, nil
	})

	out, err := HandleMethodCall("test/inbound", "hello", nil)
	if err != nil {
		t.Fatalf("HandleMethodCall: %v", err)
	}
	if string(out) != `{"echo":"hello"}` {
		t.Errorf("out = %s", out)
	}
	if _, err := HandleMethodCall("test/unknown", "hello", nil); !errors.Is(err, ErrChannelNotFound) {
		t.Errorf("err = %v, want ErrChannelNotFound", err)
	}
}

func TestEventChannelStartsAndStopsNativeStream(t *testing.T) {
	bridge := setupTestBridge(t)
	ch := NewEventChannel("test/events")

	var got []any
	a := ch.Listen(EventHandler{OnEvent: func(d any) { got = append(got, d) }})
	b := ch.Listen(EventHandler{OnEvent: func(d any) { got = append(got, d) }})

	if n := countOf(bridge.started, "test/events"); n != 1 {
		t.Errorf("stream started %d times, want 1", n)
	}
	if err := HandleEvent("test/events", []byte(`"x"`)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("delivered %d events, want 2", len(got))
	}

	a.Cancel()
	a.Cancel()
	if len(bridge.stopped) != 0 {
		t.Error("stream should keep running while a subscriber remains")
	}
	b.Cancel()
	if n := countOf(bridge.stopped, "test/events"); n != 1 {
		t.Errorf("stream stopped %d times, want 1", n)
	}
}

func TestListenBeforeBridgeStartsOnInstall(t *testing.T) {
	t.Cleanup(ResetForTest)
	ch := NewEventChannel("test/deferred")

	var startErr error
	ch.Listen(EventHandler{OnError: func(err error) { startErr = err }})
	if !errors.Is(startErr, ErrPlatformUnavailable) {
		t.Fatalf("startErr = %v, want ErrPlatformUnavailable", startErr)
	}

	bridge := &testBridge{}
	SetNativeBridge(bridge)
	if n := countOf(bridge.started, "test/deferred"); n != 1 {
		t.Errorf("stream started %d times after install, want 1", n)
	}
}

func TestHandleEventDoneCancelsSubscribers(t *testing.T) {
	setupTestBridge(t)
	ch := NewEventChannel("test/done")
	done := false
	sub := ch.Listen(EventHandler{OnDone: func() { done = true }})

	if err := HandleEventDone("test/done"); err != nil {
		t.Fatalf("HandleEventDone: %v", err)
	}
	if !done || !sub.IsCanceled() {
		t.Error("subscriber should be notified and canceled")
	}
}

func TestHandleEventErrorDeliversChannelError(t *testing.T) {
	setupTestBridge(t)
	ch := NewEventChannel("test/errs")
	var got error
	ch.Listen(EventHandler{OnError: func(err error) { got = err }})

	if err := HandleEventError("test/errs", "io", "disk gone"); err != nil {
		t.Fatalf("HandleEventError: %v", err)
	}
	var ce *ChannelError
	if !errors.As(got, &ce) || ce.Code != "io" {
		t.Errorf("got %v, want ChannelError io", got)
	}
}

func TestHandleEventUnregistered(t *testing.T) {
	setupTestBridge(t)
	if err := HandleEvent("test/never_registered", nil); !errors.Is(err, ErrChannelNotRegistered) {
		t.Errorf("err = %v, want ErrChannelNotRegistered", err)
	}
}

func TestStreamParsesEvents(t *testing.T) {
	setupTestBridge(t)
	ch := NewEventChannel("test/stream")
	stream := NewStream(ch, func(data any) (string, error) {
		s, ok := data.(string)
		if !ok {
			return "", errors.New("not a string")
		}
		return s, nil
	})

	var got []string
	unsubscribe := stream.Listen(func(s string) { got = append(got, s) })
	defer unsubscribe()

	_ = HandleEvent("test/stream", []byte(`"a"`))
	_ = HandleEvent("test/stream", []byte(`12`))
	_ = HandleEvent("test/stream", []byte(`"b"`))

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestDispatch(t *testing.T) {
	t.Cleanup(ResetForTest)
	if Dispatch(func() {}) {
		t.Error("Dispatch without a registered function should return false")
	}
	ran := false
	RegisterDispatch(func(cb func()) { cb() })
	if !Dispatch(func() { ran = true }) || !ran {
		t.Error("Dispatch should run the callback")
	}
	if Dispatch(nil) {
		t.Error("Dispatch(nil) should return false")
	}
}
