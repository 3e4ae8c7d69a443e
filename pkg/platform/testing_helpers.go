package platform

import "sync"

// InvokeFunc answers a method call in a FakeBridge. args is the decoded argument value.
type InvokeFunc func(channel, method string, args any) (any, error)

// FakeBridge is a NativeBridge driven by a Go function, for tests and
// simulated hosts. Results go through DefaultCodec like a real bridge.
type FakeBridge struct {
	Invoke  InvokeFunc
	Started map[string]int
	Stopped map[string]int
	mu      sync.Mutex
}

// InvokeMethod decodes args, calls Invoke and encodes its result.
func (b *FakeBridge) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	if b.Invoke == nil {
		return DefaultCodec.Encode(nil)
	}
	decoded, err := DefaultCodec.Decode(args)
	if err != nil {
		return nil, err
	}
	result, err := b.Invoke(channel, method, decoded)
	if err != nil {
		return nil, err
	}
	return DefaultCodec.Encode(result)
}

// StartEventStream records the start.
func (b *FakeBridge) StartEventStream(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Started == nil {
		b.Started = map[string]int{}
	}
	b.Started[channel]++
	return nil
}

// StopEventStream records the stop.
func (b *FakeBridge) StopEventStream(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Stopped == nil {
		b.Stopped = map[string]int{}
	}
	b.Stopped[channel]++
	return nil
}

// SetupTestBridge installs a FakeBridge answering with invoke (nil means
// every call returns null) and an inline dispatch function. The cleanup
// function should be testing.T.Cleanup or equivalent; it registers a
// teardown that calls ResetForTest.
//
//	bridge := platform.SetupTestBridge(t.Cleanup, nil)
func SetupTestBridge(cleanup func(func()), invoke InvokeFunc) *FakeBridge {
	bridge := &FakeBridge{Invoke: invoke}
	SetNativeBridge(bridge)
	RegisterDispatch(func(cb func()) { cb() })
	cleanup(ResetForTest)
	return bridge
}
