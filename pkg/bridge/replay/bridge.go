package replay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/geolocation"
	"github.com/go-drift/geolocation/pkg/platform"
)

const timeoutMessage = "Timeout expired"

// Bridge plays a Track back through the geolocation channels.
//
// Each getCurrentPosition takes the next step of the track, wrapping at the
// end. Each watchPosition plays the whole track from the start on its own
// goroutine until it is cleared. A step whose delay exceeds the request's
// timeout is reported as a timeout failure instead.
type Bridge struct {
	// Now stamps readings that carry no timestamp. Defaults to time.Now.
	Now func() time.Time

	track *Track

	mu        sync.Mutex
	cursor    int
	watches   map[int64]chan struct{}
	nextWatch int64
	listening bool
	closed    bool
	done      chan struct{}
	wg        sync.WaitGroup
}

type call struct {
	RequestID int64                        `json:"requestId"`
	WatchID   int64                        `json:"watchId"`
	Options   *geolocation.PositionOptions `json:"options"`
}

// New returns a Bridge for track. The track must be valid.
func New(track *Track) *Bridge {
	return &Bridge{
		Now:     time.Now,
		track:   track,
		watches: make(map[int64]chan struct{}),
		done:    make(chan struct{}),
	}
}

// InvokeMethod implements platform.NativeBridge.
func (b *Bridge) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	if channel != geolocation.MethodChannelName {
		return nil, fmt.Errorf("%w: %s", platform.ErrChannelNotFound, channel)
	}

	var c call
	if len(args) > 0 {
		if err := json.Unmarshal(args, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", platform.ErrInvalidArguments, err)
		}
	}
	opts := geolocation.DefaultPositionOptions()
	if c.Options != nil {
		opts = *c.Options
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, platform.ErrClosed
	}

	switch method {
	case "getCurrentPosition":
		step := b.track.Steps[b.cursor]
		b.cursor = (b.cursor + 1) % len(b.track.Steps)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.playStep(c.RequestID, step, opts, nil)
		}()
		return platform.DefaultCodec.Encode(nil)

	case "watchPosition":
		b.nextWatch++
		id := b.nextWatch
		stop := make(chan struct{})
		b.watches[id] = stop
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.playWatch(c.RequestID, opts, stop)
		}()
		return platform.DefaultCodec.Encode(map[string]any{"watchId": id})

	case "clearWatch":
		// Browsers ignore unknown ids, and so does the replay.
		if stop, ok := b.watches[c.WatchID]; ok {
			close(stop)
			delete(b.watches, c.WatchID)
		}
		return platform.DefaultCodec.Encode(nil)

	default:
		return nil, fmt.Errorf("%w: %s", platform.ErrMethodNotFound, method)
	}
}

// StartEventStream implements platform.NativeBridge.
func (b *Bridge) StartEventStream(channel string) error {
	if channel != geolocation.EventChannelName {
		return fmt.Errorf("%w: %s", platform.ErrChannelNotFound, channel)
	}
	b.mu.Lock()
	b.listening = true
	b.mu.Unlock()
	return nil
}

// StopEventStream implements platform.NativeBridge.
func (b *Bridge) StopEventStream(channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return platform.ErrClosed
	}
	if channel == geolocation.EventChannelName {
		b.listening = false
	}
	return nil
}

// ActiveWatches returns the number of watches not yet cleared.
func (b *Bridge) ActiveWatches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watches)
}

// Close stops all playback and waits for it to finish.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.done)
	b.watches = make(map[int64]chan struct{})
	b.mu.Unlock()
	b.wg.Wait()
}

func (b *Bridge) playWatch(requestID int64, opts geolocation.PositionOptions, stop <-chan struct{}) {
	for {
		for _, step := range b.track.Steps {
			if !b.playStep(requestID, step, opts, stop) {
				return
			}
		}
		if !b.track.Loop {
			return
		}
	}
}

// playStep waits out the step's delay and emits it. It returns false when
// playback was stopped first.
func (b *Bridge) playStep(requestID int64, step Step, opts geolocation.PositionOptions, stop <-chan struct{}) bool {
	wait := step.Delay
	timedOut := time.Duration(opts.TimeoutMs)*time.Millisecond < wait
	if timedOut {
		wait = time.Duration(opts.TimeoutMs) * time.Millisecond
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-stop:
			return false
		case <-b.done:
			return false
		}
	} else {
		select {
		case <-stop:
			return false
		case <-b.done:
			return false
		default:
		}
	}

	switch {
	case timedOut:
		b.emit(requestID, geolocation.EventKindError, map[string]any{
			"code":    int(geolocation.Timeout),
			"message": timeoutMessage,
		})
	case step.Error != nil:
		b.emit(requestID, geolocation.EventKindError, map[string]any{
			"code":    step.Error.Code,
			"message": step.Error.Message,
		})
	default:
		b.emit(requestID, geolocation.EventKindPosition, b.positionPayload(step.Position))
	}
	return true
}

func (b *Bridge) positionPayload(r *Reading) map[string]any {
	ts := uint64(b.Now().UnixMilli())
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return map[string]any{
		"coords": map[string]any{
			"latitude":         r.Latitude,
			"longitude":        r.Longitude,
			"accuracy":         r.Accuracy,
			"altitude":         r.Altitude,
			"altitudeAccuracy": r.AltitudeAccuracy,
			"heading":          r.Heading,
			"speed":            r.Speed,
		},
		"timestamp": ts,
	}
}

func (b *Bridge) emit(requestID int64, kind string, payload any) {
	b.mu.Lock()
	listening := b.listening && !b.closed
	b.mu.Unlock()
	if !listening {
		return
	}

	data, err := json.Marshal(map[string]any{
		"requestId": requestID,
		"kind":      kind,
		"payload":   payload,
	})
	if err != nil {
		errors.Report(&errors.GeoError{
			Op:      "replay.emit",
			Kind:    errors.KindPlatform,
			Channel: geolocation.EventChannelName,
			Err:     err,
		})
		return
	}
	_ = platform.HandleEvent(geolocation.EventChannelName, data)
}
