package geolocation

// WatchID identifies a native watch subscription.
type WatchID int64

// RawCallback receives an undecoded native payload.
type RawCallback func(raw any)

// Native is the host geolocation capability.
//
// Implementations own the callbacks they are given. For GetCurrentPosition
// they invoke at most one of success or failure, once, and then release
// both. For WatchPosition they may invoke either any number of times, in
// the host's delivery order, until ClearWatch releases them.
// A nil failure callback means the caller registered none.
type Native interface {
	GetCurrentPosition(success, failure RawCallback, opts PositionOptions) error
	WatchPosition(success, failure RawCallback, opts PositionOptions) (WatchID, error)
	ClearWatch(id WatchID) error
}
