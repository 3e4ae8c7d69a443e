package wsbridge

import (
	"encoding/json"

	"github.com/go-drift/geolocation/pkg/platform"
)

// Frame types exchanged with the page.
const (
	frameHello      = "hello"
	frameInvoke     = "invoke"
	frameResult     = "result"
	frameListen     = "listen"
	frameCancel     = "cancel"
	frameEvent      = "event"
	frameEventError = "eventError"
	frameEventDone  = "eventDone"
)

// frame is the single JSON envelope used in both directions.
type frame struct {
	Type    string                 `json:"type"`
	ID      int64                  `json:"id,omitempty"`
	Session string                 `json:"session,omitempty"`
	Channel string                 `json:"channel,omitempty"`
	Method  string                 `json:"method,omitempty"`
	Args    json.RawMessage        `json:"args,omitempty"`
	Result  json.RawMessage        `json:"result,omitempty"`
	Data    json.RawMessage        `json:"data,omitempty"`
	Error   *platform.ChannelError `json:"error,omitempty"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
}
