package main

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// BridgePortState is the bridge-port snapshot attached to a dataplane result.
type BridgePortState struct {
	Flags uint64
}

// DataplaneEvent is the event context the daemon hands to the hook after one
// dataplane-result batch. A nil BridgePort means the batch carried no bridge
// port and the hook has nothing to do.
type DataplaneEvent struct {
	InterfaceName string
	BridgePort    *BridgePortState
}

// HookResult is the canonical empty result the daemon expects back from
// every invocation.
type HookResult struct{}

type Hook struct {
	sink StatusSink
	log  zerolog.Logger
}

func NewHook(sink StatusSink, log zerolog.Logger) *Hook {
	return &Hook{sink: sink, log: log}
}

// HandleDataplaneResult classifies the bridge port of one dataplane result
// and publishes the classification. It never propagates a failure back to
// the daemon: sink errors are logged and dropped, and the result is the
// canonical empty result on every path.
func (h *Hook) HandleDataplaneResult(event *DataplaneEvent) (result HookResult) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Msg("hook: recovered from panic")
		}
	}()
	if event == nil || event.BridgePort == nil {
		return HookResult{}
	}
	record := StatusRecord{
		Interface: event.InterfaceName,
		Status:    ClassifyFlags(event.BridgePort.Flags),
	}
	err := h.sink.Publish(record)
	if err != nil {
		h.log.Error().Err(err).Str("interface", record.Interface).Msg("hook: failed to publish status")
	}
	return HookResult{}
}

type rawDataplaneEvent struct {
	InterfaceName string `json:"interfaceName"`
	BridgePort    *struct {
		Flags json.RawMessage `json:"flags"`
	} `json:"bridgePort"`
}

// ParseDataplaneEvent decodes the daemon's JSON event context. The flag word
// may arrive as a JSON number, a numeric string, or not at all; anything
// unusable is coerced to 0 rather than rejected.
func ParseDataplaneEvent(data []byte) (*DataplaneEvent, error) {
	var raw rawDataplaneEvent
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse event context")
	}
	event := DataplaneEvent{InterfaceName: raw.InterfaceName}
	if raw.BridgePort != nil {
		event.BridgePort = &BridgePortState{Flags: coerceFlags(raw.BridgePort.Flags)}
	}
	return &event, nil
}

func coerceFlags(raw json.RawMessage) uint64 {
	if len(raw) == 0 {
		return 0
	}
	var number json.Number
	err := json.Unmarshal(raw, &number)
	if err != nil {
		var s string
		err = json.Unmarshal(raw, &s)
		if err != nil {
			return 0
		}
		number = json.Number(s)
	}
	flags, err := strconv.ParseUint(number.String(), 10, 64)
	if err == nil {
		return flags
	}
	f, err := number.Float64()
	if err == nil && f > 0 {
		return uint64(f)
	}
	return 0
}
