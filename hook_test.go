package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type mockSink struct {
	records []StatusRecord
	err     error
}

func (s *mockSink) Publish(record StatusRecord) error {
	s.records = append(s.records, record)
	return s.err
}

type panicSink struct{}

func (panicSink) Publish(record StatusRecord) error {
	panic("sink exploded")
}

func TestHookNoBridgePort(t *testing.T) {
	sink := &mockSink{}
	hook := NewHook(sink, zerolog.Nop())
	result := hook.HandleDataplaneResult(&DataplaneEvent{InterfaceName: "eth0"})
	if result != (HookResult{}) {
		t.Errorf("result = %v; want empty", result)
	}
	if len(sink.records) != 0 {
		t.Errorf("len(sink.records) = %d; want 0", len(sink.records))
	}
}

func TestHookNilEvent(t *testing.T) {
	sink := &mockSink{}
	hook := NewHook(sink, zerolog.Nop())
	result := hook.HandleDataplaneResult(nil)
	if result != (HookResult{}) {
		t.Errorf("result = %v; want empty", result)
	}
	if len(sink.records) != 0 {
		t.Errorf("len(sink.records) = %d; want 0", len(sink.records))
	}
}

func TestHookPublishesClassification(t *testing.T) {
	sink := &mockSink{}
	hook := NewHook(sink, zerolog.Nop())
	hook.HandleDataplaneResult(&DataplaneEvent{
		InterfaceName: "bond0",
		BridgePort:    &BridgePortState{Flags: 5},
	})
	if len(sink.records) != 1 {
		t.Fatalf("len(sink.records) = %d; want 1", len(sink.records))
	}
	if sink.records[0].Interface != "bond0" {
		t.Errorf("record.Interface = %s; want bond0", sink.records[0].Interface)
	}
	if sink.records[0].Status != NonDF {
		t.Errorf("record.Status = %v; want %v", sink.records[0].Status, NonDF)
	}
}

func TestHookSwallowsSinkError(t *testing.T) {
	sink := &mockSink{err: errors.New("disk full")}
	hook := NewHook(sink, zerolog.Nop())
	result := hook.HandleDataplaneResult(&DataplaneEvent{
		InterfaceName: "eth0",
		BridgePort:    &BridgePortState{Flags: 1},
	})
	if result != (HookResult{}) {
		t.Errorf("result = %v; want empty", result)
	}
}

func TestHookRecoversPanic(t *testing.T) {
	hook := NewHook(panicSink{}, zerolog.Nop())
	result := hook.HandleDataplaneResult(&DataplaneEvent{
		InterfaceName: "eth0",
		BridgePort:    &BridgePortState{Flags: 0},
	})
	if result != (HookResult{}) {
		t.Errorf("result = %v; want empty", result)
	}
}

func TestParseDataplaneEventFlags(t *testing.T) {
	cases := map[string]uint64{
		`{"interfaceName":"eth0","bridgePort":{"flags":3}}`:     3,
		`{"interfaceName":"eth0","bridgePort":{"flags":"7"}}`:   7,
		`{"interfaceName":"eth0","bridgePort":{"flags":2.0}}`:   2,
		`{"interfaceName":"eth0","bridgePort":{"flags":-5}}`:    0,
		`{"interfaceName":"eth0","bridgePort":{"flags":"abc"}}`: 0,
		`{"interfaceName":"eth0","bridgePort":{"flags":true}}`:  0,
		`{"interfaceName":"eth0","bridgePort":{}}`:              0,
	}
	for input, want := range cases {
		event, err := ParseDataplaneEvent([]byte(input))
		if err != nil {
			t.Fatalf("ParseDataplaneEvent(%s) = %v; want nil", input, err)
		}
		if event.BridgePort == nil {
			t.Fatalf("ParseDataplaneEvent(%s).BridgePort = nil; want non-nil", input)
		}
		if event.BridgePort.Flags != want {
			t.Errorf("ParseDataplaneEvent(%s).BridgePort.Flags = %d; want %d", input, event.BridgePort.Flags, want)
		}
	}
}

func TestParseDataplaneEventAbsentFields(t *testing.T) {
	event, err := ParseDataplaneEvent([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseDataplaneEvent({}) = %v; want nil", err)
	}
	if event.InterfaceName != "" {
		t.Errorf("event.InterfaceName = %q; want \"\"", event.InterfaceName)
	}
	if event.BridgePort != nil {
		t.Errorf("event.BridgePort = %v; want nil", event.BridgePort)
	}
}

func TestParseDataplaneEventMalformed(t *testing.T) {
	_, err := ParseDataplaneEvent([]byte(`not json`))
	if err == nil {
		t.Errorf("ParseDataplaneEvent(not json) = nil; want error")
	}
}
