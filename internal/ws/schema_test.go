package ws

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"tri-league/internal/matchclock"
	"tri-league/internal/stream"
)

func compileSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()
	compiler := jsonschema.NewCompiler()
	data, err := os.ReadFile("../../api/schema/ws_v1.schema.json")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if err := compiler.AddResource("ws_v1.schema.json", strings.NewReader(string(data))); err != nil {
		t.Fatalf("add resource: %v", err)
	}
	schema, err := compiler.Compile("ws_v1.schema.json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return schema
}

func TestWSProtocolSchema(t *testing.T) {
	schema := compileSchema(t)

	samples := []string{
		`{"type":"welcome","protocol_version":"1.0","connection_id":"c1","session_id":"pitch-1","commands_enabled":true}`,
		`{"type":"event","protocol_version":"1.0","event_id":3,"event":"alarm","session_id":"pitch-1","server_ts":1,"data":{"session_id":"pitch-1","remaining_seconds":59,"running":true,"alarm_fired":true,"last_tick_at":"2024-05-04T10:00:00Z","seq":2}}`,
		`{"type":"command_result","protocol_version":"1.0","request_id":"req_1","command":"start","ok":true}`,
		`{"type":"command","request_id":"req_2"}`,
		`{"type":"clear_alarm"}`,
	}
	for i, s := range samples {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			t.Fatalf("unmarshal sample %d: %v", i, err)
		}
		err := schema.Validate(v)
		if i == 3 {
			if err == nil {
				t.Fatal("unknown command type should not validate")
			}
			continue
		}
		if err != nil {
			t.Fatalf("schema validate sample %d: %v", i, err)
		}
	}
}

func TestWSMessagesMatchSchema(t *testing.T) {
	schema := compileSchema(t)
	state := matchclock.State{
		SessionID:        "pitch-1",
		RemainingSeconds: 0,
		AlarmFired:       true,
		LastTickAt:       time.Date(2024, 5, 4, 10, 10, 0, 0, time.UTC),
		Seq:              9,
	}
	messages := []any{
		Welcome{Type: "welcome", ProtocolVersion: ProtocolVersion, ConnectionID: "c1", SessionID: "pitch-1"},
		eventMessage(stream.Event{ID: 10, Event: matchclock.EventExpiry, SessionID: "pitch-1", ServerTS: 5, Data: state}),
		CommandResult{Type: "command_result", ProtocolVersion: ProtocolVersion, Command: "jump", Error: "unknown_command"},
		CommandMessage{Type: CommandReset, RequestID: "r1"},
	}
	for i, m := range messages {
		raw, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		var v any
		_ = json.Unmarshal(raw, &v)
		if err := schema.Validate(v); err != nil {
			t.Fatalf("message %d %s: %v", i, raw, err)
		}
	}
}
