package main

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line string
		kind string
	}{
		{
			name: "welcome",
			in:   `{"type":"welcome","protocol_version":"1.0","connection_id":"c1","session_id":"pitch-1","commands_enabled":true}`,
			line: "connected to pitch-1 (protocol 1.0, commands enabled: true)",
			kind: "welcome",
		},
		{
			name: "clock state",
			in:   `{"type":"event","event":"clock_state","data":{"session_id":"pitch-1","remaining_seconds":593,"running":true}}`,
			line: "[pitch-1] 09:53 running",
			kind: "clock_state",
		},
		{
			name: "alarm",
			in:   `{"type":"event","event":"alarm","data":{"session_id":"pitch-1","remaining_seconds":59,"running":true,"alarm_fired":true}}`,
			line: "[pitch-1] 00:59 running ALARM",
			kind: "alarm",
		},
		{
			name: "expiry",
			in:   `{"type":"event","event":"expiry","data":{"session_id":"pitch-1","remaining_seconds":0,"running":false,"alarm_fired":true}}`,
			line: "[pitch-1] 00:00 stopped TIME UP",
			kind: "expiry",
		},
		{
			name: "stopped after alarm",
			in:   `{"type":"event","event":"clock_state","data":{"session_id":"pitch-1","remaining_seconds":42,"alarm_fired":true}}`,
			line: "[pitch-1] 00:42 stopped (alarm)",
			kind: "clock_state",
		},
		{
			name: "command failure",
			in:   `{"type":"command_result","command":"start","ok":false,"error":"commands_disabled"}`,
			line: "start failed: commands_disabled",
			kind: "command_result",
		},
		{name: "garbage", in: `{`, line: "", kind: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line, kind := render([]byte(tc.in))
			if line != tc.line || kind != tc.kind {
				t.Fatalf("render() = (%q, %q), want (%q, %q)", line, kind, tc.line, tc.kind)
			}
		})
	}
}
