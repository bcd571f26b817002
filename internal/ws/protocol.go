package ws

const ProtocolVersion = "1.0"

const (
	CommandStart      = "start"
	CommandStop       = "stop"
	CommandReset      = "reset"
	CommandClearAlarm = "clear_alarm"
)

const maxRequestIDLen = 64

type CommandMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

type CommandResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Command         string `json:"command,omitempty"`
	Ok              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
}

type Welcome struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ConnectionID    string `json:"connection_id"`
	SessionID       string `json:"session_id"`
	CommandsEnabled bool   `json:"commands_enabled"`
}

// EventMessage wraps one session stream event for the socket.
type EventMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EventID         int64  `json:"event_id"`
	Event           string `json:"event"`
	SessionID       string `json:"session_id"`
	ServerTS        int64  `json:"server_ts"`
	Data            any    `json:"data"`
}
