package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"tri-league/internal/config"
	"tri-league/internal/matchclock"
	"tri-league/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
)

func main() {
	cfg, err := config.LoadObserver()
	if err != nil {
		panic(err)
	}
	wsURL := flag.String("url", cfg.WSURL, "websocket base url")
	sessionID := flag.StringP("session", "s", cfg.SessionID, "session id to observe")
	commands := flag.StringSlice("command", nil, "commands to send after the welcome (start, stop, reset, clear_alarm)")
	quiet := flag.BoolP("quiet", "q", false, "only print alarm and expiry events")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if !matchclock.ValidSessionID(*sessionID) {
		log.Fatal().Str("session_id", *sessionID).Msg("invalid session id")
	}
	target := strings.TrimRight(*wsURL, "/") + "/" + *sessionID
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", target).Msg("dial failed")
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("connection closed")
			}
			return
		}
		line, kind := render(data)
		if line != "" && (!*quiet || kind == matchclock.EventAlarm || kind == matchclock.EventExpiry) {
			fmt.Println(line)
		}
		if kind == "welcome" {
			for i, cmd := range *commands {
				msg, _ := json.Marshal(ws.CommandMessage{Type: cmd, RequestID: fmt.Sprintf("observer-%d", i+1)})
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					log.Error().Err(err).Str("command", cmd).Msg("send command failed")
					return
				}
			}
		}
	}
}

// render formats one server message for the terminal and reports its kind.
func render(data []byte) (string, string) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return "", ""
	}
	switch base.Type {
	case "welcome":
		var w ws.Welcome
		_ = json.Unmarshal(data, &w)
		return fmt.Sprintf("connected to %s (protocol %s, commands enabled: %t)", w.SessionID, w.ProtocolVersion, w.CommandsEnabled), "welcome"
	case "command_result":
		var res ws.CommandResult
		_ = json.Unmarshal(data, &res)
		if res.Ok {
			return fmt.Sprintf("%s ok", res.Command), "command_result"
		}
		return fmt.Sprintf("%s failed: %s", res.Command, res.Error), "command_result"
	case "event":
		var ev struct {
			Event string           `json:"event"`
			Data  matchclock.State `json:"data"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			return "", ""
		}
		return formatState(ev.Event, ev.Data), ev.Event
	default:
		return "", base.Type
	}
}

func formatState(event string, st matchclock.State) string {
	status := "stopped"
	if st.Running {
		status = "running"
	}
	line := fmt.Sprintf("[%s] %s %s", st.SessionID, formatClock(st.RemainingSeconds), status)
	switch event {
	case matchclock.EventAlarm:
		return line + " ALARM"
	case matchclock.EventExpiry:
		return line + " TIME UP"
	}
	if st.AlarmFired {
		line += " (alarm)"
	}
	return line
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
