package server

import "encoding/json"

// Outbound WebSocket envelopes. Lobby state is sent bare for
// compatibility with the lobby UI; everything else carries a type tag.

type gameStateMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type connectionInfoMessage struct {
	Type             string   `json:"type"`
	ConnectedPlayers []string `json:"connected_players"`
	SpectatorCount   int      `json:"spectator_count"`
}

type pingMessage struct {
	Type string `json:"type"`
	TS   int64  `json:"ts"`
}

// clientMessage is anything a client sends over the socket. Only pong
// is meaningful today; unknown types are ignored.
type clientMessage struct {
	Type string `json:"type"`
}

func marshalGameState(view any) ([]byte, error) {
	return json.Marshal(gameStateMessage{Type: "game_state", Data: view})
}

func marshalConnectionInfo(players []string, spectators int) ([]byte, error) {
	if players == nil {
		players = []string{}
	}
	return json.Marshal(connectionInfoMessage{
		Type:             "connection_info",
		ConnectedPlayers: players,
		SpectatorCount:   spectators,
	})
}

func marshalPing(ts int64) ([]byte, error) {
	return json.Marshal(pingMessage{Type: "ping", TS: ts})
}
