package http

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomsResponse wraps a game's lobby list.
type RoomsResponse struct {
	Game  string `json:"game"`
	Rooms any    `json:"rooms"`
}

type StatsResponse struct {
	Clients int            `json:"clients"`
	Users   int            `json:"users"`
	Rooms   map[string]int `json:"rooms"`
}

// ConfigResponse is the part of the server configuration clients need to
// render timers and the map picker. Durations are in milliseconds.
type ConfigResponse struct {
	Undercover UndercoverTimings `json:"undercover"`
	Bomberman  BombermanTimings  `json:"bomberman"`
}

type UndercoverTimings struct {
	DisconnectGrace int64 `json:"disconnectGrace"`
}

type BombermanTimings struct {
	ExplosionTTL int64 `json:"explosionTtl"`
	ChainDelay   int64 `json:"chainDelay"`
	PushDelay    int64 `json:"pushDelay"`
	DyingTimeout int64 `json:"dyingTimeout"`
	Maps         any   `json:"maps"`
}
