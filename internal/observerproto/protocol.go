package observerproto

// Version is the observer feed version (separate from the line protocol).
const Version = "1.0"

const (
	TypeSubscribe  = "SUBSCRIBE"
	TypeWorldState = "WORLDSTATE"
	TypeWithdrawn  = "WITHDRAWN"
)

// Client -> Server. First message on the observer WS connection.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}

// HTTP response for GET /v1/observe/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string `json:"protocol_version"`
	Active          bool   `json:"active"`
	Turn            int    `json:"turn"`
	Observers       int    `json:"observers"`
}

// Server -> Client. Sent whenever the world-state export is refreshed, and
// once right after SUBSCRIBE if a world is active.
type WorldStateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Turn            int    `json:"turn"`
	Text            string `json:"text"`
}

// Server -> Client. The world went inactive; the last export is void.
type WithdrawnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
}
