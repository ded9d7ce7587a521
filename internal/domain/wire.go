package domain

// Message type tags for the websocket envelope. One message type per frame.
const (
	// Inbound (client -> session)
	TypeJoin      = "join"
	TypeSentiment = "sentiment"
	TypeTip       = "tip"
	TypeLeave     = "leave"

	// Outbound (session -> client)
	TypeRoomInfo  = "room_info"
	TypeUserCount = "user_count"
	TypeSnapshot  = "snapshot"
	TypeTipEvent  = "tip_event"
	TypeError     = "error"
)

// Timestamps on the wire are Unix milliseconds.

type RoomInfoMessage struct {
	Type              string `json:"type"`
	Title             string `json:"title"`
	PayoutDestination string `json:"payoutDestination"`
}

type UserCountMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type SnapshotMessage struct {
	Type        string  `json:"type"`
	Timestamp   int64   `json:"timestamp"`
	Average     float64 `json:"average"`
	SampleCount int     `json:"sampleCount"`
}

type TipEventMessage struct {
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	TotalTips float64 `json:"totalTips"`
	Timestamp int64   `json:"timestamp"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
