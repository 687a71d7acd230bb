package types

type MessageType string

const (
	MsgStateSnapshot MessageType = "StateSnapshot"
	MsgError         MessageType = "Error"
)

// ServerMessage is every frame the spectator feed sends.
//
// StateSnapshot:
//
//	version: number   (monotonic per feed)
//	state:   Snapshot
//
// Error:
//
//	error: string
type ServerMessage struct {
	Type    MessageType `json:"type"`
	Version uint64      `json:"version,omitempty"`
	State   *Snapshot   `json:"state,omitempty"`
	Error   string      `json:"error,omitempty"`
}
