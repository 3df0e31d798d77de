package types

type EventTypes string

func (e EventTypes) String() string {
	return string(e)
}

const (
	EventPoolCreated        EventTypes = "ledger.v1.EventPoolCreated"
	EventStaked             EventTypes = "ledger.v1.EventStaked"
	EventUnstaked           EventTypes = "ledger.v1.EventUnstaked"
	EventRewardsClaimed     EventTypes = "ledger.v1.EventRewardsClaimed"
	EventPoolUpdated        EventTypes = "ledger.v1.EventPoolUpdated"
	EventEmergencyWithdrawn EventTypes = "ledger.v1.EventEmergencyWithdrawn"
)

// LedgerEvent is the payload published to the notification sink. Amounts
// are decimal strings so consumers do not need to care about integer width.
type LedgerEvent struct {
	EventType EventTypes `json:"event_type"`
	PoolID    uint64     `json:"pool_id"`
	Account   string     `json:"account,omitempty"`
	Asset     string     `json:"asset,omitempty"`
	Amount    string     `json:"amount,omitempty"`
	Timestamp uint64     `json:"timestamp"`
}
