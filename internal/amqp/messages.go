package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"moim/internal/core"
)

// SnapshotRefreshedMessage announces that the stored snapshot was replaced.
// Consumers re-read the snapshot themselves; the counts are informational.
type SnapshotRefreshedMessage struct {
	Source        string    `json:"source"`
	Members       int       `json:"members"`
	LedgerEntries int       `json:"ledger_entries"`
	Assets        int       `json:"assets"`
	RefreshedAt   time.Time `json:"refreshed_at"`
}

// NewSnapshotRefreshedMessage describes s as refreshed now.
func NewSnapshotRefreshedMessage(s core.Snapshot) *SnapshotRefreshedMessage {
	members, ledger, assets := s.Counts()
	return &SnapshotRefreshedMessage{
		Source:        s.Source,
		Members:       members,
		LedgerEntries: ledger,
		Assets:        assets,
		RefreshedAt:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRefreshedMessageFromJSON decodes a message and rejects one
// without a refresh time.
func SnapshotRefreshedMessageFromJSON(data []byte) (*SnapshotRefreshedMessage, error) {
	var msg SnapshotRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RefreshedAt.IsZero() {
		return nil, errors.New("snapshot refreshed message without refreshed_at")
	}
	return &msg, nil
}
