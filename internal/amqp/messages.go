package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Mirror operations.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// MirrorMessage asks the mirror worker to reconcile one expense row in
// the spreadsheet. It carries only identifiers; the worker re-reads the
// expense from the store so a stale queue never overwrites fresh data.
type MirrorMessage struct {
	ExpenseID int64     `json:"expense_id"`
	OwnerID   int64     `json:"owner_id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMirrorMessage(expenseID, ownerID int64, op string) *MirrorMessage {
	return &MirrorMessage{
		ExpenseID: expenseID,
		OwnerID:   ownerID,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *MirrorMessage) Validate() error {
	if m.ExpenseID <= 0 || m.OwnerID <= 0 {
		return fmt.Errorf("mirror message missing identifiers: expense=%d owner=%d", m.ExpenseID, m.OwnerID)
	}
	if m.Op != OpUpsert && m.Op != OpDelete {
		return fmt.Errorf("unknown mirror op %q", m.Op)
	}
	return nil
}

func (m *MirrorMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MirrorMessageFromJSON(data []byte) (*MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
