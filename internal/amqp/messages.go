package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// RecomputeMessage asks the worker to recompute every account balance of a
// user. TransactionID names the write that triggered it, when there is one;
// the worker reads everything else from the store.
type RecomputeMessage struct {
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

var errMissingUserID = errors.New("recompute message without user_id")

func NewRecomputeMessage(userID, transactionID string) *RecomputeMessage {
	return &RecomputeMessage{
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecomputeMessageFromJSON decodes a message body. Bodies without a user id
// are rejected so they can be dropped instead of requeued forever.
func RecomputeMessageFromJSON(data []byte) (*RecomputeMessage, error) {
	var msg RecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errMissingUserID
	}
	return &msg, nil
}
