package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{15, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"closed connection", errors.New("connection closed"), true},
		{"unexpected EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"channel closed", errors.New("message channel closed"), true},
		{"handler error", errors.New("spreadsheet quota exceeded"), false},
		{"validation error", errors.New("unknown mirror op"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestMirrorMessageRoundTrip(t *testing.T) {
	msg := NewMirrorMessage(42, 7, OpUpsert)
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	back, err := MirrorMessageFromJSON(body)
	if err != nil {
		t.Fatalf("MirrorMessageFromJSON: %v", err)
	}
	if back.ExpenseID != 42 || back.OwnerID != 7 || back.Op != OpUpsert {
		t.Errorf("got %+v, want expense 42 owner 7 op upsert", back)
	}
}

func TestMirrorMessageValidate(t *testing.T) {
	tests := []struct {
		name string
		msg  MirrorMessage
		ok   bool
	}{
		{"valid upsert", MirrorMessage{ExpenseID: 1, OwnerID: 1, Op: OpUpsert}, true},
		{"valid delete", MirrorMessage{ExpenseID: 1, OwnerID: 1, Op: OpDelete}, true},
		{"missing expense id", MirrorMessage{OwnerID: 1, Op: OpUpsert}, false},
		{"missing owner id", MirrorMessage{ExpenseID: 1, Op: OpUpsert}, false},
		{"unknown op", MirrorMessage{ExpenseID: 1, OwnerID: 1, Op: "sync"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestMirrorMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := MirrorMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed body")
	}
	if _, err := MirrorMessageFromJSON([]byte(`{"expense_id":0,"owner_id":0,"op":"upsert"}`)); err == nil {
		t.Error("expected error for empty identifiers")
	}
}
