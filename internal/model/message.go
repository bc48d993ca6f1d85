package model

import (
	"time"
)

// TimestampLayout is the format of message keys. It sorts chronologically.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Message represents a single guestbook entry.
type Message struct {
	Timestamp string `json:"-"`
	Username  string `json:"username"`
	Body      string `json:"message"`
}

// NewMessage creates a Message keyed by the given instant.
func NewMessage(now time.Time, username, body string) Message {
	return Message{
		Timestamp: TimestampKey(now),
		Username:  username,
		Body:      body,
	}
}

// TimestampKey formats t as a message key.
func TimestampKey(t time.Time) string {
	return t.Format(TimestampLayout)
}
