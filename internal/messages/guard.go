package messages

import "github.com/messagely/server/internal/model"

// CanView reports whether the caller may see the message: only the sender
// and the recipient.
func CanView(caller string, msg model.Message) bool {
	return caller == msg.FromUsername || caller == msg.ToUsername
}

// CanMarkRead reports whether the caller may mark the message read: only
// the recipient, never the sender.
func CanMarkRead(caller string, msg model.Message) bool {
	return caller == msg.ToUsername
}
