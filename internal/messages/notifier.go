package messages

// Notifier pushes a freshly persisted message to the recipient's live
// connection, if any. Implementations must never block and never report
// failure to the sender: the message is already durable, an offline or broken
// recipient simply picks it up on the next fetch.
type Notifier interface {
	Push(userID int64, msg Message)
}
