package turn

// Broadcaster delivers a message to every member of a match. Defined here to
// break the import cycle between turn and broadcast.
type Broadcaster interface {
	BroadcastToMatch(matchID string, msgID uint16, data []byte) error
}
