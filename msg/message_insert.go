package msg

// InsertFlags are the flags in an Insert.
type InsertFlags int32

// InsertFlags constants.
const (
	ContinueOnError InsertFlags = 1 << iota
)

// NewInsert creates a new Insert message.
func NewInsert(requestID int32, fullCollectionName string, docs ...interface{}) *Insert {
	return &Insert{
		ReqID:              requestID,
		FullCollectionName: fullCollectionName,
		Documents:          docs,
	}
}

// Insert is a message that writes documents to a collection. The server
// does not reply to it; acknowledgment requires a follow-up command.
type Insert struct {
	ReqID              int32
	Flags              InsertFlags
	FullCollectionName string
	Documents          []interface{}
}

// RequestID gets the request id of the message.
func (m *Insert) RequestID() int32 { return m.ReqID }

// Replyable indicates whether the server sends a reply for this message.
func (m *Insert) Replyable() bool { return false }
