package msg

// QueryFlags are the flags in a Query.
type QueryFlags int32

// QueryFlags constants.
const (
	_ QueryFlags = 1 << iota
	SlaveOK
	Exhaust
	Partial
)

// Query is a message sent to the server that expects a Reply.
type Query struct {
	ReqID                int32
	Flags                QueryFlags
	FullCollectionName   string
	NumberToSkip         int32
	NumberToReturn       int32
	Query                interface{}
	ReturnFieldsSelector interface{}

	isCommand bool
}

// RequestID gets the request id of the message.
func (m *Query) RequestID() int32 { return m.ReqID }

// Replyable indicates whether the server sends a reply for this message.
func (m *Query) Replyable() bool { return true }

// IsCommand indicates whether the query targets a $cmd collection. Command
// queries are held to the maximum document size rather than the maximum
// message size.
func (m *Query) IsCommand() bool { return m.isCommand }
