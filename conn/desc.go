package conn

// Desc contains a description of the server on the other end of a
// connection, as learned from the handshake.
type Desc struct {
	Endpoint            Endpoint
	MaxBSONObjectSize   uint32
	MaxMessageSizeBytes uint32
	MaxWriteBatchSize   uint32
	WireVersion         Range
	Compression         []string
	ReadOnly            bool
}

// Range is an inclusive version range.
type Range struct {
	Min int32
	Max int32
}

// Includes indicates whether the value falls inside the range.
func (r Range) Includes(v int32) bool {
	return v >= r.Min && v <= r.Max
}
