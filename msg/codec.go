package msg

import "io"

// Encoder encodes messages.
type Encoder interface {
	// Encode encodes a number of messages to the writer.
	Encode(io.Writer, ...Message) error
}

// Decoder decodes messages.
type Decoder interface {
	// Decode decodes one message from the reader.
	Decode(io.Reader) (Message, error)
}

// Codec encodes and decodes messages.
type Codec interface {
	Encoder
	Decoder

	// EncodeOne encodes a single message into its framed bytes without
	// writing them anywhere. The result is the uncompressed frame; its
	// length is the size the message occupies on the wire before any
	// wire-level compression is applied.
	EncodeOne(Message) ([]byte, error)
}
