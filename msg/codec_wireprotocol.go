package msg

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/internal"
	"github.com/mongowire/mongowire/msg/compress"
)

const defaultEncodeBufferSize = 256

// frame header: length, requestID, responseTo, opcode
const headerLen = 16

// maxDecompressedSize caps the decompressed size a compressed frame may
// declare, matching the largest message size a server will produce. A
// frame declaring more than this is corrupt.
const maxDecompressedSize = 48000000

// NewWireProtocolCodec creates a Codec for the binary message format.
func NewWireProtocolCodec() Codec {
	return &wireProtocolCodec{
		lengthBytes: make([]byte, 4),
	}
}

type wireProtocolCodec struct {
	lengthBytes []byte
}

func (c *wireProtocolCodec) Decode(reader io.Reader) (Message, error) {
	_, err := io.ReadFull(reader, c.lengthBytes)
	if err != nil {
		return nil, internal.WrapError(err, "unable to decode message length")
	}

	length := readInt32(c.lengthBytes, 0)
	if length < headerLen {
		return nil, fmt.Errorf("invalid message length %d", length)
	}

	b := make([]byte, length)

	b[0] = c.lengthBytes[0]
	b[1] = c.lengthBytes[1]
	b[2] = c.lengthBytes[2]
	b[3] = c.lengthBytes[3]

	_, err = io.ReadFull(reader, b[4:])
	if err != nil {
		return nil, internal.WrapError(err, "unable to decode message")
	}

	return c.decode(b)
}

func (c *wireProtocolCodec) Encode(writer io.Writer, msgs ...Message) error {
	b := make([]byte, 0, defaultEncodeBufferSize)

	for _, m := range msgs {
		frame, err := c.EncodeOne(m)
		if err != nil {
			return err
		}
		b = append(b, frame...)
	}

	_, err := writer.Write(b)
	if err != nil {
		return internal.WrapError(err, "unable to encode messages")
	}
	return nil
}

func (c *wireProtocolCodec) EncodeOne(m Message) ([]byte, error) {
	b := make([]byte, 0, defaultEncodeBufferSize)

	var err error
	switch typedM := m.(type) {
	case *Query:
		b = addHeader(b, 0, typedM.ReqID, 0, int32(queryOpcode))
		b = addInt32(b, int32(typedM.Flags))
		b = addCString(b, typedM.FullCollectionName)
		b = addInt32(b, typedM.NumberToSkip)
		b = addInt32(b, typedM.NumberToReturn)
		b, err = addMarshalled(b, typedM.Query)
		if err != nil {
			return nil, internal.WrapError(err, "unable to marshal query")
		}
		if typedM.ReturnFieldsSelector != nil {
			b, err = addMarshalled(b, typedM.ReturnFieldsSelector)
			if err != nil {
				return nil, internal.WrapError(err, "unable to marshal return fields selector")
			}
		}
	case *Insert:
		b = addHeader(b, 0, typedM.ReqID, 0, int32(insertOpcode))
		b = addInt32(b, int32(typedM.Flags))
		b = addCString(b, typedM.FullCollectionName)
		for _, doc := range typedM.Documents {
			b, err = addMarshalled(b, doc)
			if err != nil {
				return nil, internal.WrapError(err, "unable to marshal document")
			}
		}
	case *Reply:
		b = addHeader(b, 0, typedM.ReqID, typedM.RespTo, int32(replyOpcode))
		b = addInt32(b, int32(typedM.ResponseFlags))
		b = addInt64(b, typedM.CursorID)
		b = addInt32(b, typedM.StartingFrom)
		b = addInt32(b, typedM.NumberReturned)
		b = append(b, typedM.DocumentsBytes...)
	default:
		return nil, fmt.Errorf("unsupported message type %T", m)
	}

	setInt32(b, 0, int32(len(b)))
	return b, nil
}

// CompressFrame rewraps an encoded frame so that its body travels
// compressed. The header of the outer frame carries the original
// request/response ids; the original opcode, the uncompressed body size and
// the compressor id preface the compressed body.
func CompressFrame(compressor compress.Compressor, frame []byte) ([]byte, error) {
	body := frame[headerLen:]

	var buf bytes.Buffer
	if err := compressor.Compress(body, &buf); err != nil {
		return nil, internal.WrapErrorf(err, "unable to compress message using %s", compressor.Name())
	}

	b := make([]byte, 0, headerLen+9+buf.Len())
	b = addHeader(b, 0, readInt32(frame, 4), readInt32(frame, 8), int32(compressedOpcode))
	b = addInt32(b, readInt32(frame, 12))
	b = addInt32(b, int32(len(body)))
	b = append(b, compressor.ID())
	b = append(b, buf.Bytes()...)

	setInt32(b, 0, int32(len(b)))
	return b, nil
}

func (c *wireProtocolCodec) decode(b []byte) (Message, error) {
	requestID := readInt32(b, 4)
	responseTo := readInt32(b, 8)
	op := readInt32(b, 12)

	if opcode(op) == compressedOpcode {
		var err error
		b, err = decompressFrame(b)
		if err != nil {
			return nil, err
		}
		op = readInt32(b, 12)
	}

	switch opcode(op) {
	case replyOpcode:
		replyMessage := &Reply{
			ReqID:        requestID,
			RespTo:       responseTo,
			partitioner:  bsonDocumentPartitioner,
			unmarshaller: bson.Unmarshal,
		}
		replyMessage.ResponseFlags = ReplyFlags(readInt32(b, 16))
		replyMessage.CursorID = readInt64(b, 20)
		replyMessage.StartingFrom = readInt32(b, 28)
		replyMessage.NumberReturned = readInt32(b, 32)
		replyMessage.DocumentsBytes = b[36:]
		return replyMessage, nil
	}

	return nil, fmt.Errorf("opcode %d not implemented", op)
}

func decompressFrame(b []byte) ([]byte, error) {
	if len(b) < headerLen+9 {
		return nil, fmt.Errorf("compressed message of %d bytes is too short", len(b))
	}

	originalOpcode := readInt32(b, 16)
	uncompressedSize := readInt32(b, 20)
	if uncompressedSize < 0 || uncompressedSize > maxDecompressedSize {
		return nil, fmt.Errorf("compressed message declares invalid decompressed size %d", uncompressedSize)
	}
	compressorID := b[24]

	compressor, ok := compress.Lookup(compressorID)
	if !ok {
		return nil, fmt.Errorf("unknown compressor id %d", compressorID)
	}

	body := make([]byte, uncompressedSize)
	if err := compressor.Decompress(bytes.NewReader(b[25:]), body); err != nil {
		return nil, internal.WrapErrorf(err, "unable to decompress message using %s", compressor.Name())
	}

	out := make([]byte, 0, headerLen+len(body))
	out = addHeader(out, int32(headerLen+len(body)), readInt32(b, 4), readInt32(b, 8), originalOpcode)
	return append(out, body...), nil
}

func addCString(b []byte, s string) []byte {
	b = append(b, []byte(s)...)
	return append(b, 0)
}

func addInt32(b []byte, i int32) []byte {
	return append(b, byte(i), byte(i>>8), byte(i>>16), byte(i>>24))
}

func addInt64(b []byte, i int64) []byte {
	return append(b, byte(i), byte(i>>8), byte(i>>16), byte(i>>24), byte(i>>32), byte(i>>40), byte(i>>48), byte(i>>56))
}

func addMarshalled(b []byte, data interface{}) ([]byte, error) {
	if data == nil {
		return append(b, 5, 0, 0, 0, 0), nil
	}

	dataBytes, err := bson.Marshal(data)
	if err != nil {
		return nil, err
	}

	return append(b, dataBytes...), nil
}

func setInt32(b []byte, pos int32, i int32) {
	b[pos] = byte(i)
	b[pos+1] = byte(i >> 8)
	b[pos+2] = byte(i >> 16)
	b[pos+3] = byte(i >> 24)
}

func addHeader(b []byte, length, requestID, responseTo, opCode int32) []byte {
	b = addInt32(b, length)
	b = addInt32(b, requestID)
	b = addInt32(b, responseTo)
	return addInt32(b, opCode)
}

func readInt32(b []byte, pos int32) int32 {
	return (int32(b[pos+0])) |
		(int32(b[pos+1]) << 8) |
		(int32(b[pos+2]) << 16) |
		(int32(b[pos+3]) << 24)
}

func readInt64(b []byte, pos int32) int64 {
	return (int64(b[pos+0])) |
		(int64(b[pos+1]) << 8) |
		(int64(b[pos+2]) << 16) |
		(int64(b[pos+3]) << 24) |
		(int64(b[pos+4]) << 32) |
		(int64(b[pos+5]) << 40) |
		(int64(b[pos+6]) << 48) |
		(int64(b[pos+7]) << 56)
}

func bsonDocumentPartitioner(b []byte) (int, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("int32 requires 4 bytes but only %d available", len(b))
	}

	return int(readInt32(b, 0)), nil
}
