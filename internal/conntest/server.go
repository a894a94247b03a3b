package conntest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/msg"
	"github.com/mongowire/mongowire/msg/compress"
)

// Handler produces the reply document for a command the server received.
type Handler func(cmd string, doc bson.D) interface{}

// Server speaks the server side of the wire protocol over in-memory
// streams. Every dial produces a fresh net.Pipe whose far end is served
// by the handler. Inserted documents are stored and served back to
// queries on the same collection.
type Server struct {
	Handler Handler

	mu            sync.Mutex
	received      []string
	docs          map[string][]byte
	streams       []net.Conn
	dials         int
	sawCompressed bool
	stray         []*msg.Reply
}

// NewServer creates a Server. A nil handler serves default replies.
func NewServer(handler Handler) *Server {
	return &Server{
		Handler: handler,
		docs:    make(map[string][]byte),
	}
}

// Dialer returns a dialer producing streams served by this server.
func (s *Server) Dialer() conn.Dialer {
	return func(context.Context, conn.Endpoint) (net.Conn, error) {
		client, server := net.Pipe()

		s.mu.Lock()
		s.dials++
		s.streams = append(s.streams, server)
		s.mu.Unlock()

		go s.serve(server)
		return client, nil
	}
}

// Dials returns how many streams have been dialed.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Received returns the command names handled, in order.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// SawCompressed indicates whether any inbound message arrived compressed.
func (s *Server) SawCompressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawCompressed
}

// Close tears down all server-side streams.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, nc := range s.streams {
		nc.Close()
	}
	s.streams = nil
}

// InjectReply stashes a reply to be written ahead of the next real one,
// the way bytes belonging to an abandoned exchange would sit on the wire.
func (s *Server) InjectReply(reply *msg.Reply) {
	s.mu.Lock()
	s.stray = append(s.stray, reply)
	s.mu.Unlock()
}

// IsMasterReply builds a capability-discovery reply advertising the given
// wire version range.
func IsMasterReply(minWire, maxWire int32) bson.D {
	return bson.D{
		{Name: "ok", Value: 1},
		{Name: "ismaster", Value: true},
		{Name: "minWireVersion", Value: minWire},
		{Name: "maxWireVersion", Value: maxWire},
		{Name: "maxBsonObjectSize", Value: 16777216},
		{Name: "maxMessageSizeBytes", Value: 48000000},
	}
}

func (s *Server) serve(nc net.Conn) {
	// replies are written from their own goroutine so an unread reply
	// never blocks the read loop
	replies := make(chan *msg.Reply, 16)
	defer close(replies)
	go func() {
		codec := msg.NewWireProtocolCodec()
		for reply := range replies {
			if err := codec.Encode(nc, reply); err != nil {
				return
			}
		}
	}()

	for {
		frame, err := readFrame(nc)
		if err != nil {
			return
		}

		op := readInt32(frame, 12)
		if op == 2012 {
			s.mu.Lock()
			s.sawCompressed = true
			s.mu.Unlock()

			frame, err = decompressFrame(frame)
			if err != nil {
				return
			}
			op = readInt32(frame, 12)
		}

		reqID := readInt32(frame, 4)
		switch op {
		case 2002:
			s.handleInsert(frame)
		case 2004:
			reply, err := s.handleQuery(reqID, frame)
			if err != nil {
				return
			}

			s.mu.Lock()
			stray := s.stray
			s.stray = nil
			s.mu.Unlock()
			for _, r := range stray {
				replies <- r
			}

			replies <- reply
		default:
			return
		}
	}
}

func (s *Server) handleInsert(frame []byte) {
	// flags, then the collection name, then the documents
	collName, pos := readCString(frame, 20)
	for pos < len(frame) {
		n := int(readInt32(frame, int32(pos)))
		if n < 5 || pos+n > len(frame) {
			return
		}

		s.mu.Lock()
		s.docs[collName] = append(s.docs[collName], frame[pos:pos+n]...)
		s.mu.Unlock()
		pos += n
	}
}

func (s *Server) handleQuery(reqID int32, frame []byte) (*msg.Reply, error) {
	collName, pos := readCString(frame, 20)
	pos += 8 // numberToSkip, numberToReturn
	if pos+4 > len(frame) {
		return nil, fmt.Errorf("malformed query")
	}
	n := int(readInt32(frame, int32(pos)))
	if pos+n > len(frame) {
		return nil, fmt.Errorf("malformed query document")
	}
	queryBytes := frame[pos : pos+n]

	if !strings.HasSuffix(collName, ".$cmd") {
		s.record("find")

		s.mu.Lock()
		stored := append([]byte(nil), s.docs[collName]...)
		s.mu.Unlock()

		return &msg.Reply{
			RespTo:         reqID,
			NumberReturned: int32(countDocs(stored)),
			DocumentsBytes: stored,
		}, nil
	}

	var doc bson.D
	if err := bson.Unmarshal(queryBytes, &doc); err != nil {
		return nil, err
	}

	cmd := ""
	if len(doc) > 0 {
		cmd = doc[0].Name
	}
	s.record(cmd)

	respDoc := interface{}(nil)
	if s.Handler != nil {
		respDoc = s.Handler(cmd, doc)
	}
	if respDoc == nil {
		respDoc = defaultReply(cmd)
	}

	respBytes, err := bson.Marshal(respDoc)
	if err != nil {
		return nil, err
	}

	return &msg.Reply{
		RespTo:         reqID,
		NumberReturned: 1,
		DocumentsBytes: respBytes,
	}, nil
}

func (s *Server) record(cmd string) {
	s.mu.Lock()
	s.received = append(s.received, cmd)
	s.mu.Unlock()
}

func defaultReply(cmd string) interface{} {
	if cmd == "ismaster" {
		return IsMasterReply(0, 6)
	}
	return bson.D{{Name: "ok", Value: 1}}
}

func countDocs(b []byte) int {
	count := 0
	for pos := 0; pos+4 <= len(b); {
		n := int(readInt32(b, int32(pos)))
		if n < 5 || pos+n > len(b) {
			break
		}
		count++
		pos += n
	}
	return count
}

func readFrame(r io.Reader) ([]byte, error) {
	lengthBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBytes); err != nil {
		return nil, err
	}

	length := readInt32(lengthBytes, 0)
	if length < 16 {
		return nil, fmt.Errorf("invalid message length %d", length)
	}

	b := make([]byte, length)
	copy(b, lengthBytes)
	if _, err := io.ReadFull(r, b[4:]); err != nil {
		return nil, err
	}
	return b, nil
}

func decompressFrame(b []byte) ([]byte, error) {
	originalOpcode := readInt32(b, 16)
	uncompressedSize := readInt32(b, 20)
	if uncompressedSize < 0 || uncompressedSize > 48000000 {
		return nil, fmt.Errorf("invalid decompressed size %d", uncompressedSize)
	}
	compressor, ok := compress.Lookup(b[24])
	if !ok {
		return nil, fmt.Errorf("unknown compressor id %d", b[24])
	}

	body := make([]byte, uncompressedSize)
	if err := compressor.Decompress(bytes.NewReader(b[25:]), body); err != nil {
		return nil, err
	}

	out := make([]byte, 16, 16+len(body))
	copy(out, b[:16])
	setInt32(out, 12, originalOpcode)
	out = append(out, body...)
	setInt32(out, 0, int32(len(out)))
	return out, nil
}

func readCString(b []byte, pos int32) (string, int) {
	start := int(pos)
	end := start
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[start:end]), end + 1
}

func readInt32(b []byte, pos int32) int32 {
	return (int32(b[pos+0])) |
		(int32(b[pos+1]) << 8) |
		(int32(b[pos+2]) << 16) |
		(int32(b[pos+3]) << 24)
}

func setInt32(b []byte, pos int32, i int32) {
	b[pos] = byte(i)
	b[pos+1] = byte(i >> 8)
	b[pos+2] = byte(i >> 16)
	b[pos+3] = byte(i >> 24)
}
