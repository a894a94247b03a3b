package conn

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/internal"
	"github.com/mongowire/mongowire/msg"
	"github.com/mongowire/mongowire/msg/compress"
)

// Conservative limits used before discovery has run.
const (
	defaultMaxMessageSize    = 48000000
	defaultMaxBSONObjectSize = 16 * 1024 * 1024
)

var globalClientConnectionID int32

func nextClientConnectionID() int32 {
	return atomic.AddInt32(&globalClientConnectionID, 1)
}

// Dispatcher dispatches ordered batches of wire messages and exposes the
// server description learned from the handshake.
type Dispatcher interface {
	Desc() *Desc
	Dispatch(ctx context.Context, msgs ...msg.Request) (*msg.Reply, error)
}

// Authenticator drives an authentication handshake over a connection.
type Authenticator interface {
	Auth(ctx context.Context, c Dispatcher) error
}

// New creates a Connection to the endpoint. The stream is not established
// until Connect is called or the first Dispatch needs it.
func New(ep Endpoint, opts ...Option) *Connection {
	cfg := newConfig(opts...)
	ep = ep.Canonicalize()

	return &Connection{
		id:  fmt.Sprintf("%s[-%d]", ep, nextClientConnectionID()),
		ep:  ep,
		cfg: cfg,
	}
}

// Connection owns at most one stream to a server at a time, writes
// messages to it and correlates the replies. A Connection is not safe for
// concurrent use; its owner is responsible for serializing operations on
// it.
type Connection struct {
	id  string
	ep  Endpoint
	cfg *config

	stream        net.Conn
	pid           int
	desc          *Desc
	compressor    compress.Compressor
	authenticated bool
	handshaking   bool
	lastAuthErr   error
}

// Connect establishes the stream. Connecting an already connected
// Connection is a no-op.
func (c *Connection) Connect(ctx context.Context) error {
	if c.stream != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout)
	defer cancel()

	stream, err := c.cfg.dialer(ctx, c.ep)
	if err != nil {
		return &ConnectionError{
			ConnectionID: c.id,
			message:      fmt.Sprintf("connection(%s) failed connecting to %s", c.id, c.ep),
			inner:        err,
		}
	}

	c.stream = stream
	c.pid = os.Getpid()
	c.log().WithField("pid", c.pid).Debug("stream opened")
	return nil
}

// Connectable probes whether the endpoint currently accepts connections.
// The probe stream is thrown away and connection-level failures are
// swallowed.
func (c *Connection) Connectable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.connectTimeout)
	defer cancel()

	stream, err := c.cfg.dialer(ctx, c.ep)
	if err != nil {
		return false
	}

	stream.Close()
	return true
}

// Disconnect closes and discards the stream. It is idempotent and always
// succeeds; disconnecting a Connection that was never connected is not an
// error.
func (c *Connection) Disconnect() bool {
	if c.stream != nil {
		c.stream.Close()
		c.log().Debug("stream closed")
	}

	c.stream = nil
	c.desc = nil
	c.compressor = nil
	c.authenticated = false
	return true
}

// Dispatch sends an ordered batch of messages and reads the reply to the
// last replyable message in the batch, if there is one. Every message is
// validated against the size limits before any byte of the batch is
// written. Any stream-level fault disconnects the Connection before the
// error is returned.
func (c *Connection) Dispatch(ctx context.Context, msgs ...msg.Request) (*msg.Reply, error) {
	if len(msgs) == 0 {
		return nil, ErrNoMessages
	}

	c.forkCheck()

	if !c.handshaking {
		if err := c.ensureConnected(ctx); err != nil {
			return nil, err
		}
	}

	var b []byte
	var replyTo int32
	replyable := false
	for _, m := range msgs {
		frame, err := c.cfg.codec.EncodeOne(m)
		if err != nil {
			return nil, internal.WrapErrorf(err, "failed encoding message (%d)", m.RequestID())
		}

		if len(frame) > int(c.MaxMessageSize()) {
			return nil, &MessageTooLargeError{Size: len(frame), MaxSize: int(c.MaxMessageSize())}
		}

		if q, ok := m.(*msg.Query); ok && q.IsCommand() {
			docBytes, err := bson.Marshal(q.Query)
			if err != nil {
				return nil, internal.WrapErrorf(err, "failed marshalling command (%d)", m.RequestID())
			}
			if len(docBytes) > int(c.MaxBSONObjectSize()) {
				return nil, &DocumentTooLargeError{Size: len(docBytes), MaxSize: int(c.MaxBSONObjectSize())}
			}
		}

		if c.compressor != nil {
			frame, err = msg.CompressFrame(c.compressor, frame)
			if err != nil {
				return nil, internal.WrapErrorf(err, "failed compressing message (%d)", m.RequestID())
			}
		}

		if m.Replyable() {
			replyTo = m.RequestID()
			replyable = true
		}

		b = append(b, frame...)
	}

	stop := c.cancellationListener(ctx)
	defer func() {
		if stop() {
			c.Disconnect()
		}
	}()

	stream := c.stream
	if c.cfg.socketTimeout > 0 {
		stream.SetWriteDeadline(time.Now().Add(c.cfg.socketTimeout))
	}
	if _, err := stream.Write(b); err != nil {
		c.Disconnect()
		return nil, c.socketError(err, "failed writing")
	}

	if !replyable {
		return nil, nil
	}

	if c.cfg.socketTimeout > 0 {
		stream.SetReadDeadline(time.Now().Add(c.cfg.socketTimeout))
	}
	resp, err := c.cfg.codec.Decode(stream)
	if err != nil {
		c.Disconnect()
		return nil, c.socketError(err, "failed reading")
	}

	reply, ok := resp.(*msg.Reply)
	if !ok {
		c.Disconnect()
		return nil, c.socketError(fmt.Errorf("invalid message type %T", resp), "failed reading")
	}

	if reply.ResponseTo() != replyTo {
		// the stream may still carry bytes belonging to an abandoned
		// read, so no further read on it can be trusted
		c.Disconnect()
		return nil, &UnexpectedResponseError{
			ConnectionID: c.id,
			ExpectedID:   replyTo,
			ActualID:     reply.ResponseTo(),
		}
	}

	return reply, nil
}

// Connected indicates whether the stream is currently present.
func (c *Connection) Connected() bool {
	return c.stream != nil
}

// Authenticated indicates whether the handshake for the configured
// credentials has succeeded on the current stream.
func (c *Connection) Authenticated() bool {
	return c.authenticated
}

// LastAuthError returns the failure of the most recent authentication
// attempt, or nil. The owning server layer can observe it without the
// Connection mutating any topology state itself.
func (c *Connection) LastAuthError() error {
	return c.lastAuthErr
}

// PID returns the process id recorded at the last successful connect. It
// is only meaningful while the stream is present.
func (c *Connection) PID() int {
	return c.pid
}

// Address returns the canonicalized endpoint of the server.
func (c *Connection) Address() Endpoint {
	return c.ep
}

// Timeout returns the socket timeout bounding each read and write.
func (c *Connection) Timeout() time.Duration {
	return c.cfg.socketTimeout
}

// Desc returns the server description learned from the handshake, or nil
// before discovery has run.
func (c *Connection) Desc() *Desc {
	return c.desc
}

// MaxMessageSize returns the maximum size of a single serialized message,
// consulted on every dispatch.
func (c *Connection) MaxMessageSize() uint32 {
	if c.cfg.maxMessageSize != 0 {
		return c.cfg.maxMessageSize
	}
	if c.desc != nil && c.desc.MaxMessageSizeBytes != 0 {
		return c.desc.MaxMessageSizeBytes
	}
	return defaultMaxMessageSize
}

// MaxBSONObjectSize returns the maximum size of a single command
// document, consulted on every dispatch.
func (c *Connection) MaxBSONObjectSize() uint32 {
	if c.cfg.maxDocSize != 0 {
		return c.cfg.maxDocSize
	}
	if c.desc != nil && c.desc.MaxBSONObjectSize != 0 {
		return c.desc.MaxBSONObjectSize
	}
	return defaultMaxBSONObjectSize
}

func (c *Connection) String() string {
	return c.id
}

// ensureConnected runs before any application dispatch: it connects the
// stream if needed, performs capability discovery once per stream and
// drives the authentication handshake for the configured credentials. A
// failure during the handshake disconnects the Connection before the
// error propagates.
func (c *Connection) ensureConnected(ctx context.Context) error {
	if c.authenticated {
		return nil
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}

	if c.cfg.authenticator == nil && len(c.cfg.compressors) == 0 {
		return nil
	}

	c.handshaking = true
	defer func() { c.handshaking = false }()

	if c.desc == nil {
		if err := c.describeServer(ctx); err != nil {
			c.Disconnect()
			return err
		}
	}

	if c.cfg.authenticator == nil {
		return nil
	}

	if err := c.cfg.authenticator.Auth(ctx, c); err != nil {
		c.lastAuthErr = err
		c.Disconnect()
		if isTransportError(err) {
			return err
		}
		c.log().WithError(err).Warn("authentication failed")
		return &UnauthorizedError{ConnectionID: c.id, inner: err}
	}

	c.lastAuthErr = nil
	c.authenticated = true
	return nil
}

// forkCheck discards a stream inherited across a process fork. The
// descriptor is shared with the process that created it, so the reference
// is dropped without closing; a later dispatch reconnects under the
// current pid.
func (c *Connection) forkCheck() {
	if c.stream == nil || c.pid == os.Getpid() {
		return
	}

	c.log().WithFields(logrus.Fields{
		"pid":         os.Getpid(),
		"recordedPID": c.pid,
	}).Warn("stale pid, discarding inherited stream")

	c.stream = nil
	c.desc = nil
	c.compressor = nil
	c.authenticated = false
}

// cancellationListener closes the stream when ctx is cancelled during the
// write or read phase, so a cancelled dispatch leaves the Connection
// disconnected rather than attached to a socket with undrained bytes. The
// returned stop function reports whether the watcher fired; a watcher that
// fired has closed the stream even if the read it was guarding completed,
// so the caller must discard the connection state as well.
func (c *Connection) cancellationListener(ctx context.Context) func() bool {
	if ctx.Done() == nil {
		return func() bool { return false }
	}

	stream := c.stream
	fired := false
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
			fired = true
			stream.Close()
		case <-stop:
		}
	}()

	return func() bool {
		close(stop)
		<-done
		return fired
	}
}

func (c *Connection) describeServer(ctx context.Context) error {
	isMasterCmd := bson.D{{Name: "ismaster", Value: 1}}
	if clientDoc := createClientDoc(c.cfg.appName); clientDoc != nil {
		isMasterCmd = append(isMasterCmd, bson.DocElem{Name: "client", Value: clientDoc})
	}
	if len(c.cfg.compressors) > 0 {
		isMasterCmd = append(isMasterCmd, bson.DocElem{Name: "compression", Value: c.cfg.compressors})
	}

	isMasterReq := msg.NewCommand(msg.NextRequestID(), "admin", true, isMasterCmd)

	var isMasterResult internal.IsMasterResult
	if err := ExecuteCommand(ctx, c, isMasterReq, &isMasterResult); err != nil {
		return err
	}

	c.desc = &Desc{
		Endpoint:            c.ep,
		MaxBSONObjectSize:   isMasterResult.MaxBSONObjectSize,
		MaxMessageSizeBytes: isMasterResult.MaxMessageSizeBytes,
		MaxWriteBatchSize:   isMasterResult.MaxWriteBatchSize,
		ReadOnly:            isMasterResult.ReadOnly,
		Compression:         isMasterResult.Compression,
		WireVersion: Range{
			Min: isMasterResult.MinWireVersion,
			Max: isMasterResult.MaxWireVersion,
		},
	}

	if compressor, ok := compress.Negotiate(c.cfg.compressors, isMasterResult.Compression); ok {
		c.compressor = compressor
	}

	entry := c.log().WithFields(logrus.Fields{
		"minWireVersion": c.desc.WireVersion.Min,
		"maxWireVersion": c.desc.WireVersion.Max,
	})
	if c.compressor != nil {
		entry = entry.WithField("compressor", c.compressor.Name())
	}
	entry.Debug("handshake completed")
	return nil
}

func (c *Connection) socketError(inner error, message string) error {
	return &SocketError{
		ConnectionID: c.id,
		message:      fmt.Sprintf("connection(%s) error: %s", c.id, message),
		inner:        inner,
	}
}

func (c *Connection) log() *logrus.Entry {
	return c.cfg.logger.WithFields(logrus.Fields{
		"connection": c.id,
		"endpoint":   string(c.ep),
	})
}

func createClientDoc(appName string) bson.M {
	clientDoc := bson.M{
		"driver": bson.M{
			"name":    "mongowire",
			"version": internal.Version,
		},
		"os": bson.M{
			"type":         runtime.GOOS,
			"architecture": runtime.GOARCH,
		},
	}
	if appName != "" {
		clientDoc["application"] = bson.M{"name": appName}
	}

	return clientDoc
}
