package conn

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/msg"
)

// serveOK replies ok to every query it reads.
func serveOK(nc net.Conn) {
	codec := msg.NewWireProtocolCodec()
	for {
		var lenBytes [4]byte
		if _, err := io.ReadFull(nc, lenBytes[:]); err != nil {
			return
		}

		n := int32(lenBytes[0]) | int32(lenBytes[1])<<8 | int32(lenBytes[2])<<16 | int32(lenBytes[3])<<24
		if n < 16 {
			return
		}
		rest := make([]byte, n-4)
		if _, err := io.ReadFull(nc, rest); err != nil {
			return
		}

		reqID := int32(rest[0]) | int32(rest[1])<<8 | int32(rest[2])<<16 | int32(rest[3])<<24
		doc, _ := bson.Marshal(bson.D{{Name: "ok", Value: 1}})

		var buf bytes.Buffer
		err := codec.Encode(&buf, &msg.Reply{
			RespTo:         reqID,
			NumberReturned: 1,
			DocumentsBytes: doc,
		})
		if err != nil {
			return
		}
		if _, err = nc.Write(buf.Bytes()); err != nil {
			return
		}
	}
}

func TestConnection_detectsFork(t *testing.T) {
	t.Parallel()

	var dials int32
	dialer := func(context.Context, Endpoint) (net.Conn, error) {
		atomic.AddInt32(&dials, 1)
		client, server := net.Pipe()
		go serveOK(server)
		return client, nil
	}

	subject := New("test", WithDialer(dialer))
	defer subject.Disconnect()

	require.NoError(t, subject.Connect(context.Background()))
	inherited := subject.stream

	// make the recorded pid disagree with the current process, as it
	// would after the descriptor crossed a fork
	subject.pid++

	cmd := msg.NewCommand(msg.NextRequestID(), "admin", true, bson.D{{Name: "ping", Value: 1}})
	_, err := subject.Dispatch(context.Background(), cmd)
	require.NoError(t, err)

	require.Equal(t, int32(2), atomic.LoadInt32(&dials))
	require.NotEqual(t, inherited, subject.stream)
	require.Equal(t, os.Getpid(), subject.pid)
	require.True(t, subject.Connected())

	// the inherited stream was abandoned, not closed
	require.NoError(t, inherited.SetReadDeadline(time.Time{}))
}

func TestConnection_cancellationWatcherReportsFiring(t *testing.T) {
	t.Parallel()

	dialer := func(context.Context, Endpoint) (net.Conn, error) {
		client, server := net.Pipe()
		go io.Copy(io.Discard, server)
		return client, nil
	}

	subject := New("test", WithDialer(dialer))
	require.NoError(t, subject.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	stop := subject.cancellationListener(ctx)
	cancel()

	// once the stream is observed closed, the watcher has fired; stop
	// must report it so the dispatch discards the connection state even
	// when the guarded read won the race
	require.Eventually(t, func() bool {
		return subject.stream.SetReadDeadline(time.Time{}) != nil
	}, time.Second, 5*time.Millisecond)

	require.True(t, stop())
	require.True(t, subject.Disconnect())
	require.False(t, subject.Connected())
}

func TestConnection_cancellationWatcherStopsQuietly(t *testing.T) {
	t.Parallel()

	dialer := func(context.Context, Endpoint) (net.Conn, error) {
		client, server := net.Pipe()
		go io.Copy(io.Discard, server)
		return client, nil
	}

	subject := New("test", WithDialer(dialer))
	defer subject.Disconnect()
	require.NoError(t, subject.Connect(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := subject.cancellationListener(ctx)
	require.False(t, stop())
	require.NoError(t, subject.stream.SetReadDeadline(time.Time{}))
}
