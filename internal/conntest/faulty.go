package conntest

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/mongowire/mongowire/conn"
)

// NewWriteFaultDialer returns a dialer whose streams connect fine but fail
// every write with err.
func NewWriteFaultDialer(err error) conn.Dialer {
	return func(context.Context, conn.Endpoint) (net.Conn, error) {
		return &faultyStream{writeErr: err}, nil
	}
}

type faultyStream struct {
	writeErr error
}

func (s *faultyStream) Read([]byte) (int, error) {
	return 0, io.EOF
}

func (s *faultyStream) Write([]byte) (int, error) {
	return 0, s.writeErr
}

func (s *faultyStream) Close() error { return nil }

func (s *faultyStream) LocalAddr() net.Addr  { return faultyAddr{} }
func (s *faultyStream) RemoteAddr() net.Addr { return faultyAddr{} }

func (s *faultyStream) SetDeadline(time.Time) error      { return nil }
func (s *faultyStream) SetReadDeadline(time.Time) error  { return nil }
func (s *faultyStream) SetWriteDeadline(time.Time) error { return nil }

type faultyAddr struct{}

func (faultyAddr) Network() string { return "faulty" }
func (faultyAddr) String() string  { return "faulty" }
