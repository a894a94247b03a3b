package conn

import (
	"context"
	"crypto/tls"
	"net"
)

// Dialer opens a stream to an endpoint.
type Dialer func(ctx context.Context, ep Endpoint) (net.Conn, error)

// netDialer returns a Dialer that opens a TCP stream, optionally wrapped
// in TLS.
func netDialer(tlsConfig *tls.Config) Dialer {
	return func(ctx context.Context, ep Endpoint) (net.Conn, error) {
		var dialer net.Dialer
		nc, err := dialer.DialContext(ctx, "tcp", string(ep))
		if err != nil {
			return nil, err
		}

		if tcpConn, ok := nc.(*net.TCPConn); ok {
			tcpConn.SetKeepAlive(true)
		}

		if tlsConfig == nil {
			return nc, nil
		}

		tlsConfig = tlsConfig.Clone()
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = ep.Host()
		}

		tlsConn := tls.Client(nc, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			nc.Close()
			return nil, err
		}

		return tlsConn, nil
	}
}
