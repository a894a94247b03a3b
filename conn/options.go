package conn

import (
	"crypto/tls"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mongowire/mongowire/msg"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultSocketTimeout  = 5 * time.Second
)

func newConfig(opts ...Option) *config {
	cfg := &config{
		codec:          msg.NewWireProtocolCodec(),
		connectTimeout: defaultConnectTimeout,
		socketTimeout:  defaultSocketTimeout,
		logger:         discardLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dialer == nil {
		cfg.dialer = netDialer(cfg.tlsConfig)
	}

	return cfg
}

// Option configures a connection.
type Option func(*config)

type config struct {
	appName        string
	codec          msg.Codec
	connectTimeout time.Duration
	socketTimeout  time.Duration
	tlsConfig      *tls.Config
	dialer         Dialer
	authenticator  Authenticator
	compressors    []string
	maxMessageSize uint32
	maxDocSize     uint32
	logger         *logrus.Entry
}

// WithAppName sets the application name which gets sent to the server
// during the handshake.
func WithAppName(name string) Option {
	return func(c *config) {
		c.appName = name
	}
}

// WithCodec sets the codec to use to encode and decode messages.
func WithCodec(codec msg.Codec) Option {
	return func(c *config) {
		c.codec = codec
	}
}

// WithConnectTimeout sets the timeout for establishing the stream.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.connectTimeout = timeout
	}
}

// WithSocketTimeout sets the timeout for a single read or write on the
// stream.
func WithSocketTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.socketTimeout = timeout
	}
}

// WithTLSConfig enables transport encryption. The key material and server
// name are consulted only when a config is present.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *config) {
		c.tlsConfig = tlsConfig
	}
}

// WithDialer sets the dialer used to open the stream. Use this to enable
// things like proxying, or to inject a stream double in tests.
func WithDialer(dialer Dialer) Option {
	return func(c *config) {
		c.dialer = dialer
	}
}

// WithAuthenticator sets the authenticator run against the configured
// credentials before the connection is used for application traffic.
func WithAuthenticator(a Authenticator) Option {
	return func(c *config) {
		c.authenticator = a
	}
}

// WithCompressors sets the wire compressors offered to the server, in
// preference order.
func WithCompressors(names ...string) Option {
	return func(c *config) {
		c.compressors = names
	}
}

// WithMaxMessageSize overrides the maximum message size learned from the
// handshake.
func WithMaxMessageSize(size uint32) Option {
	return func(c *config) {
		c.maxMessageSize = size
	}
}

// WithMaxBSONObjectSize overrides the maximum document size learned from
// the handshake.
func WithMaxBSONObjectSize(size uint32) Option {
	return func(c *config) {
		c.maxDocSize = size
	}
}

// WithLogger sets the logger the connection reports its lifecycle events
// to.
func WithLogger(entry *logrus.Entry) Option {
	return func(c *config) {
		c.logger = entry
	}
}

func discardLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
