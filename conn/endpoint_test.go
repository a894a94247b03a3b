package conn_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/mongowire/mongowire/conn"
)

func TestEndpoint_Canonicalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       Endpoint
		expected Endpoint
	}{
		{"localhost", "localhost:27017"},
		{"localhost:27017", "localhost:27017"},
		{"LOCALHOST:28017", "localhost:28017"},
		{"ServerName", "servername:27017"},
		{"10.0.0.4:33333", "10.0.0.4:33333"},
		{"/var/run/mongodb.sock", "/var/run/mongodb.sock"},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, test.in.Canonicalize())
	}
}
