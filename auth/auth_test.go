package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/mongowire/mongowire/auth"
	"github.com/mongowire/mongowire/conn"
)

func TestCreateAuthenticator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mech     string
		expected Authenticator
	}{
		{"", &DefaultAuthenticator{}},
		{SCRAMSHA1, &ScramSHA1Authenticator{}},
		{SCRAMSHA256, &ScramSHA256Authenticator{}},
		{MONGODBCR, &MongoDBCRAuthenticator{}},
		{PLAIN, &PlainAuthenticator{}},
	}

	cred := &Cred{
		Username: "user",
		Password: "pencil",
	}

	for _, test := range tests {
		actual, err := CreateAuthenticator(test.mech, cred)
		require.NoError(t, err)
		require.IsType(t, test.expected, actual)
	}
}

func TestCreateAuthenticator_unknownMechanism(t *testing.T) {
	t.Parallel()

	_, err := CreateAuthenticator("VOODOO", &Cred{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "VOODOO")
}

func TestDefaultMechanism(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wire     conn.Range
		expected string
	}{
		{conn.Range{Min: 0, Max: 0}, MONGODBCR},
		{conn.Range{Min: 0, Max: 2}, MONGODBCR},
		{conn.Range{Min: 0, Max: 3}, SCRAMSHA1},
		{conn.Range{Min: 2, Max: 6}, SCRAMSHA1},
		{conn.Range{Min: 6, Max: 8}, SCRAMSHA1},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, DefaultMechanism(test.wire), "wire: %v", test.wire)
	}
}
