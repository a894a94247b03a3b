package feature_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/internal/feature"
)

func TestScramSHA1(t *testing.T) {
	t.Parallel()

	require.Error(t, feature.ScramSHA1(conn.Range{Min: 0, Max: 2}))
	require.NoError(t, feature.ScramSHA1(conn.Range{Min: 0, Max: 3}))
	require.NoError(t, feature.ScramSHA1(conn.Range{Min: 2, Max: 6}))
}

func TestScramSHA256(t *testing.T) {
	t.Parallel()

	require.Error(t, feature.ScramSHA256(conn.Range{Min: 0, Max: 6}))
	require.NoError(t, feature.ScramSHA256(conn.Range{Min: 0, Max: 7}))
}
