package conn_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"

	. "github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/internal"
	"github.com/mongowire/mongowire/internal/conntest"
	"github.com/mongowire/mongowire/internal/msgtest"
	"github.com/mongowire/mongowire/msg"
)

func TestExecuteCommand_decodesResponse(t *testing.T) {
	t.Parallel()

	subject := &conntest.MockConnection{}
	subject.ResponseQ = append(subject.ResponseQ, msgtest.CreateCommandReply(
		bson.D{{Name: "ok", Value: 1}, {Name: "n", Value: 42}},
	))

	var result struct {
		N int `bson:"n"`
	}
	request := msg.NewCommand(msg.NextRequestID(), "admin", true, bson.D{{Name: "count", Value: "people"}})
	err := ExecuteCommand(context.Background(), subject, request, &result)
	require.NoError(t, err)
	require.Equal(t, 42, result.N)
	require.Len(t, subject.Sent, 1)
}

func TestExecuteCommand_commandError(t *testing.T) {
	t.Parallel()

	subject := &conntest.MockConnection{}
	subject.ResponseQ = append(subject.ResponseQ, msgtest.CreateCommandReply(
		bson.D{
			{Name: "ok", Value: 0},
			{Name: "errmsg", Value: "not authorized on admin"},
			{Name: "codeName", Value: "Unauthorized"},
			{Name: "code", Value: 13},
		},
	))

	request := msg.NewCommand(msg.NextRequestID(), "admin", true, bson.D{{Name: "shutdown", Value: 1}})
	err := ExecuteCommand(context.Background(), subject, request, &bson.D{})
	require.Error(t, err)

	cmdErr, ok := err.(*CommandError)
	require.True(t, ok, "expected a CommandError but got %T", err)
	require.Equal(t, int32(13), cmdErr.Code)
	require.Equal(t, "not authorized on admin", cmdErr.Message)
	require.Equal(t, "Unauthorized", cmdErr.Name)
	require.True(t, IsAuthFailure(err))
}

func TestExecuteCommand_queryFailure(t *testing.T) {
	t.Parallel()

	reply := msgtest.CreateCommandReply(bson.D{{Name: "$err", Value: "unrecognized command"}})
	reply.ResponseFlags = msg.QueryFailure

	subject := &conntest.MockConnection{}
	subject.ResponseQ = append(subject.ResponseQ, reply)

	request := msg.NewCommand(msg.NextRequestID(), "admin", true, bson.D{{Name: "bogus", Value: 1}})
	err := ExecuteCommand(context.Background(), subject, request, &bson.D{})
	require.Error(t, err)
	require.IsType(t, &CommandFailureError{}, err)
}

func TestExecuteCommand_emptyReply(t *testing.T) {
	t.Parallel()

	subject := &conntest.MockConnection{}
	subject.ResponseQ = append(subject.ResponseQ, &msg.Reply{})

	request := msg.NewCommand(msg.NextRequestID(), "admin", true, bson.D{{Name: "ping", Value: 1}})
	err := ExecuteCommand(context.Background(), subject, request, &bson.D{})
	require.Equal(t, ErrNoDocCommandResponse, err)
}

func TestIsAuthFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err      error
		expected bool
	}{
		{&CommandError{Code: 18, Message: "auth failed"}, true},
		{&CommandError{Code: 13, Message: "not authorized"}, true},
		{&CommandError{Code: 59, Message: "auth failed"}, true},
		{&CommandError{Code: 59, Message: "no such command"}, false},
		{internal.WrapError(&CommandError{Code: 18, Message: "auth failed"}, "handshake failed"), true},
		{ErrNoCommandResponse, false},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, IsAuthFailure(test.err), "err: %v", test.err)
	}
}
