package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/mgo.v2/bson"

	. "github.com/mongowire/mongowire/auth"
	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/internal/conntest"
	"github.com/mongowire/mongowire/internal/msgtest"
	"github.com/mongowire/mongowire/msg"
)

// saslFields pulls the named values out of a sent sasl command document.
func saslFields(t *testing.T, request msg.Request) map[string]interface{} {
	t.Helper()

	query, ok := request.(*msg.Query)
	require.True(t, ok, "expected a *msg.Query but got %T", request)

	doc, ok := query.Query.(bson.D)
	require.True(t, ok, "expected a bson.D but got %T", query.Query)

	fields := make(map[string]interface{}, len(doc))
	for _, elem := range doc {
		fields[elem.Name] = elem.Value
	}
	return fields
}

func TestScramSHA1Authenticator_startsConversation(t *testing.T) {
	t.Parallel()

	subject := ScramSHA1Authenticator{
		DB:       "source",
		Username: "user",
		Password: "pencil",
	}

	c := &conntest.MockConnection{}

	// no reply is queued, so the conversation dies after the first command
	err := subject.Auth(context.Background(), c)
	require.Error(t, err)
	require.Len(t, c.Sent, 1)

	fields := saslFields(t, c.Sent[0])
	require.Equal(t, 1, fields["saslStart"])
	require.Equal(t, SCRAMSHA1, fields["mechanism"])

	payload, ok := fields["payload"].([]byte)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(string(payload), "n,,n=user,r="),
		"unexpected client-first payload %q", payload)
}

func TestScramSHA1Authenticator_serverRejects(t *testing.T) {
	t.Parallel()

	subject := ScramSHA1Authenticator{
		DB:       "source",
		Username: "user",
		Password: "pencil",
	}

	c := &conntest.MockConnection{}
	c.ResponseQ = append(c.ResponseQ, msgtest.CreateCommandReply(bson.D{
		{Name: "ok", Value: 1},
		{Name: "conversationId", Value: 1},
		{Name: "payload", Value: []byte{}},
		{Name: "code", Value: 143},
		{Name: "done", Value: true},
	}))

	err := subject.Auth(context.Background(), c)
	require.Error(t, err)
	require.Equal(t, "unable to authenticate using mechanism \"SCRAM-SHA-1\": server returned code 143", err.Error())
}

func TestScramSHA256Authenticator_wireVersionGate(t *testing.T) {
	t.Parallel()

	subject := ScramSHA256Authenticator{
		DB:       "source",
		Username: "user",
		Password: "pencil",
	}

	c := &conntest.MockConnection{
		ServerDesc: &conn.Desc{WireVersion: conn.Range{Min: 0, Max: 6}},
	}

	err := subject.Auth(context.Background(), c)
	require.Error(t, err)
	require.Contains(t, err.Error(), "wire version 7 or newer")
	require.Empty(t, c.Sent)
}

func TestScramSHA256Authenticator_startsConversation(t *testing.T) {
	t.Parallel()

	subject := ScramSHA256Authenticator{
		DB:       "source",
		Username: "user",
		Password: "pencil",
	}

	c := &conntest.MockConnection{
		ServerDesc: &conn.Desc{WireVersion: conn.Range{Min: 6, Max: 7}},
	}

	err := subject.Auth(context.Background(), c)
	require.Error(t, err)
	require.Len(t, c.Sent, 1)

	fields := saslFields(t, c.Sent[0])
	require.Equal(t, 1, fields["saslStart"])
	require.Equal(t, SCRAMSHA256, fields["mechanism"])
}
