package conntest

import (
	"context"
	"fmt"

	"github.com/mongowire/mongowire/conn"
	"github.com/mongowire/mongowire/msg"
)

// MockConnection is a scripted conn.Dispatcher for driving authenticators
// and protocol helpers without a stream.
type MockConnection struct {
	ServerDesc *conn.Desc
	Sent       []msg.Request
	ResponseQ  []*msg.Reply
	WriteErr   error

	SkipResponseToFixup bool
}

// Desc returns the scripted server description.
func (c *MockConnection) Desc() *conn.Desc {
	if c.ServerDesc != nil {
		return c.ServerDesc
	}
	return &conn.Desc{}
}

// Dispatch records the batch and pops the next queued reply when the batch
// expects one.
func (c *MockConnection) Dispatch(_ context.Context, msgs ...msg.Request) (*msg.Reply, error) {
	if c.WriteErr != nil {
		err := c.WriteErr
		c.WriteErr = nil
		return nil, err
	}

	var last msg.Request
	for _, m := range msgs {
		c.Sent = append(c.Sent, m)
		if m.Replyable() {
			last = m
		}
	}

	if last == nil {
		return nil, nil
	}

	if len(c.ResponseQ) == 0 {
		return nil, fmt.Errorf("no response queued")
	}

	resp := c.ResponseQ[0]
	c.ResponseQ = c.ResponseQ[1:]
	if !c.SkipResponseToFixup {
		resp.RespTo = last.RequestID()
	}
	return resp, nil
}
