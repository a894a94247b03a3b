package conn

import (
	"context"
	"fmt"

	"gopkg.in/mgo.v2/bson"

	"github.com/mongowire/mongowire/msg"
)

// ExecuteCommand dispatches the command request and decodes the single
// response document into out.
func ExecuteCommand(ctx context.Context, d Dispatcher, request msg.Request, out interface{}) error {
	reply, err := d.Dispatch(ctx, request)
	if err != nil {
		return err
	}
	if reply == nil {
		return ErrNoCommandResponse
	}

	return readCommandResponse(reply, out)
}

func readCommandResponse(reply *msg.Reply, out interface{}) error {
	if reply.NumberReturned == 0 {
		return ErrNoDocCommandResponse
	}
	if reply.NumberReturned > 1 {
		return ErrMultiDocCommandResponse
	}

	if reply.ResponseFlags&msg.QueryFailure != 0 {
		// read the first document as the failure
		var doc bson.D
		ok, err := reply.Iter().One(&doc)
		if err != nil {
			return NewCommandResponseError(fmt.Sprintf("failed to read command failure document: %v", err))
		}
		if !ok {
			return ErrUnknownCommandFailure
		}
		return &CommandFailureError{
			Msg:      "command failure",
			Response: doc,
		}
	}

	// read into raw first to check the ok field
	var raw bson.RawD
	ok, err := reply.Iter().One(&raw)
	if err != nil {
		return NewCommandResponseError(fmt.Sprintf("failed to read command response document: %v", err))
	}
	if !ok {
		return ErrNoCommandResponse
	}

	ok = false
	var errmsg, codeName string
	var code int32
	for _, rawElem := range raw {
		switch rawElem.Name {
		case "ok":
			var v float64
			err := rawElem.Value.Unmarshal(&v)
			if err == nil && v == 1 {
				ok = true
			}
		case "errmsg":
			rawElem.Value.Unmarshal(&errmsg)
		case "codeName":
			rawElem.Value.Unmarshal(&codeName)
		case "code":
			rawElem.Value.Unmarshal(&code)
		}
	}

	if !ok {
		if errmsg == "" {
			errmsg = "command failed"
		}
		return &CommandError{
			Code:    code,
			Message: errmsg,
			Name:    codeName,
		}
	}

	// re-decode the response into the caller provided structure
	ok, err = reply.Iter().One(out)
	if err != nil {
		return NewCommandResponseError(fmt.Sprintf("failed to read command response document: %v", err))
	}
	if !ok {
		return ErrNoCommandResponse
	}

	return nil
}
