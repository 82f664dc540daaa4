package ws

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event type")
)

type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type CreateRoomData struct {
	Name string `json:"name"`
}

type JoinRoomData struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type SendMessageData struct {
	Body string `json:"body"`
}

// Command is one decoded inbound frame. Only the fields of its Type are set.
type Command struct {
	Type string
	Name string
	Code string
	Body string
}

func Decode(raw []byte) (Command, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	cmd := Command{Type: frame.Type}

	switch frame.Type {
	case CreateRoom:
		var data CreateRoomData
		if err := decodeData(frame.Data, &data); err != nil {
			return Command{}, err
		}
		cmd.Name = data.Name
	case JoinRoom:
		var data JoinRoomData
		if err := decodeData(frame.Data, &data); err != nil {
			return Command{}, err
		}
		cmd.Code, cmd.Name = data.Code, data.Name
	case SendMessage:
		var data SendMessageData
		if err := decodeData(frame.Data, &data); err != nil {
			return Command{}, err
		}
		cmd.Body = data.Body
	case LeaveRoom:
	case "":
		return Command{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Type)
	}

	return cmd, nil
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformedFrame)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}
