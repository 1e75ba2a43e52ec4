package chat

import (
	"encoding/json"
	"fmt"

	"chatgate/module/chat/model"
	"chatgate/service/storage"
)

// Inbound actions, addressed by logical destination.
const (
	ActionJoin        = "chat.join"
	ActionSendMessage = "chat.sendMessage"
	ActionSendPrivate = "chat.sendPrivate"
)

// Frame is an inbound client frame. Payload stays generic here and is
// decoded per action.
type Frame struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if f.Action == "" {
		return nil, fmt.Errorf("frame has no action")
	}
	return &f, nil
}

type SendMessagePayload struct {
	Content string `json:"content"`
}

type SendPrivatePayload struct {
	Content    string `json:"content"`
	ReceiverID int    `json:"receiverId"`
}

// Outbound frames wrap the payload with its kind so clients can
// demultiplex a single socket.
type OutboundFrame struct {
	Topic   string `json:"topic"`
	Message any    `json:"message"`
}

func encodeMessageFrame(topic string, msg *model.Message) []byte {
	b, _ := json.Marshal(OutboundFrame{Topic: topic, Message: msg})
	return b
}

func encodeRosterFrame(roster []*storage.PresenceRecord) []byte {
	if roster == nil {
		roster = []*storage.PresenceRecord{}
	}
	b, _ := json.Marshal(OutboundFrame{Topic: TopicRoster, Message: roster})
	return b
}
