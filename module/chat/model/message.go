package model

import (
	"time"

	"chatgate/tools/ids"
)

type MessageKind string

const (
	KindText   MessageKind = "text"
	KindSystem MessageKind = "system"
	KindJoin   MessageKind = "join"
	KindLeave  MessageKind = "leave"
)

type MessageScope string

const (
	ScopePublic  MessageScope = "public"
	ScopePrivate MessageScope = "private"
)

const (
	DefaultRoom       = "public"
	MessageCollection = "chat_message"
)

// Message is immutable once created. It is persisted before any
// delivery, and never updated or deleted afterwards.
type Message struct {
	ID         string       `bson:"_id" json:"id"`
	Content    string       `bson:"content" json:"content"`
	Kind       MessageKind  `bson:"kind" json:"kind"`
	Scope      MessageScope `bson:"scope" json:"scope"`
	SenderID   int          `bson:"sender_id" json:"senderId"`
	SenderName string       `bson:"sender_name" json:"senderName"`
	ReceiverID int          `bson:"receiver_id,omitempty" json:"receiverId,omitempty"`
	RoomID     string       `bson:"room_id,omitempty" json:"roomId,omitempty"`
	CreatedAt  int64        `bson:"created_at" json:"createdAt"` // unix ms
}

func NewPublicMessage(content string, senderID int, senderName string) *Message {
	return &Message{
		ID:         ids.GenerateString(),
		Content:    content,
		Kind:       KindText,
		Scope:      ScopePublic,
		SenderID:   senderID,
		SenderName: senderName,
		RoomID:     DefaultRoom,
		CreatedAt:  time.Now().UnixMilli(),
	}
}

func NewPrivateMessage(content string, senderID int, senderName string, receiverID int) *Message {
	return &Message{
		ID:         ids.GenerateString(),
		Content:    content,
		Kind:       KindText,
		Scope:      ScopePrivate,
		SenderID:   senderID,
		SenderName: senderName,
		ReceiverID: receiverID,
		CreatedAt:  time.Now().UnixMilli(),
	}
}

// NewSystemMessage builds a join/leave/system notice for the public
// room. Sender fields stay zero: the system is the sender.
func NewSystemMessage(content string, kind MessageKind) *Message {
	return &Message{
		ID:        ids.GenerateString(),
		Content:   content,
		Kind:      kind,
		Scope:     ScopePublic,
		RoomID:    DefaultRoom,
		CreatedAt: time.Now().UnixMilli(),
	}
}
