package message

import (
	"context"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chatgate/module/chat/model"
)

// Log is the durable message store. Append-only from this side:
// nothing here updates or deletes a persisted message.
type Log interface {
	Append(ctx context.Context, msg *model.Message) error
	// RecentPublic returns up to limit public messages for the room,
	// oldest first.
	RecentPublic(ctx context.Context, roomID string, limit int) ([]*model.Message, error)
	// PrivateBetween returns up to limit private messages exchanged
	// between the two users (either direction), oldest first.
	PrivateBetween(ctx context.Context, userA, userB, limit int) ([]*model.Message, error)
}

type MongoLog struct {
	coll *mongo.Collection
}

var _ Log = (*MongoLog)(nil)

func NewMongoLog(db *mongo.Database) *MongoLog {
	return &MongoLog{coll: db.Collection(model.MessageCollection)}
}

func (s *MongoLog) Append(ctx context.Context, msg *model.Message) error {
	_, err := s.coll.InsertOne(ctx, msg)
	return pkgerrors.Wrap(err, "insert message")
}

func (s *MongoLog) RecentPublic(ctx context.Context, roomID string, limit int) ([]*model.Message, error) {
	filter := bson.M{"scope": model.ScopePublic, "room_id": roomID}
	return s.findNewest(ctx, filter, limit)
}

func (s *MongoLog) PrivateBetween(ctx context.Context, userA, userB, limit int) ([]*model.Message, error) {
	filter := bson.M{
		"scope": model.ScopePrivate,
		"$or": bson.A{
			bson.M{"sender_id": userA, "receiver_id": userB},
			bson.M{"sender_id": userB, "receiver_id": userA},
		},
	}
	return s.findNewest(ctx, filter, limit)
}

// findNewest fetches the newest limit messages and returns them in
// ascending time order.
func (s *MongoLog) findNewest(ctx context.Context, filter bson.M, limit int) ([]*model.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find messages")
	}
	defer cur.Close(ctx)

	var msgs []*model.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, pkgerrors.Wrap(err, "decode messages")
	}
	// reverse newest-first into oldest-first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
