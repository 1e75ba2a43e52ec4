package chat

import (
	"strconv"
	"strings"
	"sync"
)

// Outbound subjects. The public topic carries every public message,
// the roster topic carries the full online-user list after any
// join/leave, and each user has a private queue delivering both
// directions of a private conversation.
const (
	TopicPublic = "chat.topic.public"
	TopicRoster = "chat.topic.users"

	privateQueuePrefix = "chat.queue.private."
)

func PrivateQueue(userID int) string {
	return privateQueuePrefix + strconv.Itoa(userID)
}

func PrivateQueuePattern() string { return privateQueuePrefix + "*" }

// PrivateQueueUser extracts the user id from a private queue subject;
// ok=false for any other subject.
func PrivateQueueUser(subject string) (int, bool) {
	if !strings.HasPrefix(subject, privateQueuePrefix) {
		return 0, false
	}
	id, err := strconv.Atoi(subject[len(privateQueuePrefix):])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Broker moves outbound frames from the router to whoever fans them
// out to sockets. Subjects are dot-separated; a subscription may end
// in "*" to match exactly one trailing token.
type Broker interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, fn func(subject string, data []byte)) (unsub func(), err error)
	Close()
}

// LocalBroker is the in-process Broker for single-binary deployments
// and tests.
type LocalBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(string, []byte)
}

var _ Broker = (*LocalBroker)(nil)

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[int]func(string, []byte))}
}

func (b *LocalBroker) Publish(subject string, data []byte) error {
	b.mu.RLock()
	var fns []func(string, []byte)
	for pattern, m := range b.subs {
		if !subjectMatch(pattern, subject) {
			continue
		}
		for _, fn := range m {
			fns = append(fns, fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(subject, data)
	}
	return nil
}

func (b *LocalBroker) Subscribe(subject string, fn func(subject string, data []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[subject] == nil {
		b.subs[subject] = make(map[int]func(string, []byte))
	}
	b.subs[subject][id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[subject], id)
	}, nil
}

func (b *LocalBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string]map[int]func(string, []byte))
}

// subjectMatch treats a trailing "*" token as a single-token
// wildcard, mirroring how the NATS subscriptions are set up.
func subjectMatch(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	pp := strings.Split(pattern, ".")
	sp := strings.Split(subject, ".")
	if len(pp) != len(sp) {
		return false
	}
	for i := range pp {
		if pp[i] == "*" {
			continue
		}
		if pp[i] != sp[i] {
			return false
		}
	}
	return true
}
