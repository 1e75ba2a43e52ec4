package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubjectMatch(t *testing.T) {
	cases := []struct {
		pattern string
		subject string
		want    bool
	}{
		{TopicPublic, TopicPublic, true},
		{TopicPublic, TopicRoster, false},
		{"chat.queue.private.*", "chat.queue.private.42", true},
		{"chat.queue.private.*", "chat.queue.private.42.extra", false},
		{"chat.queue.private.*", "chat.topic.public", false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, subjectMatch(c.pattern, c.subject), "%s vs %s", c.pattern, c.subject)
	}
}

func TestLocalBrokerPublishSubscribe(t *testing.T) {
	b := NewLocalBroker()

	var got []string
	unsub, err := b.Subscribe(PrivateQueuePattern(), func(subject string, data []byte) {
		got = append(got, subject+":"+string(data))
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(PrivateQueue(7), []byte("hi")))
	require.NoError(t, b.Publish(TopicPublic, []byte("ignored")))
	require.Equal(t, []string{"chat.queue.private.7:hi"}, got)

	unsub()
	require.NoError(t, b.Publish(PrivateQueue(7), []byte("after")))
	require.Len(t, got, 1)
}

func TestPrivateQueueUser(t *testing.T) {
	id, ok := PrivateQueueUser(PrivateQueue(15))
	require.True(t, ok)
	require.Equal(t, 15, id)

	_, ok = PrivateQueueUser(TopicPublic)
	require.False(t, ok)

	_, ok = PrivateQueueUser("chat.queue.private.not-a-number")
	require.False(t, ok)
}
