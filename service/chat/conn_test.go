package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func drain(c *WsConn) []string {
	var out []string
	for {
		select {
		case data := <-c.Send:
			out = append(out, string(data))
		default:
			return out
		}
	}
}

func TestConnManagerBroadcast(t *testing.T) {
	m := NewConnManager()
	a := NewWsConn("sess-a", "alice", nil)
	b := NewWsConn("sess-b", "bob", nil)
	m.Add(a)
	m.Add(b)

	m.Broadcast([]byte("hello"))
	require.Equal(t, []string{"hello"}, drain(a))
	require.Equal(t, []string{"hello"}, drain(b))
	require.Equal(t, 2, m.Count())
}

func TestConnManagerSendToUser(t *testing.T) {
	m := NewConnManager()
	a := NewWsConn("sess-a", "alice", nil)
	a.UserID = 1
	b := NewWsConn("sess-b", "bob", nil)
	b.UserID = 2
	m.Add(a)
	m.Add(b)
	m.BindUser(a)
	m.BindUser(b)

	m.SendToUser(2, []byte("psst"))
	require.Empty(t, drain(a))
	require.Equal(t, []string{"psst"}, drain(b))

	// no destination for an offline user; nothing blocks or panics
	m.SendToUser(99, []byte("void"))
}

func TestEnqueueAfterCloseSendIsNoop(t *testing.T) {
	c := NewWsConn("sess-a", "alice", nil)
	c.CloseSend()

	// a broadcaster holding a snapshot taken before teardown must not
	// hit a closed channel
	require.NotPanics(t, func() { c.Enqueue([]byte("hello")) })
	require.NotPanics(t, c.CloseSend)
}

func TestBroadcastDuringTeardown(t *testing.T) {
	m := NewConnManager()
	a := NewWsConn("sess-a", "alice", nil)
	b := NewWsConn("sess-b", "bob", nil)
	m.Add(a)
	m.Add(b)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			m.Broadcast([]byte("tick"))
		}
	}()

	m.Remove(a)
	a.CloseSend()
	<-done

	require.NotEmpty(t, drain(b))
}

func TestConnManagerRemove(t *testing.T) {
	m := NewConnManager()
	a := NewWsConn("sess-a", "alice", nil)
	a.UserID = 1
	m.Add(a)
	m.BindUser(a)

	m.Remove(a)
	require.Equal(t, 0, m.Count())
	m.SendToUser(1, []byte("gone"))
	require.Empty(t, drain(a))
}
