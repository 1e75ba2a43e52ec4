package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatgate/logger"
)

const (
	sendQueueSize = 256
	writeWait     = 5 * time.Second
)

// WsConn is the typed per-connection context. SessionID and Username
// are fixed at handshake; UserID, Nickname, and Joined are populated
// at join time, and the disconnect path reads them from here rather
// than from any shared lookup.
type WsConn struct {
	SessionID string
	Username  string

	UserID   int
	Nickname string
	Joined   bool

	Conn *websocket.Conn
	Send chan []byte

	sendMu sync.Mutex
	closed bool
}

func NewWsConn(sessionID, username string, conn *websocket.Conn) *WsConn {
	return &WsConn{
		SessionID: sessionID,
		Username:  username,
		Conn:      conn,
		Send:      make(chan []byte, sendQueueSize),
	}
}

// WritePump is the single writer goroutine for this connection.
// Everything outbound goes through Send.
func (c *WsConn) WritePump() {
	for data := range c.Send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debugf("[ws] write failed session=%s: %v", c.SessionID, err)
			return
		}
	}
}

// Enqueue drops the frame when the send queue is full rather than
// blocking the caller. A broadcaster may hold a connection snapshot
// taken before teardown removed it, so enqueue and close share a
// mutex: after CloseSend, Enqueue is a no-op instead of a send on a
// closed channel.
func (c *WsConn) Enqueue(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		logger.Warnf("[ws] send queue full, dropping frame session=%s user=%s", c.SessionID, c.Username)
	}
}

func (c *WsConn) CloseSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ConnManager indexes the live connections of this gateway.
type ConnManager struct {
	mu        sync.RWMutex
	bySession map[string]*WsConn
	byUser    map[int]map[string]*WsConn
}

func NewConnManager() *ConnManager {
	return &ConnManager{
		bySession: make(map[string]*WsConn),
		byUser:    make(map[int]map[string]*WsConn),
	}
}

func (m *ConnManager) Add(c *WsConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySession[c.SessionID] = c
}

// BindUser indexes the connection under its user id once join has
// resolved the principal.
func (m *ConnManager) BindUser(c *WsConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byUser[c.UserID] == nil {
		m.byUser[c.UserID] = make(map[string]*WsConn)
	}
	m.byUser[c.UserID][c.SessionID] = c
}

func (m *ConnManager) Remove(c *WsConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bySession, c.SessionID)
	if mm := m.byUser[c.UserID]; mm != nil {
		delete(mm, c.SessionID)
		if len(mm) == 0 {
			delete(m.byUser, c.UserID)
		}
	}
}

// Broadcast enqueues data on every live connection.
func (m *ConnManager) Broadcast(data []byte) {
	m.mu.RLock()
	conns := make([]*WsConn, 0, len(m.bySession))
	for _, c := range m.bySession {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.Enqueue(data)
	}
}

// SendToUser enqueues data on every connection of one user, so other
// devices and tabs see the same delivery.
func (m *ConnManager) SendToUser(userID int, data []byte) {
	m.mu.RLock()
	var conns []*WsConn
	for _, c := range m.byUser[userID] {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.Enqueue(data)
	}
}

func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySession)
}
