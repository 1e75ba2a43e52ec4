package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatgate/logger"
	chatsvc "chatgate/module/chat/service"
	"chatgate/service/storage"
	"chatgate/tools/errs"
	"chatgate/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const actionTimeout = 5 * time.Second

// EventSink receives a copy of every persisted message; nil disables
// the feed.
type EventSink interface {
	Emit(msg any)
}

// Server is the websocket gateway: it gates handshakes, routes
// inbound actions, and reconciles presence on teardown.
type Server struct {
	jwtOpts security.Options
	sso     storage.SsoStore
	svc     *chatsvc.ChatService
	broker  Broker
	connMgr *ConnManager
	events  EventSink
}

func NewServer(jwtOpts security.Options, sso storage.SsoStore, svc *chatsvc.ChatService, broker Broker, events EventSink) *Server {
	return &Server{
		jwtOpts: jwtOpts,
		sso:     sso,
		svc:     svc,
		broker:  broker,
		connMgr: NewConnManager(),
		events:  events,
	}
}

// HandleWS is the handshake gate and per-connection loop. Any auth
// failure rejects before the upgrade; the client must re-authenticate
// and reconnect, there are no retries here.
func (s *Server) HandleWS(c *gin.Context) {
	token := security.TokenFromHeader(c.Request.Header)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenMissing)
		return
	}
	id, err := security.Verify(s.jwtOpts, token)
	if err != nil {
		logger.Warnf("[ws] handshake rejected, bad token: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), actionTimeout)
	current, err := s.sso.IsCurrent(ctx, id.Username, id.JTI)
	cancel()
	if err != nil || !current {
		if err != nil {
			logger.Warnf("[ws] sso check failed for %s: %v", id.Username, err)
		} else {
			logger.Warnf("[ws] handshake rejected, superseded token user=%s", id.Username)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenSuperseded)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	conn := NewWsConn(uuid.NewString(), id.Username, ws)
	s.connMgr.Add(conn)
	go conn.WritePump()
	logger.Infof("[ws] connected user=%s session=%s", conn.Username, conn.SessionID)

	s.readLoop(conn)

	// Teardown: reconcile presence first, then release the socket.
	// This runs for abrupt drops as well as graceful closes.
	{
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		s.Reconcile(ctx, conn)
		cancel()
	}
	s.connMgr.Remove(conn)
	conn.CloseSend()
	if err := ws.Close(); err != nil {
		logger.Debugf("[ws] close session=%s: %v", conn.SessionID, err)
	}
	logger.Infof("[ws] disconnected user=%s session=%s", conn.Username, conn.SessionID)
}

func (s *Server) readLoop(conn *WsConn) {
	for {
		mt, data, rerr := conn.Conn.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed session=%s", conn.SessionID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout session=%s err=%v", conn.SessionID, rerr)
			} else {
				logger.Infof("[ws] read err session=%s err=%v", conn.SessionID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[ws] bad frame session=%s err=%v sample=%q", conn.SessionID, perr, sample)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		s.Dispatch(ctx, conn, frame)
		cancel()
	}
}

// Dispatch routes one inbound frame. Failed actions are dropped with
// a log line and the connection stays open.
func (s *Server) Dispatch(ctx context.Context, conn *WsConn, frame *Frame) {
	switch frame.Action {
	case ActionJoin:
		s.HandleJoin(ctx, conn)
	case ActionSendMessage:
		s.HandleSendMessage(ctx, conn, frame)
	case ActionSendPrivate:
		s.HandleSendPrivate(ctx, conn, frame)
	default:
		logger.Warnf("[ws] unknown action %q session=%s", frame.Action, conn.SessionID)
	}
}
