package chat

import (
	"context"

	"chatgate/logger"
	"chatgate/module/chat/model"
	"chatgate/tools/decode"
	"chatgate/tools/errs"
)

// HandleJoin creates the presence record for the authenticated
// principal, persists a join notice, and broadcasts it together with
// the refreshed roster. Persistence happens before any publish.
func (s *Server) HandleJoin(ctx context.Context, conn *WsConn) {
	rec, err := s.svc.UserOnline(ctx, conn.Username, conn.SessionID)
	if err != nil {
		logger.Warnf("[router] join dropped user=%s: %v", conn.Username, err)
		return
	}
	conn.UserID = rec.UserID
	conn.Nickname = rec.Nickname
	conn.Joined = true
	s.connMgr.BindUser(conn)

	msg, err := s.svc.AppendSystem(ctx, rec.Nickname+" joined the chat room", model.KindJoin)
	if err != nil {
		logger.Warnf("[router] join notice persist failed user=%s: %v", conn.Username, err)
		return
	}
	s.emit(msg)
	s.publish(TopicPublic, encodeMessageFrame(TopicPublic, msg))
	s.publishRoster(ctx)
	logger.Infof("[router] join user=%s session=%s", conn.Username, conn.SessionID)
}

// HandleSendMessage persists a public text message and broadcasts it
// to the public topic.
func (s *Server) HandleSendMessage(ctx context.Context, conn *WsConn, frame *Frame) {
	if !conn.Joined {
		logger.Warnf("[router] send dropped session=%s: %v", conn.SessionID, &errs.ErrNotJoined)
		return
	}
	p, err := decode.Payload[SendMessagePayload](frame.Payload)
	if err != nil {
		logger.Warnf("[router] send dropped, bad payload session=%s: %v", conn.SessionID, err)
		return
	}
	msg, err := s.svc.SendPublic(ctx, conn.UserID, p.Content)
	if err != nil {
		logger.Warnf("[router] send dropped user=%s: %v", conn.Username, err)
		return
	}
	s.emit(msg)
	s.publish(TopicPublic, encodeMessageFrame(TopicPublic, msg))
	s.svc.Touch(ctx, conn.UserID)
}

// HandleSendPrivate persists a private message and delivers it to
// exactly two destinations: the receiver's queue and the sender's own
// queue, so the sender's other devices see the echo.
func (s *Server) HandleSendPrivate(ctx context.Context, conn *WsConn, frame *Frame) {
	if !conn.Joined {
		logger.Warnf("[router] private dropped session=%s: %v", conn.SessionID, &errs.ErrNotJoined)
		return
	}
	p, err := decode.Payload[SendPrivatePayload](frame.Payload)
	if err != nil {
		logger.Warnf("[router] private dropped, bad payload session=%s: %v", conn.SessionID, err)
		return
	}
	msg, err := s.svc.SendPrivate(ctx, conn.UserID, p.ReceiverID, p.Content)
	if err != nil {
		logger.Warnf("[router] private dropped user=%s receiver=%d: %v", conn.Username, p.ReceiverID, err)
		return
	}
	s.emit(msg)
	receiverQ := PrivateQueue(msg.ReceiverID)
	s.publish(receiverQ, encodeMessageFrame(receiverQ, msg))
	if msg.ReceiverID != msg.SenderID {
		senderQ := PrivateQueue(msg.SenderID)
		s.publish(senderQ, encodeMessageFrame(senderQ, msg))
	}
	s.svc.Touch(ctx, conn.UserID)
}

// Reconcile is the disconnect path. It removes the presence record
// only when this session still owns it; a failed compare-and-delete
// means a newer connection superseded this one and its presence must
// stay intact.
func (s *Server) Reconcile(ctx context.Context, conn *WsConn) {
	if !conn.Joined {
		return
	}
	removed, err := s.svc.UserOffline(ctx, conn.UserID, conn.SessionID)
	if err != nil {
		logger.Warnf("[router] offline failed user=%d: %v", conn.UserID, err)
		return
	}
	if !removed {
		logger.Debugf("[router] teardown superseded user=%d session=%s", conn.UserID, conn.SessionID)
		return
	}

	msg, err := s.svc.AppendSystem(ctx, conn.Nickname+" left the chat room", model.KindLeave)
	if err != nil {
		logger.Warnf("[router] leave notice persist failed user=%d: %v", conn.UserID, err)
	} else {
		s.emit(msg)
		s.publish(TopicPublic, encodeMessageFrame(TopicPublic, msg))
	}
	s.publishRoster(ctx)
	logger.Infof("[router] leave user=%s session=%s", conn.Username, conn.SessionID)
}

func (s *Server) publish(subject string, data []byte) {
	if err := s.broker.Publish(subject, data); err != nil {
		logger.Warnf("[router] publish %s failed: %v", subject, err)
	}
}

func (s *Server) publishRoster(ctx context.Context) {
	roster := s.svc.OnlineUsers(ctx)
	s.publish(TopicRoster, encodeRosterFrame(roster))
}

func (s *Server) emit(msg *model.Message) {
	if s.events != nil {
		s.events.Emit(msg)
	}
}
