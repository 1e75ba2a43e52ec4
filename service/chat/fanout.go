package chat

import (
	"chatgate/logger"
)

// StartFanout subscribes this gateway's connection pool to the
// outbound subjects. Returns a stop func that undoes the
// subscriptions.
func (s *Server) StartFanout() (func(), error) {
	var unsubs []func()
	stop := func() {
		for _, u := range unsubs {
			u()
		}
	}

	broadcast := func(_ string, data []byte) {
		s.connMgr.Broadcast(data)
	}
	for _, subject := range []string{TopicPublic, TopicRoster} {
		unsub, err := s.broker.Subscribe(subject, broadcast)
		if err != nil {
			stop()
			return nil, err
		}
		unsubs = append(unsubs, unsub)
	}

	unsub, err := s.broker.Subscribe(PrivateQueuePattern(), func(subject string, data []byte) {
		userID, ok := PrivateQueueUser(subject)
		if !ok {
			logger.Warnf("[fanout] unroutable private subject %q", subject)
			return
		}
		s.connMgr.SendToUser(userID, data)
	})
	if err != nil {
		stop()
		return nil, err
	}
	unsubs = append(unsubs, unsub)

	return stop, nil
}
