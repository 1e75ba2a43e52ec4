package natsx

import (
	"time"

	"github.com/nats-io/nats.go"
	pkgerrors "github.com/pkg/errors"

	"chatgate/logger"
)

type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Client is a thin wrapper that satisfies the gateway's Broker
// interface. NATS "*" wildcards line up with the gateway's
// single-token subject patterns.
type Client struct {
	nc *nats.Conn
}

func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, pkgerrors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("[natsx] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[natsx] reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(joinServers(cfg.Servers), opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "connect nats")
	}
	return &Client{nc: nc}, nil
}

func joinServers(servers []string) string {
	out := servers[0]
	for _, s := range servers[1:] {
		out += "," + s
	}
	return out
}

func (c *Client) Publish(subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	if err := c.nc.PublishMsg(msg); err != nil {
		return pkgerrors.Wrapf(err, "publish %s", subject)
	}
	return nil
}

func (c *Client) Subscribe(subject string, fn func(subject string, data []byte)) (func(), error) {
	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		fn(m.Subject, m.Data)
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "subscribe %s", subject)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			logger.Debugf("[natsx] unsubscribe %s: %v", subject, err)
		}
	}, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}
