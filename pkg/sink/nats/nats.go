package nats

import (
	"context"
	"fmt"
	"time"

	"arhat.dev/pkg/log"
	"github.com/nats-io/nats.go"

	"arhat.dev/linkhook/pkg/sink"
)

const Name = "nats"

func init() {
	sink.Register(Name, NewSink, NewConfig)
}

type Config struct {
	URL     string `json:"url" yaml:"url"`
	Subject string `json:"subject" yaml:"subject"`

	ClientName string `json:"clientName" yaml:"clientName"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	Token      string `json:"token" yaml:"token"`

	ConnectTimeout time.Duration `json:"connectTimeout" yaml:"connectTimeout"`
}

func NewConfig() interface{} {
	return &Config{
		URL:            nats.DefaultURL,
		Subject:        "linkhook.transitions",
		ClientName:     "linkhook",
		ConnectTimeout: 10 * time.Second,
	}
}

// conn is the part of *nats.Conn the sink uses
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type Sink struct {
	logger  log.Interface
	conn    conn
	subject string
}

func NewSink(ctx context.Context, cfg interface{}) (sink.Sink, error) {
	_ = ctx

	c, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("unexpected nats sink config type %T", cfg)
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("no nats subject provided")
	}

	logger := log.Log.WithName("sink.nats")
	opts := []nats.Option{
		nats.Name(c.ClientName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.I("disconnected from nats", log.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.V("reconnected to nats", log.String("url", nc.ConnectedUrl()))
		}),
	}

	if c.ConnectTimeout > 0 {
		opts = append(opts, nats.Timeout(c.ConnectTimeout))
	}

	switch {
	case c.Token != "":
		opts = append(opts, nats.Token(c.Token))
	case c.Username != "":
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}

	nc, err := nats.Connect(c.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect nats server %s: %w", c.URL, err)
	}

	return &Sink{
		logger:  logger,
		conn:    nc,
		subject: c.Subject,
	}, nil
}

func (s *Sink) Name() string {
	return Name
}

func (s *Sink) Publish(ev *sink.Event) error {
	data, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = s.conn.Publish(s.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.subject, err)
	}

	return nil
}

func (s *Sink) Close() error {
	return s.conn.Drain()
}
