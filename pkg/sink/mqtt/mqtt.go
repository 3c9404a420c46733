package mqtt

import (
	"context"
	"fmt"
	"time"

	"arhat.dev/pkg/log"
	"github.com/goiiot/libmqtt"

	"arhat.dev/linkhook/pkg/sink"
)

const Name = "mqtt"

func init() {
	sink.Register(Name, NewSink, NewConfig)
}

type Config struct {
	Broker    string `json:"broker" yaml:"broker"`
	Version   string `json:"version" yaml:"version"`
	Transport string `json:"transport" yaml:"transport"`

	// Topic to publish transition events to
	Topic string `json:"topic" yaml:"topic"`
	Qos   int    `json:"qos" yaml:"qos"`

	ClientID  string `json:"clientID" yaml:"clientID"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	Keepalive int32  `json:"keepalive" yaml:"keepalive"`

	ConnectTimeout time.Duration `json:"connectTimeout" yaml:"connectTimeout"`
}

func NewConfig() interface{} {
	return &Config{
		Version:        "3.1.1",
		Transport:      "tcp",
		Topic:          "linkhook/transitions",
		ClientID:       "linkhook",
		Keepalive:      60,
		ConnectTimeout: 10 * time.Second,
	}
}

func (c *Config) options() ([]libmqtt.Option, error) {
	if c.Broker == "" {
		return nil, fmt.Errorf("no mqtt broker address provided")
	}

	if c.Topic == "" {
		return nil, fmt.Errorf("no mqtt topic provided")
	}

	if c.Qos < 0 || c.Qos > 2 {
		return nil, fmt.Errorf("invalid mqtt qos %d", c.Qos)
	}

	var options []libmqtt.Option
	switch c.Version {
	case "5":
		options = append(options, libmqtt.WithVersion(libmqtt.V5, false))
	case "3.1.1", "":
		options = append(options, libmqtt.WithVersion(libmqtt.V311, false))
	default:
		return nil, fmt.Errorf("unsupported mqtt version: %s", c.Version)
	}

	switch c.Transport {
	case "websocket":
		options = append(options, libmqtt.WithWebSocketConnector(0, nil))
	case "tcp", "":
		options = append(options, libmqtt.WithTCPConnector(0))
	default:
		return nil, fmt.Errorf("unsupported transport method: %s", c.Transport)
	}

	keepalive := c.Keepalive
	if keepalive == 0 {
		// default to 60 seconds
		keepalive = 60
	}

	options = append(options,
		libmqtt.WithConnPacket(libmqtt.ConnPacket{
			Username:     c.Username,
			Password:     c.Password,
			ClientID:     c.ClientID,
			Keepalive:    uint16(keepalive),
			CleanSession: true,
		}),
		libmqtt.WithKeepalive(uint16(keepalive), 1.2),
	)

	return options, nil
}

type Sink struct {
	logger log.Interface
	client libmqtt.Client

	publish func(p *libmqtt.PublishPacket)
	destroy func()

	broker string
	topic  string
	qos    libmqtt.QosLevel
}

func NewSink(ctx context.Context, cfg interface{}) (sink.Sink, error) {
	c, ok := cfg.(*Config)
	if !ok {
		return nil, fmt.Errorf("unexpected mqtt sink config type %T", cfg)
	}

	options, err := c.options()
	if err != nil {
		return nil, fmt.Errorf("invalid config options for mqtt connect: %w", err)
	}

	client, err := libmqtt.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt client: %w", err)
	}

	s := &Sink{
		logger: log.Log.WithName("sink.mqtt"),
		client: client,
		broker: c.Broker,
		topic:  c.Topic,
		qos:    libmqtt.QosLevel(c.Qos),

		publish: func(p *libmqtt.PublishPacket) { client.Publish(p) },
		destroy: func() { client.Destroy(false) },
	}

	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if err = s.connect(ctx, timeout); err != nil {
		client.Destroy(true)
		return nil, err
	}

	return s, nil
}

func (s *Sink) connect(ctx context.Context, timeout time.Duration) error {
	connErrCh := make(chan error, 1)

	err := s.client.ConnectServer(s.broker,
		libmqtt.WithAutoReconnect(true),
		libmqtt.WithConnHandleFunc(func(client libmqtt.Client, server string, code byte, err error) {
			switch {
			case err != nil:
			case code != libmqtt.CodeSuccess:
				err = fmt.Errorf("rejected by mqtt broker, code: %d", code)
			default:
				s.logger.V("connected to broker", log.String("server", server))
			}

			select {
			case connErrCh <- err:
			default:
			}
		}),
		libmqtt.WithPubHandleFunc(s.handlePub),
		libmqtt.WithNetHandleFunc(s.handleNet),
	)
	if err != nil {
		return fmt.Errorf("failed to connect mqtt broker: %w", err)
	}

	select {
	case err = <-connErrCh:
		if err != nil {
			return fmt.Errorf("failed to connect mqtt broker: %w", err)
		}
	case <-time.After(timeout):
		return fmt.Errorf("timed out connecting mqtt broker %s", s.broker)
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

func (s *Sink) Name() string {
	return Name
}

func (s *Sink) Publish(ev *sink.Event) error {
	data, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.publish(&libmqtt.PublishPacket{
		TopicName: s.topic,
		Payload:   data,
		Qos:       s.qos,
	})

	return nil
}

func (s *Sink) Close() error {
	s.destroy()
	return nil
}

func (s *Sink) handlePub(client libmqtt.Client, topic string, err error) {
	if err != nil {
		s.logger.I("failed to publish message", log.String("topic", topic), log.Error(err))
	}
}

func (s *Sink) handleNet(client libmqtt.Client, server string, err error) {
	if err != nil {
		s.logger.I("network error happened", log.String("server", server), log.Error(err))
	}
}
