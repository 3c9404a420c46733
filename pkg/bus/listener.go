package bus

import (
	"context"
	"fmt"

	"arhat.dev/pkg/log"
	"github.com/godbus/dbus/v5"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/dispatcher"
)

const propertiesChangedSignal = constant.PropertiesInterface + "." + constant.PropertiesChangedMember

// Conn is the part of a bus connection the listener uses
type Conn interface {
	AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// Listener forwards networkd link property changes
type Listener struct {
	logger log.Interface
	conn   Conn
}

// ConnectSystemBus creates a listener on a private system bus connection
func ConnectSystemBus(ctx context.Context) (*Listener, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect system bus: %w", err)
	}

	return NewListener(conn), nil
}

func NewListener(conn Conn) *Listener {
	return &Listener{
		logger: log.Log.WithName("bus"),
		conn:   conn,
	}
}

// Listen subscribes to link property changes, the returned channel
// delivers signals in bus order and is closed when ctx is done or the
// connection is closed
func (l *Listener) Listen(ctx context.Context, buffer int) (<-chan dispatcher.LinkSignal, error) {
	err := l.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchSender(constant.NetworkdBusName),
		dbus.WithMatchInterface(constant.PropertiesInterface),
		dbus.WithMatchMember(constant.PropertiesChangedMember),
		dbus.WithMatchPathNamespace(dbus.ObjectPath(constant.NetworkdLinkPathPrefix)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add bus signal match: %w", err)
	}

	signals := make(chan *dbus.Signal, buffer)
	l.conn.Signal(signals)

	out := make(chan dispatcher.LinkSignal)
	go func() {
		defer func() {
			l.conn.RemoveSignal(signals)
			close(out)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case s, more := <-signals:
				if !more {
					l.logger.I("bus connection closed")
					return
				}

				sig, ok := ConvertSignal(s)
				if !ok {
					l.logger.D("ignoring bus signal", log.String("name", s.Name), log.String("path", string(s.Path)))
					continue
				}

				select {
				case <-ctx.Done():
					return
				case out <- sig:
				}
			}
		}
	}()

	return out, nil
}

func (l *Listener) Close() error {
	return l.conn.Close()
}

// ConvertSignal extracts the string properties of a PropertiesChanged
// signal, other values are dropped
func ConvertSignal(s *dbus.Signal) (dispatcher.LinkSignal, bool) {
	if s == nil || s.Name != propertiesChangedSignal || len(s.Body) < 2 {
		return dispatcher.LinkSignal{}, false
	}

	iface, ok := s.Body[0].(string)
	if !ok {
		return dispatcher.LinkSignal{}, false
	}

	props, ok := s.Body[1].(map[string]dbus.Variant)
	if !ok {
		return dispatcher.LinkSignal{}, false
	}

	changed := make(map[string]string, len(props))
	for k, v := range props {
		if str, isStr := v.Value().(string); isStr {
			changed[k] = str
		}
	}

	return dispatcher.LinkSignal{
		Interface: iface,
		Path:      string(s.Path),
		Changed:   changed,
	}, true
}
