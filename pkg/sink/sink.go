package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Event describes one dispatched state transition
type Event struct {
	ID             string    `json:"id"`
	Time           time.Time `json:"time"`
	Interface      string    `json:"interface"`
	Index          int       `json:"index"`
	Type           string    `json:"type"`
	Axis           string    `json:"axis"`
	State          string    `json:"state"`
	Administrative string    `json:"administrative"`
	Operational    string    `json:"operational"`
	Scripts        []string  `json:"scripts"`
	Failed         []string  `json:"failed"`
}

func NewEvent() *Event {
	return &Event{
		ID:   uuid.New().String(),
		Time: time.Now().UTC(),
	}
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Sink receives transition events
type Sink interface {
	Name() string
	Publish(ev *Event) error
	Close() error
}

type (
	FactoryFunc       func(ctx context.Context, cfg interface{}) (Sink, error)
	ConfigFactoryFunc func() interface{}
)

type factory struct {
	newSink   FactoryFunc
	newConfig ConfigFactoryFunc
}

var supportedSinks = make(map[string]factory)

func Register(name string, newSink FactoryFunc, newConfig ConfigFactoryFunc) {
	supportedSinks[name] = factory{
		newSink:   newSink,
		newConfig: newConfig,
	}
}

func Supported() []string {
	var ret []string
	for name := range supportedSinks {
		ret = append(ret, name)
	}
	sort.Strings(ret)

	return ret
}

func NewSink(ctx context.Context, name string, cfg interface{}) (Sink, error) {
	f, ok := supportedSinks[name]
	if !ok {
		return nil, fmt.Errorf("sink %s not found", name)
	}

	return f.newSink(ctx, cfg)
}

func NewConfig(name string) (interface{}, error) {
	f, ok := supportedSinks[name]
	if !ok {
		return nil, fmt.Errorf("sink config for %s not found", name)
	}

	return f.newConfig(), nil
}

// Set publishes to all sinks, one failing sink does not stop the others
type Set []Sink

func (s Set) Publish(ev *Event) error {
	var err error
	for _, sk := range s {
		if err2 := sk.Publish(ev); err2 != nil {
			err = multierr.Append(err, fmt.Errorf("failed to publish to %s: %w", sk.Name(), err2))
		}
	}

	return err
}

func (s Set) Close() error {
	var err error
	for _, sk := range s {
		err = multierr.Append(err, sk.Close())
	}

	return err
}
