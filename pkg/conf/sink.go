package conf

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"arhat.dev/linkhook/pkg/sink"
)

type SinkConfig struct {
	Driver string `json:"driver" yaml:"driver"`

	Config interface{} `json:"config" yaml:"config"`
}

func (c *SinkConfig) UnmarshalJSON(data []byte) error {
	m := make(map[string]interface{})

	err := json.Unmarshal(data, &m)
	if err != nil {
		return err
	}

	return unmarshalSinkConfig(m, c)
}

func (c *SinkConfig) UnmarshalYAML(value *yaml.Node) error {
	m := make(map[string]interface{})

	err := value.Decode(&m)
	if err != nil {
		return err
	}

	return unmarshalSinkConfig(m, c)
}

func unmarshalSinkConfig(m map[string]interface{}, config *SinkConfig) error {
	d, ok := m["driver"]
	if !ok {
		return fmt.Errorf("must specify sink driver")
	}

	config.Driver, ok = d.(string)
	if !ok {
		return fmt.Errorf("sink driver must be a string")
	}

	var err error
	config.Config, err = sink.NewConfig(config.Driver)
	if err != nil {
		return fmt.Errorf("unknown sink driver %s: %w", config.Driver, err)
	}

	configRaw, ok := m["config"]
	if !ok || configRaw == nil {
		// use defaults
		return nil
	}

	configData, err := yaml.Marshal(configRaw)
	if err != nil {
		return fmt.Errorf("failed to get sink config bytes: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(configData))
	dec.KnownFields(true)
	err = dec.Decode(config.Config)
	if err != nil {
		return fmt.Errorf("failed to resolve sink config %s: %w", config.Driver, err)
	}

	return nil
}
