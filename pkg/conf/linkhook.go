/*
Copyright 2020 The arhat.dev Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package conf

import (
	"time"

	"arhat.dev/pkg/log"
)

type Config struct {
	Linkhook AppConfig `json:"linkhook" yaml:"linkhook"`
	// Sinks receive transition events after hooks finished
	Sinks []SinkConfig `json:"sinks" yaml:"sinks"`
}

type AppConfig struct {
	Log log.ConfigSet `json:"log" yaml:"log"`

	// ScriptDirs in priority order, earlier dirs shadow later ones
	ScriptDirs []string `json:"scriptDirs" yaml:"scriptDirs"`

	// RunStartupTriggers replays current link states through hooks after startup
	RunStartupTriggers bool `json:"runStartupTriggers" yaml:"runStartupTriggers"`

	// Networkctl binary path, looked up in PATH when empty
	Networkctl string `json:"networkctl" yaml:"networkctl"`

	// HookTimeout per script, zero means no timeout
	HookTimeout time.Duration `json:"hookTimeout" yaml:"hookTimeout"`

	// HookEnvFile is a dotenv file with extra hook environment
	HookEnvFile string `json:"hookEnvFile" yaml:"hookEnvFile"`

	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

type MetricsConfig struct {
	// Listen address of the prometheus endpoint, disabled when empty
	Listen string `json:"listen" yaml:"listen"`
	// Path of the prometheus endpoint
	Path string `json:"path" yaml:"path"`
}
