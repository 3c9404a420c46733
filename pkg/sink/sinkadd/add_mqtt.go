//go:build !nomqtt
// +build !nomqtt

package sinkadd

import (
	// add mqtt sink
	_ "arhat.dev/linkhook/pkg/sink/mqtt"
)
