//go:build !nonats
// +build !nonats

package sinkadd

import (
	// add nats sink
	_ "arhat.dev/linkhook/pkg/sink/nats"
)
