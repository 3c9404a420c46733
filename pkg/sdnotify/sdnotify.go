package sdnotify

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"arhat.dev/pkg/log"
	"github.com/coreos/go-systemd/v22/daemon"
)

const envNotifySocket = "NOTIFY_SOCKET"

// Ready tells the service manager startup finished
func Ready() int {
	return Notify(map[string]string{"READY": "1"})
}

// Errno reports a startup failure to the service manager
func Errno(errno syscall.Errno) int {
	return Notify(map[string]string{"ERRNO": strconv.Itoa(int(errno))})
}

// Notify sends fields as `KEY=VALUE` lines to the service manager
//
// returns 0 on success, -EINVAL when there is nothing to send or the
// process is not supervised, and a positive value when sending failed
func Notify(fields map[string]string) (ret int) {
	if len(fields) == 0 {
		return -int(syscall.EINVAL)
	}

	socket := os.Getenv(envNotifySocket)
	if !strings.HasPrefix(socket, "/") && !strings.HasPrefix(socket, "@") {
		return -int(syscall.EINVAL)
	}

	logger := log.Log.WithName("sdnotify")
	defer func() {
		if r := recover(); r != nil {
			logger.I("ignoring unexpected error during sd_notify() invocation", log.Any("panic", r))
			ret = 1
		}
	}()

	sent, err := daemon.SdNotify(false, State(fields))
	switch {
	case err != nil:
		logger.I("failed to notify service manager", log.Error(err))
		return 1
	case !sent:
		return -int(syscall.EINVAL)
	}

	return 0
}

// State formats fields as notify state with sorted keys
func State(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}

	return strings.Join(lines, "\n")
}
