package scripts

import (
	"sync"

	"arhat.dev/pkg/log"
)

type logRecord struct {
	level string
	msg   string
}

// recordingLogger keeps level and message of every record
type recordingLogger struct {
	log.Interface

	mu      sync.Mutex
	records []logRecord
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{Interface: log.Log}
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, logRecord{level: level, msg: msg})
}

func (l *recordingLogger) V(msg string, fields ...log.Field) { l.record("V", msg) }
func (l *recordingLogger) D(msg string, fields ...log.Field) { l.record("D", msg) }
func (l *recordingLogger) I(msg string, fields ...log.Field) { l.record("I", msg) }
func (l *recordingLogger) E(msg string, fields ...log.Field) { l.record("E", msg) }

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ret []string
	for _, r := range l.records {
		if r.level == level {
			ret = append(ret, r.msg)
		}
	}

	return ret
}
