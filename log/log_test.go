package log

import (
	"errors"
	"io"
	"testing"
	"time"
)

var errSample = errors.New("some error")

func doLogs() {
	Infof("proof generated for agent %x in %s", []byte{0xab, 0xcd}, time.Second)
	Debugw("submitting proof", "jobId", "abc123", "chainId", 845320009)
	Warnw("poll attempt failed", "attempt", 3, "error", errSample)
	Errorf("cannot store proof record: %v", errSample)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic with the flag disabled

	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
