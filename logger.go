package sitrapesca

import (
	"bytes"
	"fmt"
	"sync"
)

type Logger interface {
	Printf(format string, a ...interface{})
}

// BufferedLogger keeps every line in memory. chromedp may log from its
// event goroutines, so writes are serialized.
type BufferedLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (buflog *BufferedLogger) Printf(format string, a ...interface{}) {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	fmt.Fprintf(&buflog.buffer, format, a...)
	buflog.buffer.WriteByte('\n')
}

func (buflog *BufferedLogger) String() string {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	return buflog.buffer.String()
}

func (buflog *BufferedLogger) Flush(logger Logger) {
	s := buflog.String()
	if s != "" {
		logger.Printf("%v", s)
	}
}

// prefixLogger tags every line with the account being processed.
type prefixLogger struct {
	prefix string
	log    Logger
}

func (p prefixLogger) Printf(format string, a ...interface{}) {
	p.log.Printf("[%v] "+format, append([]interface{}{p.prefix}, a...)...)
}
