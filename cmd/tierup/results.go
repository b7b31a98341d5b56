package main

import (
	"fmt"
	"sync"

	"github.com/wippyai/tierup/jit"
	"github.com/wippyai/tierup/method"
)

// resultLog keeps the last task result per method.
type resultLog struct {
	byMethod map[*method.Method]jit.Result
	failures []string
	mu       sync.Mutex
}

func newResultLog() *resultLog {
	return &resultLog{byMethod: make(map[*method.Method]jit.Result)}
}

func (l *resultLog) record(m *method.Method, _ string, res jit.Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byMethod[m] = res
	if res.Err != nil {
		l.failures = append(l.failures, fmt.Sprintf("%s: %v", res.Method, res.Err))
	}
}

func (l *resultLog) last(m *method.Method) (jit.Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.byMethod[m]
	return res, ok
}

func (l *resultLog) errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.failures...)
}
