package jit

import "sync/atomic"

// Counts are the process-wide compile outcome counters. They only grow.
type Counts struct {
	successes atomic.Int64
	failures  atomic.Int64
}

func (c *Counts) Successes() int64 { return c.successes.Load() }

func (c *Counts) Failures() int64 { return c.failures.Load() }

func (c *Counts) succeed() int64 { return c.successes.Add(1) }

func (c *Counts) fail() int64 { return c.failures.Add(1) }
