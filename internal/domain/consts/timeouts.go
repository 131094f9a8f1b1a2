package consts

import "time"

// Queue driver
const (
	QueueTickInterval = 150 * time.Millisecond
	EvictionGrace     = 2 * time.Second
)

// Progress delivery
const (
	ProgressThrottle  = 333 * time.Millisecond
	SubscriberBacklog = 32
)

// Subprocess lifecycle
const (
	InterruptWaitDelay = 5 * time.Second
)

// Network timeouts
const (
	HTTPDialTimeout     = 10 * time.Second
	HTTPResponseTimeout = 30 * time.Second
	DatabaseTimeout     = 5 * time.Second
)

// Retry configuration
const (
	DefaultMaxRetries = 3
	RetryBackoff      = 100 * time.Millisecond
)

// Server
const (
	ServerReadHeaderTimeout = 10 * time.Second
	ServerShutdownTimeout   = 5 * time.Second
)
