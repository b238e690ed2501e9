// Package worker runs one sequential consumer per key.
package worker

import (
	"github.com/okian/ghostslot/pkg/logger"
)

// Option applies a configuration option to a Pool.
type Option func(*settings)

type settings struct {
	mailboxSize int
	name        string
	logger      logger.Logger
}

// WithMailboxSize sets the capacity of every worker's mailbox.
func WithMailboxSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.mailboxSize = size
		}
	}
}

// WithName sets the pool name used in logs.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
