package store

import (
	"ratelake/internal/platform/logger"
)

// Option customizes a Store before its backends open
type Option func(*Store) error

// WithLogger routes subclient logging (pg tracer, open errors) through log
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}
