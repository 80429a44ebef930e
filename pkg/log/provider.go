package log

import (
	"sync"

	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = newDefaultProvider()
)

func newDefaultProvider() LoggerProvider {
	p := NewZerologProvider(LevelInfo)
	routeWarnings(p)
	return p
}

// routeWarnings sends errors.Warn output through the provider's logger.
func routeWarnings(p LoggerProvider) {
	warnLogger := p.GetLoggerWithName("warnings")
	errors.SetZerologWarnFunc(func(w error) {
		warnLogger.Warn(w.Error(), ErrorKey, w)
	})
}

// SetProvider replaces the process-wide provider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
	routeWarnings(p)
}

// GetProvider returns the process-wide provider.
func GetProvider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// GetLogger returns the default logger of the process-wide provider.
func GetLogger() Logger {
	return GetProvider().GetLogger()
}

// GetLoggerWithName returns a component logger from the process-wide provider.
func GetLoggerWithName(name string) Logger {
	return GetProvider().GetLoggerWithName(name)
}
