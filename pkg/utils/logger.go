package utils

import "go.uber.org/zap"

// NewProductionLogger returns a JSON zap logger at info level.
func NewProductionLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

// NewLogger builds the process logger. Debug mode gets the human-readable
// development config at debug level; otherwise production JSON at info.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
