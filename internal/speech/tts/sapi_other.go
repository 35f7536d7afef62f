//go:build !windows

package tts

import "fmt"

func newSAPIEngine(Config) (Engine, error) {
	return nil, fmt.Errorf("SAPI engine only supports Windows: %w", ErrUnsupportedEngine)
}
