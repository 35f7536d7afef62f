package tts

import (
	"fmt"
	"os"
	"runtime"
)

type EngineType string

const (
	EngineTypeMock          EngineType = "mock"
	EngineTypeESpeak        EngineType = "espeak"
	EngineTypeSAPI          EngineType = "sapi"         // Windows only
	EngineTypeAVFoundation  EngineType = "avfoundation" // macOS only
	EngineTypeGoogleClassic EngineType = "googleclassic"
	EngineTypeAuto          EngineType = "auto" // Automatically choose best for platform
)

func (e EngineType) String() string {
	return string(e)
}

// NewEngine creates a new TTS engine based on the provided config
func NewEngine(config Config) (Engine, error) {
	if config.Type == "" || config.Type == EngineTypeAuto.String() {
		config.Type = getBestEngineForPlatform().String()
	}

	switch config.Type {
	case EngineTypeMock.String():
		m := NewMockTTSEngine(config)
		m.AutoPlay = true
		return m, nil

	case EngineTypeGoogleClassic.String():
		g, err := newGoogleClassicTTSEngine(config)
		if err != nil {
			return nil, err
		}
		return g, nil

	case EngineTypeESpeak.String():
		e, err := newESpeakEngine(config)
		if err != nil {
			return nil, err
		}
		return e, nil

	case EngineTypeSAPI.String():
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("SAPI engine only supports Windows: %w", ErrUnsupportedEngine)
		}
		return newSAPIEngine(config)

	case EngineTypeAVFoundation.String():
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("AVFoundation engine only supports macOS: %w", ErrUnsupportedEngine)
		}
		return newAVFoundationEngine(config)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEngine, config.Type)
	}
}

// getBestEngineForPlatform returns the recommended engine for the current platform
func getBestEngineForPlatform() EngineType {
	if hasGoogleCredentials() {
		return EngineTypeGoogleClassic
	}

	switch runtime.GOOS {
	case "windows":
		return EngineTypeSAPI
	case "darwin":
		return EngineTypeAVFoundation
	default:
		return EngineTypeESpeak
	}
}

// GetAvailableEngines returns engines available on the current platform
func GetAvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock, EngineTypeESpeak}

	if hasGoogleCredentials() {
		engines = append(engines, EngineTypeGoogleClassic)
	}

	switch runtime.GOOS {
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	case "darwin":
		engines = append(engines, EngineTypeAVFoundation)
	}

	return engines
}

func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
