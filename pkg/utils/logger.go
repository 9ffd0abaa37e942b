package utils

// logger.go - настройка логирования
//
// Назначение:
// Инициализация структурированного логирования через zap. Формат и
// уровень берутся из LoggingConfig (см. internal/config), а не
// хардкодятся здесь.

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger строит *zap.Logger по формату ("json"|"console") и уровню
// ("debug"|"info"|"warn"|"error"). Неизвестный уровень трактуется как info.
func InitLogger(format, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// MustInitLogger - то же, что InitLogger, но паникует при ошибке сборки.
func MustInitLogger(format, level string) *zap.Logger {
	logger, err := InitLogger(format, level)
	if err != nil {
		panic(err)
	}
	return logger
}
