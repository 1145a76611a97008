package logger

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRotationWriter 按配置创建带轮换的文件 writer，未知类型按大小轮换
func NewRotationWriter(cfg *RotationConfig, outputPath string) (io.Writer, error) {
	if cfg.Type == RotationByTime {
		return newTimeRotationWriter(cfg, outputPath)
	}
	return &lumberjack.Logger{
		Filename:   outputPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}

func newTimeRotationWriter(cfg *RotationConfig, outputPath string) (io.Writer, error) {
	every, err := parseDurationOr(cfg.RotationTime, 24*time.Hour)
	if err != nil {
		return nil, errors.Wrap(err, "rotation_time")
	}
	keep, err := parseDurationOr(cfg.MaxAgeTime, 7*24*time.Hour)
	if err != nil {
		return nil, errors.Wrap(err, "max_age_time")
	}

	pattern := cfg.RotationPattern
	if pattern == "" {
		pattern = ".%Y%m%d%H"
	}

	w, err := rotatelogs.New(
		outputPath+pattern,
		rotatelogs.WithLinkName(outputPath),
		rotatelogs.WithRotationTime(every),
		rotatelogs.WithMaxAge(keep),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create time rotation writer")
	}
	return w, nil
}

func parseDurationOr(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Newf("must be positive, got %s", s)
	}
	return d, nil
}
