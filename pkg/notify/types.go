package notify

import "time"

// Alert 与平台无关的告警
type Alert struct {
	Level       AlertLevel
	Service     string
	Summary     string
	Description string

	Labels map[string]string
	// Fingerprint 相同指纹的告警在冷却期内只发一次
	Fingerprint string

	StartsAt   time.Time
	RunbookURL string
	AtAll      bool
}

// AlertLevel 告警级别
type AlertLevel string

const (
	AlertLevelCritical AlertLevel = "critical"
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelInfo     AlertLevel = "info"
)
