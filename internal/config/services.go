package config

import "time"

type JudgeQueueCfg struct {
	// MaxDeliveries caps how often one task is handed out before it is dead lettered. 0 disables the cap.
	MaxDeliveries   int
	DeadLetterLimit int
	Durable         bool
	// ReportInterval is how often queue depth is logged. 0 disables the report.
	ReportInterval time.Duration
}

func NewJudgeQueueCfg() *JudgeQueueCfg {
	maxDeliveries := getIntEnv("JUDGE_QUEUE_MAX_DELIVERIES", 10)
	if maxDeliveries < 0 {
		maxDeliveries = 0
	}
	deadLetterLimit := getIntEnv("JUDGE_QUEUE_DEAD_LETTER_LIMIT", 1000)
	if deadLetterLimit <= 0 {
		deadLetterLimit = 1000
	}
	return &JudgeQueueCfg{
		MaxDeliveries:   maxDeliveries,
		DeadLetterLimit: deadLetterLimit,
		Durable:         getBoolEnv("JUDGE_QUEUE_DURABLE", false),
		ReportInterval:  time.Duration(getIntEnv("JUDGE_QUEUE_REPORT_INTERVAL_SEC", 60)) * time.Second,
	}
}

type FileLinkCfg struct {
	BaseURL      string
	TTL          time.Duration
	EphemeralTTL time.Duration
}

func NewFileLinkCfg() *FileLinkCfg {
	return &FileLinkCfg{
		BaseURL:      getEnv("FILE_BASE_URL", "http://localhost:8082/files"),
		TTL:          time.Duration(getIntEnv("FILE_LINK_TTL_SEC", 3600)) * time.Second,
		EphemeralTTL: time.Duration(getIntEnv("FILE_LINK_EPHEMERAL_TTL_SEC", 1200)) * time.Second,
	}
}

type TracingCfg struct {
	Enabled bool
	Output  string
}

func NewTracingCfg() *TracingCfg {
	return &TracingCfg{
		Enabled: getBoolEnv("TRACING_ENABLED", false),
		Output:  getEnv("TRACING_OUTPUT", ""),
	}
}
