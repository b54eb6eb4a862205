package constants

import "time"

var CacheTTL = struct {
	EntityResolve   time.Duration
	DomainExpansion time.Duration
	CrossDomain     time.Duration
}{
	EntityResolve:   60 * time.Minute, // search results are stable
	DomainExpansion: 30 * time.Minute,
	CrossDomain:     30 * time.Minute,
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,
	ResetTimeout:        30 * time.Second,
	RateLimitTimeout:    1 * time.Hour, // 429s get a much longer cooldown
	HealthCheckInterval: 10 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

var APIConfig = struct {
	QlooBaseURL    string
	QlooTimeout    time.Duration
	MaxKeyAttempts int
}{
	QlooBaseURL:    "https://hackathon.api.qloo.com",
	QlooTimeout:    15 * time.Second,
	MaxKeyAttempts: 10,
}

var AIInputLimits = struct {
	MaxInterestLength int
	MaxInterestCount  int
}{
	MaxInterestLength: 200,
	MaxInterestCount:  25,
}

var PipelineDefaults = struct {
	InsightDelay    time.Duration
	RunTimeout      time.Duration
	ExpansionLimit  int
	CrossLimit      int
	MaxAlternatives int
	MaxPairings     int
	Concurrency     int
}{
	InsightDelay:    400 * time.Millisecond, // paces the streamed insight cadence
	RunTimeout:      5 * time.Minute,
	ExpansionLimit:  8,
	CrossLimit:      5,
	MaxAlternatives: 2,
	MaxPairings:     4,
	Concurrency:     4,
}

var WebSocketConfig = struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	SendBufferSize int
	MaxMessageSize int64
}{
	WriteWait:      10 * time.Second,
	PongWait:       60 * time.Second,
	PingPeriod:     54 * time.Second, // must be shorter than PongWait
	SendBufferSize: 64,
	MaxMessageSize: 1024,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}
