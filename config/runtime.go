package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hupe1980/crewmesh/memory"
	"github.com/hupe1980/crewmesh/queue"
	"github.com/hupe1980/crewmesh/resilience"
	"github.com/hupe1980/crewmesh/review"
)

// Runtime is the tuning file for a crew session, decoded from TOML. Zero
// values defer to each subsystem's defaults.
type Runtime struct {
	Queue   QueueRuntime   `toml:"queue"`
	Breaker BreakerRuntime `toml:"breaker"`
	Memory  MemoryRuntime  `toml:"memory"`
	Review  ReviewRuntime  `toml:"review"`
	Store   StoreRuntime   `toml:"store"`
	Path    string         `toml:"-"`
}

type QueueRuntime struct {
	MaxConcurrent       int `toml:"max_concurrent"`
	MaxRetries          int `toml:"max_retries"`
	RetryDelayMS        int `toml:"retry_delay_ms"`
	ProcessingTimeoutMS int `toml:"processing_timeout_ms"`
	MaxQueueSize        int `toml:"max_queue_size"`
}

type BreakerRuntime struct {
	FailureThreshold int `toml:"failure_threshold"`
	ResetTimeoutMS   int `toml:"reset_timeout_ms"`
	SuccessThreshold int `toml:"success_threshold"`
}

type MemoryRuntime struct {
	MaxShortTermTurns   int     `toml:"max_short_term_turns"`
	MaxWorkingEntries   int     `toml:"max_working_entries"`
	MaxLongTermEntries  int     `toml:"max_long_term_entries"`
	ImportanceThreshold float64 `toml:"importance_threshold"`
}

type ReviewRuntime struct {
	AutoReviewThreshold float64 `toml:"auto_review_threshold"`
	ApprovalThreshold   float64 `toml:"approval_threshold"`
	MaxRevisions        int     `toml:"max_revisions"`
	TrackHistory        *bool   `toml:"track_history"`
}

type StoreRuntime struct {
	// DBPath points at the sqlite memory snapshot file. Empty disables
	// persistence.
	DBPath string `toml:"db_path"`
}

// LoadRuntime reads and decodes a TOML tuning file.
func LoadRuntime(path string) (Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Runtime{}, fmt.Errorf("read runtime config %s: %w", path, err)
	}
	var rt Runtime
	if _, err := toml.Decode(string(data), &rt); err != nil {
		return Runtime{}, fmt.Errorf("decode runtime config: %w", err)
	}
	rt.Path = path
	return rt, nil
}

// QueueConfig converts the queue section, filling gaps with defaults.
func (r Runtime) QueueConfig() queue.Config {
	cfg := queue.DefaultConfig()
	if r.Queue.MaxConcurrent > 0 {
		cfg.MaxConcurrent = r.Queue.MaxConcurrent
	}
	if r.Queue.MaxRetries > 0 {
		cfg.MaxRetries = r.Queue.MaxRetries
	}
	if r.Queue.RetryDelayMS > 0 {
		cfg.RetryDelay = time.Duration(r.Queue.RetryDelayMS) * time.Millisecond
	}
	if r.Queue.ProcessingTimeoutMS > 0 {
		cfg.ProcessingTimeout = time.Duration(r.Queue.ProcessingTimeoutMS) * time.Millisecond
	}
	if r.Queue.MaxQueueSize > 0 {
		cfg.MaxQueueSize = r.Queue.MaxQueueSize
	}
	return cfg
}

// BreakerConfig converts the breaker section, filling gaps with defaults.
func (r Runtime) BreakerConfig() resilience.BreakerConfig {
	cfg := resilience.DefaultBreakerConfig()
	if r.Breaker.FailureThreshold > 0 {
		cfg.FailureThreshold = r.Breaker.FailureThreshold
	}
	if r.Breaker.ResetTimeoutMS > 0 {
		cfg.ResetTimeout = time.Duration(r.Breaker.ResetTimeoutMS) * time.Millisecond
	}
	if r.Breaker.SuccessThreshold > 0 {
		cfg.SuccessThreshold = r.Breaker.SuccessThreshold
	}
	return cfg
}

// MemoryConfig converts the memory section, filling gaps with defaults.
func (r Runtime) MemoryConfig() memory.Config {
	cfg := memory.DefaultConfig()
	if r.Memory.MaxShortTermTurns > 0 {
		cfg.MaxShortTermTurns = r.Memory.MaxShortTermTurns
	}
	if r.Memory.MaxWorkingEntries > 0 {
		cfg.MaxWorkingEntries = r.Memory.MaxWorkingEntries
	}
	if r.Memory.MaxLongTermEntries > 0 {
		cfg.MaxLongTermEntries = r.Memory.MaxLongTermEntries
	}
	if r.Memory.ImportanceThreshold > 0 {
		cfg.ImportanceThreshold = r.Memory.ImportanceThreshold
	}
	return cfg
}

// ReviewConfig converts the review section, filling gaps with defaults.
func (r Runtime) ReviewConfig() review.Config {
	cfg := review.DefaultConfig()
	if r.Review.AutoReviewThreshold > 0 {
		cfg.AutoReviewThreshold = r.Review.AutoReviewThreshold
	}
	if r.Review.ApprovalThreshold > 0 {
		cfg.ApprovalThreshold = r.Review.ApprovalThreshold
	}
	if r.Review.MaxRevisions > 0 {
		cfg.MaxRevisions = r.Review.MaxRevisions
	}
	if r.Review.TrackHistory != nil {
		cfg.TrackHistory = *r.Review.TrackHistory
	}
	return cfg
}
