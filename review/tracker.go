package review

import (
	"sort"
	"sync"
	"time"
)

// Performance aggregates review outcomes for one agent. AverageScore is a
// rolling average over the last ten reviews.
type Performance struct {
	AgentID       string
	TotalReviews  int
	ApprovedCount int
	RevisionCount int
	RejectedCount int
	AverageScore  float64
	RecentScores  []float64
	LastReviewAt  time.Time
}

// CrewQuality summarizes review outcomes across the whole crew.
type CrewQuality struct {
	AverageScore    float64
	TotalReviews    int
	ApprovalRate    float64
	TopPerformer    string
	BottomPerformer string
}

const recentScoreWindow = 10

// Tracker records review results and derives per-agent performance. It is
// safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	cfg         Config
	performance map[string]*Performance
	history     []Result
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	Config Config
}

// NewTracker creates an empty tracker.
func NewTracker(optFns ...func(o *TrackerOptions)) *Tracker {
	opts := TrackerOptions{Config: DefaultConfig()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tracker{
		cfg:         opts.Config,
		performance: make(map[string]*Performance),
	}
}

// Record folds one review into the agent's performance and, when history
// tracking is on, the crew-wide history.
func (t *Tracker) Record(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.TrackHistory {
		t.history = append(t.history, result)
	}

	perf, ok := t.performance[result.AgentID]
	if !ok {
		perf = &Performance{AgentID: result.AgentID}
		t.performance[result.AgentID] = perf
	}

	perf.TotalReviews++
	perf.LastReviewAt = result.Timestamp

	switch result.Verdict {
	case VerdictApproved:
		perf.ApprovedCount++
	case VerdictNeedsRevision:
		perf.RevisionCount++
	case VerdictRejected, VerdictEscalated:
		perf.RejectedCount++
	}

	perf.RecentScores = append(perf.RecentScores, result.Score)
	if len(perf.RecentScores) > recentScoreWindow {
		perf.RecentScores = perf.RecentScores[len(perf.RecentScores)-recentScoreWindow:]
	}

	sum := 0.0
	for _, s := range perf.RecentScores {
		sum += s
	}
	perf.AverageScore = sum / float64(len(perf.RecentScores))
}

// Performance returns a copy of the agent's performance, or false when no
// review has been recorded for it.
func (t *Tracker) Performance(agentID string) (Performance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	perf, ok := t.performance[agentID]
	if !ok {
		return Performance{}, false
	}
	return copyPerformance(perf), true
}

// Leaderboard returns all agent performances sorted best first.
func (t *Tracker) Leaderboard() []Performance {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Performance, 0, len(t.performance))
	for _, perf := range t.performance {
		out = append(out, copyPerformance(perf))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].AgentID < out[j].AgentID
	})
	return out
}

// ShouldEscalate reports whether the agent's last three reviews all fell
// below the rejection threshold. Fewer than three reviews never escalate.
func (t *Tracker) ShouldEscalate(agentID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	perf, ok := t.performance[agentID]
	if !ok || len(perf.RecentScores) < 3 {
		return false
	}
	for _, s := range perf.RecentScores[len(perf.RecentScores)-3:] {
		if s >= t.cfg.AutoReviewThreshold {
			return false
		}
	}
	return true
}

// History returns all recorded reviews for one agent, oldest first.
func (t *Tracker) History(agentID string) []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Result
	for _, r := range t.history {
		if r.AgentID == agentID {
			out = append(out, r)
		}
	}
	return out
}

// RecentReviews returns the last count reviews across all agents.
func (t *Tracker) RecentReviews(count int) []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if count <= 0 || count > len(t.history) {
		count = len(t.history)
	}
	out := make([]Result, count)
	copy(out, t.history[len(t.history)-count:])
	return out
}

// Quality returns crew-wide quality stats. An empty tracker yields zeroes
// and no performers.
func (t *Tracker) Quality() CrewQuality {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.performance) == 0 {
		return CrewQuality{}
	}

	perfs := make([]Performance, 0, len(t.performance))
	for _, perf := range t.performance {
		perfs = append(perfs, copyPerformance(perf))
	}
	sort.SliceStable(perfs, func(i, j int) bool {
		if perfs[i].AverageScore != perfs[j].AverageScore {
			return perfs[i].AverageScore > perfs[j].AverageScore
		}
		return perfs[i].AgentID < perfs[j].AgentID
	})

	total, approved, scoreSum := 0, 0, 0.0
	for _, p := range perfs {
		total += p.TotalReviews
		approved += p.ApprovedCount
		scoreSum += p.AverageScore
	}

	q := CrewQuality{
		AverageScore:    scoreSum / float64(len(perfs)),
		TotalReviews:    total,
		TopPerformer:    perfs[0].AgentID,
		BottomPerformer: perfs[len(perfs)-1].AgentID,
	}
	if total > 0 {
		q.ApprovalRate = float64(approved) / float64(total)
	}
	return q
}

func copyPerformance(p *Performance) Performance {
	out := *p
	out.RecentScores = append([]float64(nil), p.RecentScores...)
	return out
}
