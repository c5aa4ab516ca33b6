package executor

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/crewmesh/core"
	"github.com/hupe1980/crewmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler records scheduled callbacks and fires them on demand in
// offset order, so playback tests never sleep.
type fakeScheduler struct {
	mu   sync.Mutex
	jobs []*fakeJob
}

type fakeJob struct {
	at        time.Duration
	fn        func()
	cancelled bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	job := &fakeJob{at: d, fn: f}
	s.jobs = append(s.jobs, job)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		job.cancelled = true
	}
}

// fire runs all pending jobs in schedule order.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	jobs := append([]*fakeJob(nil), s.jobs...)
	s.mu.Unlock()
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].at < jobs[j].at })
	for _, job := range jobs {
		s.mu.Lock()
		skip := job.cancelled
		s.mu.Unlock()
		if !skip {
			job.fn()
		}
	}
}

func noJitter(o *PlannerOptions) {
	o.Rand = func() float64 { return 0 }
}

func testCrew() []core.Agent {
	return []core.Agent{
		testutil.NewAgent("coord", core.RoleCoordinator),
		testutil.NewAgent("eng", core.RoleEngineer),
		testutil.NewAgent("res", core.RoleResearcher),
		testutil.NewAgent("ana", core.RoleAnalyst),
	}
}

func stepTypes(steps []Step) []StepType {
	out := make([]StepType, len(steps))
	for i, s := range steps {
		out[i] = s.Type
	}
	return out
}

func TestBuildPlan_CoordinatorBookendsPrimaryWork(t *testing.T) {
	plan := BuildPlan("fix the login bug", "eng", testCrew(), noJitter)

	require.Len(t, plan.Steps, 6)
	assert.Equal(t, []StepType{
		StepThinking, StepDelegating, StepThinking, StepWorking, StepReviewing, StepComplete,
	}, stepTypes(plan.Steps))

	assert.Equal(t, "coord", plan.Steps[0].AgentID)
	assert.Equal(t, "coord", plan.Steps[4].AgentID)
	assert.Equal(t, "eng", plan.Steps[5].AgentID)
	assert.Empty(t, plan.Delegations)
	assert.Equal(t, plan.FinalResponse, plan.Steps[5].Content)
}

func TestBuildPlan_OffsetsAreCumulative(t *testing.T) {
	plan := BuildPlan("fix the login bug", "eng", testCrew(), noJitter)

	// With zero jitter the durations are the base values.
	want := []time.Duration{600, 300, 800, 1200, 500, 0}
	var offset time.Duration
	for i, step := range plan.Steps {
		assert.Equal(t, want[i]*time.Millisecond, step.Duration, "step %d duration", i)
		assert.Equal(t, offset, step.Offset, "step %d offset", i)
		offset += step.Duration
	}
	assert.Equal(t, offset, plan.TotalDuration)
	assert.Equal(t, 3400*time.Millisecond, plan.TotalDuration)
}

func TestBuildPlan_EngineerDelegatesResearch(t *testing.T) {
	plan := BuildPlan("investigate why the cache misses spiked", "eng", testCrew(), noJitter)

	require.Len(t, plan.Delegations, 1)
	assert.Equal(t, Delegation{From: "eng", To: "res", Reason: "Need technical research before implementation"}, plan.Delegations[0])

	assert.Equal(t, []StepType{
		StepThinking, StepDelegating, // coordinator routes
		StepThinking, StepDelegating, // primary thinks, hands off
		StepThinking, StepWorking, // researcher works
		StepWorking,               // primary incorporates
		StepWorking, StepReviewing, StepComplete,
	}, stepTypes(plan.Steps))
}

func TestBuildPlan_DisabledDelegateTargetIsSkipped(t *testing.T) {
	agents := testCrew()
	for i := range agents {
		if agents[i].ID == "res" {
			agents[i].Enabled = false
		}
	}

	plan := BuildPlan("investigate why the cache misses spiked", "eng", agents, noJitter)
	assert.Empty(t, plan.Delegations)
	require.Len(t, plan.Steps, 6)
}

func TestBuildPlan_PrimaryCoordinatorHasNoBookends(t *testing.T) {
	plan := BuildPlan("status update please", "coord", testCrew(), noJitter)

	assert.Equal(t, []StepType{StepThinking, StepWorking, StepComplete}, stepTypes(plan.Steps))
	for _, step := range plan.Steps {
		assert.Equal(t, "coord", step.AgentID)
	}
}

func TestBuildPlan_UnknownPrimaryAgent(t *testing.T) {
	plan := BuildPlan("anything", "ghost", testCrew(), noJitter)

	assert.Empty(t, plan.Steps)
	assert.Zero(t, plan.TotalDuration)
	assert.Equal(t, "No agent available to handle this request.", plan.FinalResponse)
}

func TestExecutePlan_FiresStepsInOrder(t *testing.T) {
	plan := BuildPlan("fix the login bug", "eng", testCrew(), noJitter)
	sched := &fakeScheduler{}

	var indices []int
	completed := false
	ExecutePlan(plan,
		func(_ Step, i int) { indices = append(indices, i) },
		func(p Plan) {
			completed = true
			assert.Equal(t, plan.ID, p.ID)
		},
		func(o *ExecutorOptions) { o.Scheduler = sched },
	)
	sched.fire()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, indices)
	assert.True(t, completed)
}

func TestExecutePlan_CancelStopsPlayback(t *testing.T) {
	plan := BuildPlan("fix the login bug", "eng", testCrew(), noJitter)
	sched := &fakeScheduler{}

	var fired int
	completed := false
	cancel := ExecutePlan(plan,
		func(_ Step, _ int) { fired++ },
		func(Plan) { completed = true },
		func(o *ExecutorOptions) { o.Scheduler = sched },
	)

	cancel()
	sched.fire()

	assert.Zero(t, fired)
	assert.False(t, completed)
}

func TestExecutePlan_EmptyPlanCompletesImmediately(t *testing.T) {
	completed := false
	cancel := ExecutePlan(Plan{ID: "empty"}, nil, func(Plan) { completed = true })
	cancel()
	assert.True(t, completed)
}

func TestRespond_EngineerCodePlan(t *testing.T) {
	r := Respond(core.RoleEngineer, "implement the new api endpoint")
	assert.Nil(t, r.Delegate)
	assert.Contains(t, r.Answer, "Technical implementation plan")
	assert.Contains(t, r.Answer, "Low-Medium")
}

func TestRespond_EngineerComplexityScalesWithInput(t *testing.T) {
	long := "implement the new api endpoint with pagination, caching, rate limiting, auth and full audit logging for every caller"
	r := Respond(core.RoleEngineer, long)
	assert.Contains(t, r.Answer, "Medium-High")
}

func TestRespond_ResearcherDelegatesQuantitativeWork(t *testing.T) {
	r := Respond(core.RoleResearcher, "pull the usage stats for last month")
	require.NotNil(t, r.Delegate)
	assert.Equal(t, core.RoleAnalyst, r.Delegate.ToRole)
}

func TestRespond_SupportDetectsIssues(t *testing.T) {
	r := Respond(core.RoleSupport, "my dashboard is broken")
	assert.Contains(t, r.Answer, "I'm here to help!")

	r = Respond(core.RoleSupport, "just saying hi")
	assert.Contains(t, r.Answer, "Happy to help!")
}

func TestRespond_UnknownRoleFallsBackToSupport(t *testing.T) {
	r := Respond(core.Role("mystery"), "hello there")
	assert.Contains(t, r.Answer, "Happy to help!")
}
