// Package simulate generates synthetic multi-agent traffic through the public
// logging façade. It exists to exercise the full write path (rotation,
// retention, concurrency) with realistic event shapes, both from the CLI and
// from integration tests.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sundog-ai/chronicle/internal/logger"
)

// Options controls a simulation run.
type Options struct {
	Sessions    int
	Concurrency int   // concurrent sessions; defaults to 4
	Seed        int64 // 0 seeds from Sessions for repeatability

	// OnSessionDone, when set, is called after each completed session.
	OnSessionDone func(sessionID string)
}

// Report summarizes a simulation run.
type Report struct {
	Sessions int
	Events   int64
}

var (
	agents    = []string{"coordinator", "planner", "researcher", "coder", "reporter"}
	tools     = []string{"web_search", "crawl", "python_repl", "retriever"}
	llmModels = []string{"gpt-4o", "claude-sonnet", "qwen-max"}
	questions = []string{
		"Summarize recent progress in fusion energy",
		"Compare vector database architectures",
		"What changed in the EU AI Act final text?",
		"Outline a migration plan from REST to gRPC",
	}
)

// Run drives Options.Sessions synthetic research sessions through the logger.
// Each session emits the interaction, workflow, agent, tool, and performance
// events a real run would produce.
func Run(ctx context.Context, lg *logger.Logger, opts Options) (Report, error) {
	if opts.Sessions < 1 {
		return Report{}, fmt.Errorf("simulate.Run: sessions must be >= 1, got %d", opts.Sessions)
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	seed := opts.Seed
	if seed == 0 {
		seed = int64(opts.Sessions)
	}

	var events atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range opts.Sessions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed + int64(i))) //nolint:gosec // synthetic data only
			session := logger.NewSession(fmt.Sprintf("user-%03d", i%7))
			n, err := runSession(lg.WithSession(session), rng)
			events.Add(n)
			if err != nil {
				return err
			}
			if opts.OnSessionDone != nil {
				opts.OnSessionDone(session.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("simulate.Run: %w", err)
	}

	return Report{Sessions: opts.Sessions, Events: events.Load()}, nil
}

// runSession emits one plausible research-session event sequence.
func runSession(lg *logger.Logger, rng *rand.Rand) (int64, error) {
	var n int64
	emit := func(err error) error {
		if err != nil {
			return err
		}
		n++
		return nil
	}

	question := questions[rng.Intn(len(questions))]
	if err := emit(lg.LogInteraction(logger.Interaction{
		Type:    "user_message",
		UserID:  lg.Session().UserID,
		Message: question,
	})); err != nil {
		return n, err
	}

	if err := emit(lg.LogWorkflowEvent(logger.WorkflowEvent{
		WorkflowType: "research",
		NodeName:     "planner",
		Status:       "started",
	})); err != nil {
		return n, err
	}

	steps := 2 + rng.Intn(3)
	for s := 0; s < steps; s++ {
		agent := agents[rng.Intn(len(agents))]
		if err := emit(lg.LogAgentActivity(logger.AgentActivity{
			Agent:            agent,
			Action:           "llm_call",
			LLMModel:         llmModels[rng.Intn(len(llmModels))],
			PromptTokens:     200 + rng.Intn(1800),
			CompletionTokens: 50 + rng.Intn(950),
			DurationMS:       float64(120 + rng.Intn(4000)),
		})); err != nil {
			return n, err
		}

		tool := tools[rng.Intn(len(tools))]
		usage := logger.ToolUsage{
			ToolName:   tool,
			Agent:      agent,
			Success:    rng.Float64() > 0.08,
			DurationMS: float64(40 + rng.Intn(2500)),
			Input:      map[string]any{"query": question, "step": s},
		}
		if !usage.Success {
			usage.Error = "timeout"
		}
		if err := emit(lg.LogToolUsage(usage)); err != nil {
			return n, err
		}
	}

	status := "completed"
	if rng.Float64() < 0.05 {
		status = "error"
	}
	we := logger.WorkflowEvent{
		WorkflowType: "research",
		NodeName:     "reporter",
		Status:       status,
		DurationMS:   float64(1500 + rng.Intn(20000)),
	}
	if status == "error" {
		we.Error = "report generation failed"
	}
	if err := emit(lg.LogWorkflowEvent(we)); err != nil {
		return n, err
	}

	if err := emit(lg.LogPerformanceMetric(logger.PerformanceMetric{
		Name:  "session_total",
		Value: float64(2000 + rng.Intn(30000)),
		Unit:  "ms",
	})); err != nil {
		return n, err
	}

	return n, nil
}
