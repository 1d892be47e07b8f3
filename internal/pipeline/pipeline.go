package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/cliqcrawl/internal/fetcher"
	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/cliqcrawl/internal/parser"
)

// TaskState is what the steps of one task share. A step that settles the
// task's record calls Finish, and the remaining steps are skipped.
type TaskState struct {
	// Task is the task being processed.
	Task model.CrawlTask

	// Stop is the run's cancellation signal.
	Stop fetcher.StopSignal

	// Fetch is the primary fetch result, set by FetchStep.
	Fetch fetcher.Result

	// Parsed is the parse result, set by ParseStep.
	Parsed parser.Result

	// Record is the task's record once a step has produced one.
	Record model.Record

	finished bool
}

// NewTaskState creates the state for task.
func NewTaskState(task model.CrawlTask, stop fetcher.StopSignal) *TaskState {
	if stop == nil {
		stop = fetcher.NeverStop()
	}
	return &TaskState{Task: task, Stop: stop}
}

// Finish settles the record. Later steps do not run.
func (s *TaskState) Finish(rec model.Record) {
	s.Record = rec
	s.finished = true
}

// Finished reports whether the record is settled.
func (s *TaskState) Finished() bool {
	return s.finished
}

// Step is one stage of task processing.
type Step interface {
	// Do runs the step. Task-level failures are recorded through
	// TaskState.Finish; a returned error is an unexpected condition and
	// ends the task as a fatal failure.
	Do(ctx context.Context, state *TaskState) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order for a single task.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps until one settles the record or all have run.
// A step error settles the record as a fatal failure.
func (p *Pipeline) Execute(ctx context.Context, state *TaskState) {
	entry := state.Task.Entry
	for _, step := range p.steps {
		if state.Finished() {
			return
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"url", entry.Normalized,
		)

		if err := step.Do(ctx, state); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", entry.Normalized,
				"error", err,
			)
			rec := model.NewFailedRecord(state.Task.Slot, entry, model.FailureFatal, step.Name()+": "+err.Error())
			rec.Attempts = state.Fetch.Attempts
			state.Finish(rec)
			return
		}
	}

	if state.Finished() {
		return
	}
	if state.Record.Status == "" {
		state.Finish(model.NewFailedRecord(state.Task.Slot, entry, model.FailureFatal, "no step produced a record"))
		return
	}
	state.Finish(state.Record)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
