// Package scheduler runs a DAG of sequential tasks with per-task retries,
// once or on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ali-crawler/metrics"
	"ali-crawler/models"
	"ali-crawler/utils"
	"ali-crawler/xcom"
)

// TaskFunc executes one task. A non-nil result is pushed to XCom under the
// task id.
type TaskFunc func(ctx context.Context, tc *TaskContext) (any, error)

// Task is a named step of a DAG.
type Task struct {
	ID  string
	Run TaskFunc
}

// DAG is an ordered list of tasks; every task depends on the one before it.
type DAG struct {
	ID    string
	Tasks []Task
}

// Recorder persists run history.
type Recorder interface {
	StartRun(ctx context.Context, run *models.DAGRun) error
	FinishRun(ctx context.Context, runID string, state models.RunState, endedAt time.Time) error
	RecordTask(ctx context.Context, ti models.TaskInstance) error
}

// Options configures a Scheduler.
type Options struct {
	// Retries is the number of extra attempts after a failed one.
	Retries    int
	RetryDelay time.Duration
	XCom       xcom.Store
	// Recorder is optional.
	Recorder Recorder
	Logger   *utils.Logger
}

// TaskContext carries the run metadata into a task.
type TaskContext struct {
	RunID       string
	DAGID       string
	TaskID      string
	LogicalDate time.Time
	Attempt     int
	Logger      *utils.Logger
	xcom        xcom.Store
}

// Pull decodes the value pushed by an upstream task into v.
func (tc *TaskContext) Pull(ctx context.Context, taskID string, v any) error {
	return xcom.PullJSON(ctx, tc.xcom, tc.RunID, taskID, v)
}

// Scheduler executes a DAG.
type Scheduler struct {
	dag  *DAG
	opts Options
}

func New(dag *DAG, opts Options) *Scheduler {
	if opts.XCom == nil {
		opts.XCom = xcom.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NopLogger()
	}
	return &Scheduler{dag: dag, opts: opts}
}

// RunOnce executes every task in order. The first task that still fails after
// its retries stops the run, and every later task is marked upstream_failed.
func (s *Scheduler) RunOnce(ctx context.Context, logicalDate time.Time) (*models.DAGRun, error) {
	run := &models.DAGRun{
		ID:          uuid.NewString(),
		DAGID:       s.dag.ID,
		LogicalDate: logicalDate,
		State:       models.StateRunning,
		StartedAt:   time.Now(),
	}
	logger := s.opts.Logger.With("dag_id", s.dag.ID).With("run_id", run.ID)
	logger.Info("[scheduler] Starting run of %s for %s", s.dag.ID, logicalDate.Format("2006-01-02"))
	s.record(logger, func(r Recorder) error { return r.StartRun(ctx, run) })

	var runErr error
	for i, task := range s.dag.Tasks {
		if runErr != nil {
			s.markUpstreamFailed(ctx, logger, run.ID, s.dag.Tasks[i:])
			break
		}
		runErr = s.runTask(ctx, logger, run, task)
	}

	run.State = models.StateSuccess
	if runErr != nil {
		run.State = models.StateFailed
	}
	ended := time.Now()
	run.EndedAt = &ended
	s.record(logger, func(r Recorder) error { return r.FinishRun(context.WithoutCancel(ctx), run.ID, run.State, ended) })

	if runErr != nil {
		logger.Error("[scheduler] Run %s failed: %v", run.ID, runErr)
		return run, runErr
	}
	logger.Info("[scheduler] Run %s succeeded in %v", run.ID, ended.Sub(run.StartedAt).Round(time.Millisecond))
	return run, nil
}

func (s *Scheduler) runTask(ctx context.Context, logger *utils.Logger, run *models.DAGRun, task Task) error {
	taskLogger := logger.With("task_id", task.ID)
	maxAttempts := s.opts.Retries + 1
	var attemptStart time.Time

	retry := &utils.RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   s.opts.RetryDelay,
		Logger:      taskLogger,
		OnAttempt: func(attempt int, err error) {
			ended := time.Now()
			state := models.StateSuccess
			msg := ""
			if err != nil {
				msg = err.Error()
				state = models.StateFailed
				if attempt < maxAttempts && ctx.Err() == nil {
					state = models.StateUpRetry
				}
			}
			metrics.TaskRuns.WithLabelValues(s.dag.ID, task.ID, string(state)).Inc()
			metrics.TaskDuration.WithLabelValues(s.dag.ID, task.ID).Observe(ended.Sub(attemptStart).Seconds())
			s.record(taskLogger, func(r Recorder) error {
				return r.RecordTask(context.WithoutCancel(ctx), models.TaskInstance{
					RunID: run.ID, TaskID: task.ID, Attempt: attempt, State: state,
					Error: msg, StartedAt: attemptStart, EndedAt: ended,
				})
			})
		},
	}

	return retry.Do(ctx, task.ID, func(attempt int) error {
		attemptStart = time.Now()
		taskLogger.Info("[scheduler] Running %s (attempt %d/%d)", task.ID, attempt, maxAttempts)

		tc := &TaskContext{
			RunID:       run.ID,
			DAGID:       s.dag.ID,
			TaskID:      task.ID,
			LogicalDate: run.LogicalDate,
			Attempt:     attempt,
			Logger:      taskLogger,
			xcom:        s.opts.XCom,
		}
		result, err := runSafely(ctx, task, tc)
		if err != nil {
			return err
		}
		if result != nil {
			if err := xcom.PushJSON(ctx, s.opts.XCom, run.ID, task.ID, result); err != nil {
				return err
			}
		}
		return nil
	})
}

// runSafely converts a panicking task into a failed attempt.
func runSafely(ctx context.Context, task Task, tc *TaskContext) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.ID, r)
		}
	}()
	return task.Run(ctx, tc)
}

func (s *Scheduler) markUpstreamFailed(ctx context.Context, logger *utils.Logger, runID string, tasks []Task) {
	now := time.Now()
	for _, t := range tasks {
		logger.Warn("[scheduler] Skipping %s: upstream failed", t.ID)
		metrics.TaskRuns.WithLabelValues(s.dag.ID, t.ID, string(models.StateUpstreamFailed)).Inc()
		s.record(logger, func(r Recorder) error {
			return r.RecordTask(context.WithoutCancel(ctx), models.TaskInstance{
				RunID: runID, TaskID: t.ID, State: models.StateUpstreamFailed, StartedAt: now, EndedAt: now,
			})
		})
	}
}

func (s *Scheduler) record(logger *utils.Logger, fn func(Recorder) error) {
	if s.opts.Recorder == nil {
		return
	}
	if err := fn(s.opts.Recorder); err != nil {
		logger.Warn("[scheduler] Could not record run history: %v", err)
	}
}

// RunEvery runs the DAG immediately and then once per interval until ctx is
// cancelled. Failed runs are logged and do not stop the schedule.
func (s *Scheduler) RunEvery(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %v", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx, time.Now()); err != nil && errors.Is(err, context.Canceled) {
			return nil
		}

		select {
		case <-ctx.Done():
			s.opts.Logger.Info("[scheduler] Schedule stopped")
			return nil
		case <-ticker.C:
		}
	}
}
