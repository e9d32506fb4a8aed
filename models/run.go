package models

import "time"

// RunState is the lifecycle state of a DAG run or task instance.
type RunState string

const (
	StateRunning        RunState = "running"
	StateSuccess        RunState = "success"
	StateFailed         RunState = "failed"
	StateUpRetry        RunState = "up_for_retry"
	StateUpstreamFailed RunState = "upstream_failed"
)

// DAGRun is one execution of the crawler DAG.
type DAGRun struct {
	ID          string
	DAGID       string
	LogicalDate time.Time
	State       RunState
	StartedAt   time.Time
	EndedAt     *time.Time
}

// TaskInstance is one attempt of a task inside a DAG run.
type TaskInstance struct {
	RunID     string
	TaskID    string
	Attempt   int
	State     RunState
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}
