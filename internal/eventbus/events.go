package eventbus

import "time"

// Task execution event types.
const (
	TaskStarted  = "task.started"
	TaskFinished = "task.finished"
	TaskFailed   = "task.failed"
	TaskPanic    = "task.panic"
)

// TaskEvent is the Data of every task.* event.
type TaskEvent struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Terminal reports whether typ ends an invocation.
func Terminal(typ string) bool {
	return typ == TaskFinished || typ == TaskFailed || typ == TaskPanic
}
