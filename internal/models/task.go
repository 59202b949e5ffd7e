package models

import "time"

type TaskType string

const (
	TaskUserCreated   TaskType = "user.created"
	TaskUserUpdated   TaskType = "user.updated"
	TaskUserDeleted   TaskType = "user.deleted"
	TaskFlushSessions TaskType = "sessions.flush"
	TaskExportUsers   TaskType = "users.export"
)

// Task is one entry on the account event stream. UserID is zero for tasks that are not
// about a single user.
type Task struct {
	ID        string
	Type      TaskType
	UserID    int32
	CreatedAt time.Time
}
