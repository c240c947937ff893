package domain

// EntityID - строковый идентификатор сущности.
// Сущность сама по себе не несет данных: её "смысл" определяется набором компонентов.
type EntityID string

func (id EntityID) String() string {
	return string(id)
}

// TaskStatus - статус задачи
type TaskStatus string

const (
	TaskInactive   TaskStatus = "Inactive"
	TaskInProgress TaskStatus = "InProgress"
	TaskPaused     TaskStatus = "Paused"
	TaskCompleted  TaskStatus = "Completed"
	TaskCancelled  TaskStatus = "Cancelled"
)
