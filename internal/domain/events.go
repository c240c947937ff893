package domain

import "strings"

// EventType - внутренний числовой идентификатор события мира
type EventType uint8

const (
	EventUnknown EventType = iota
	EventTickAdvanced
	EventPropertyModified
	EventEntityCreated
	EventEntityDestroyed
	EventEntityTransferred
	EventTaskCreated
	EventTaskAssigned
	EventTaskProgressed
	EventTaskStatusChanged
	EventTaskFinished
	EventTaskInterrupted
	EventActionFailed
	EventExecutorError
	EventCustom
)

// Маппинг для конвертации данных -> Domain
var eventStringToType = map[string]EventType{
	"TICKADVANCED":      EventTickAdvanced,
	"PROPERTYMODIFIED":  EventPropertyModified,
	"ENTITYCREATED":     EventEntityCreated,
	"ENTITYDESTROYED":   EventEntityDestroyed,
	"ENTITYTRANSFERRED": EventEntityTransferred,
	"TASKCREATED":       EventTaskCreated,
	"TASKASSIGNED":      EventTaskAssigned,
	"TASKPROGRESSED":    EventTaskProgressed,
	"TASKSTATUSCHANGED": EventTaskStatusChanged,
	"TASKFINISHED":      EventTaskFinished,
	"TASKINTERRUPTED":   EventTaskInterrupted,
	"ACTIONFAILED":      EventActionFailed,
	"EXECUTORERROR":     EventExecutorError,
	"CUSTOM":            EventCustom,
}

// Маппинг для логов Domain -> String
var eventTypeToString = map[EventType]string{
	EventTickAdvanced:      "TickAdvanced",
	EventPropertyModified:  "PropertyModified",
	EventEntityCreated:     "EntityCreated",
	EventEntityDestroyed:   "EntityDestroyed",
	EventEntityTransferred: "EntityTransferred",
	EventTaskCreated:       "TaskCreated",
	EventTaskAssigned:      "TaskAssigned",
	EventTaskProgressed:    "TaskProgressed",
	EventTaskStatusChanged: "TaskStatusChanged",
	EventTaskFinished:      "TaskFinished",
	EventTaskInterrupted:   "TaskInterrupted",
	EventActionFailed:      "ActionFailed",
	EventExecutorError:     "ExecutorError",
	EventCustom:            "Custom",
}

// ParseEventType конвертирует строку в EventType
func ParseEventType(s string) EventType {
	if val, ok := eventStringToType[strings.ToUpper(s)]; ok {
		return val
	}
	return EventUnknown
}

func (t EventType) String() string {
	if val, ok := eventTypeToString[t]; ok {
		return val
	}
	return "Unknown"
}

func (t EventType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Event - неизменяемая запись журнала мира. Только добавление, никогда не мутируется.
// LocationID - снимок места события (для фильтра "видно в той же локации").
type Event struct {
	Seq        int64          `json:"seq"`
	Tick       int            `json:"tick"`
	Type       EventType      `json:"type"`
	LocationID string         `json:"locationId,omitempty"`
	ActorID    EntityID       `json:"actorId,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// InteractionRecord - запись уровня "попытка действия" (успех/провал).
// Снимки имен позволяют рендерить нарратив после уничтожения сущностей.
type InteractionRecord struct {
	Seq        int64         `json:"seq"`
	Tick       int           `json:"tick"`
	LocationID string        `json:"locationId,omitempty"`
	ActorID    EntityID      `json:"actorId"`
	ActorName  string        `json:"actorName"`
	Verb       string        `json:"verb"`
	TargetID   EntityID      `json:"targetId,omitempty"`
	TargetName string        `json:"targetName,omitempty"`
	RecipeID   string        `json:"recipeId,omitempty"`
	Status     string        `json:"status"`
	Reason     FailureReason `json:"reason,omitempty"`
}
