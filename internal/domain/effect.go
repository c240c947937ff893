package domain

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// EffectType - внутренний числовой идентификатор эффекта.
// Эффекты - ЕДИНСТВЕННЫЙ путь мутации мира. Набор закрытый:
// новые виды добавляются сюда и в executor, а не ad hoc в других местах.
type EffectType uint8

const (
	EffectUnknown EffectType = iota
	EffectModifyProperty
	EffectSetProperty
	EffectCreateEntity
	EffectDestroyEntity
	EffectTransferEntity
	EffectConsumeInputs
	EffectCreateTask
	EffectProgressTask
	EffectUpdateTaskStatus
	EffectFinishTask
	EffectCancelTask
	EffectEmitEvent
)

// Маппинг для конвертации YAML/JSON -> Domain
var effectStringToType = map[string]EffectType{
	"MODIFYPROPERTY":   EffectModifyProperty,
	"SETPROPERTY":      EffectSetProperty,
	"CREATEENTITY":     EffectCreateEntity,
	"DESTROYENTITY":    EffectDestroyEntity,
	"TRANSFERENTITY":   EffectTransferEntity,
	"CONSUMEINPUTS":    EffectConsumeInputs,
	"CREATETASK":       EffectCreateTask,
	"PROGRESSTASK":     EffectProgressTask,
	"UPDATETASKSTATUS": EffectUpdateTaskStatus,
	"FINISHTASK":       EffectFinishTask,
	"CANCELTASK":       EffectCancelTask,
	"EMITEVENT":        EffectEmitEvent,
}

// Маппинг для логов Domain -> String
var effectTypeToString = map[EffectType]string{
	EffectModifyProperty:   "ModifyProperty",
	EffectSetProperty:      "SetProperty",
	EffectCreateEntity:     "CreateEntity",
	EffectDestroyEntity:    "DestroyEntity",
	EffectTransferEntity:   "TransferEntity",
	EffectConsumeInputs:    "ConsumeInputs",
	EffectCreateTask:       "CreateTask",
	EffectProgressTask:     "ProgressTask",
	EffectUpdateTaskStatus: "UpdateTaskStatus",
	EffectFinishTask:       "FinishTask",
	EffectCancelTask:       "CancelTask",
	EffectEmitEvent:        "EmitEvent",
}

// ParseEffect конвертирует строку из данных в EffectType
func ParseEffect(s string) EffectType {
	// Нечувствительность к регистру для надежности данных
	if val, ok := effectStringToType[strings.ToUpper(s)]; ok {
		return val
	}
	return EffectUnknown
}

func (t EffectType) String() string {
	if val, ok := effectTypeToString[t]; ok {
		return val
	}
	return "Unknown"
}

// UnmarshalYAML позволяет писать вид эффекта строкой в Recipes.yaml
func (t *EffectType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*t = ParseEffect(s)
	return nil
}

// MarshalJSON сериализует вид эффекта строкой (читаемость логов)
func (t EffectType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Destination - куда помещать созданную/перемещаемую сущность
type Destination struct {
	// "location" или "container"
	Type string `json:"type" yaml:"type"`
	// Символьная ссылка ("actor", "target") либо явный ID
	Target string `json:"target" yaml:"target"`
}

// EffectTemplate - один атомарный оператор изменения состояния.
// Target/Source/Destination - символьные ссылки, связываемые контекстом
// ("actor", "target") в момент применения.
type EffectTemplate struct {
	Effect EffectType `json:"effect" yaml:"effect"`

	// Общая цель ("actor" | "target" | явный EntityID)
	Target string `json:"target,omitempty" yaml:"target"`

	// ModifyProperty / SetProperty
	Component string  `json:"component,omitempty" yaml:"component"`
	Property  string  `json:"property,omitempty" yaml:"property"`
	Change    float64 `json:"change,omitempty" yaml:"change"`
	Value     float64 `json:"value,omitempty" yaml:"value"`

	// CreateEntity
	Template    string       `json:"template,omitempty" yaml:"template"`
	Destination *Destination `json:"destination,omitempty" yaml:"destination"`

	// TransferEntity
	Source string `json:"source,omitempty" yaml:"source"`

	// ProgressTask / UpdateTaskStatus
	Delta  float64 `json:"delta,omitempty" yaml:"delta"`
	Status string  `json:"status,omitempty" yaml:"status"`

	// EmitEvent
	EventType string         `json:"eventType,omitempty" yaml:"event_type"`
	Payload   map[string]any `json:"payload,omitempty" yaml:"payload"`
}

// EffectContext - связывание символьных ссылок шаблона с конкретными ID.
// Передается по значению: хендлеры не делят скрытое состояние.
type EffectContext struct {
	ActorID  EntityID
	TargetID EntityID
	TaskID   string
	RecipeID string

	// Параметры исходного запроса (пробрасываются в создаваемую задачу)
	Params map[string]any

	// Сущности на расход для ConsumeInputs
	ConsumeIDs []EntityID

	// Дополнительные ссылки (например, entity_to_destroy при каскадах)
	Refs map[string]EntityID
}

// Resolve возвращает конкретный EntityID для символьной ссылки шаблона
func (c EffectContext) Resolve(key string) EntityID {
	switch key {
	case "", "target":
		return c.TargetID
	case "actor", "agent":
		return c.ActorID
	}
	if c.Refs != nil {
		if id, ok := c.Refs[key]; ok {
			return id
		}
	}
	// Явный ID в шаблоне
	return EntityID(key)
}
