package domain

// --- СУЩНОСТЬ ---

// Entity - объект мира. Смысл сущности определяется набором компонентов:
// если поле nil, значит способности нет.
type Entity struct {
	ID         EntityID `json:"id"`
	TemplateID string   `json:"templateId"`
	Name       string   `json:"name"`

	Volume float64 `json:"volume"`
	Weight float64 `json:"weight"`

	// Компоненты (nil = отсутствует)
	Tags      *TagComponent             `json:"tags,omitempty"`
	Container *ContainerComponent       `json:"container,omitempty"`
	Creature  *CreatureComponent        `json:"creature,omitempty"`
	Worker    *WorkerComponent          `json:"worker,omitempty"`
	TaskHost  *TaskHostComponent        `json:"taskHost,omitempty"`
	Arbiter   *DecisionArbiterComponent `json:"arbiter,omitempty"`
	Control   *AgentControlComponent    `json:"control,omitempty"`
}

// HasComponent проверяет способность по имени компонента.
// Набор компонентов - закрытое перечисление: новые типы добавляются сюда,
// а не через динамические атрибуты.
func (e *Entity) HasComponent(name string) bool {
	switch name {
	case CompTag:
		return e.Tags != nil
	case CompContainer:
		return e.Container != nil
	case CompCreature:
		return e.Creature != nil
	case CompWorker:
		return e.Worker != nil
	case CompTaskHost:
		return e.TaskHost != nil
	case CompArbiter:
		return e.Arbiter != nil
	case CompControl:
		return e.Control != nil
	}
	return false
}

// --- Tag helpers ---

func (e *Entity) HasTag(tag string) bool {
	if e.Tags == nil {
		return false
	}
	return e.Tags.HasTag(tag)
}

func (e *Entity) AllTags() []string {
	if e.Tags == nil {
		return nil
	}
	out := make([]string, len(e.Tags.Tags))
	copy(out, e.Tags.Tags)
	return out
}

// --- Container helpers ---

func (e *Entity) ContainerItemIDs() []EntityID {
	if e.Container == nil {
		return nil
	}
	return e.Container.AllItemIDs()
}

// IsOccupied - у актора есть активная задача (нельзя выдавать новый цикл решения)
func (e *Entity) IsOccupied() bool {
	return e.Worker != nil && e.Worker.HasTask()
}
