package domain

import "sort"

// --- КОМПОНЕНТЫ ---

// Имена компонентов (используются в шаблонах сущностей и предикатах рецептов).
const (
	CompTag       = "TagComponent"
	CompContainer = "ContainerComponent"
	CompCreature  = "CreatureComponent"
	CompWorker    = "WorkerComponent"
	CompTaskHost  = "TaskHostComponent"
	CompArbiter   = "DecisionArbiterComponent"
	CompControl   = "AgentControlComponent"
)

// TagComponent - семантические метки для матчинга рецептов
type TagComponent struct {
	Tags []string `json:"tags" yaml:"tags"`
}

func (c *TagComponent) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SlotConfig - настройки одного слота контейнера
type SlotConfig struct {
	// Transparent: содержимое слота видно снаружи (см. perception)
	Transparent bool `json:"transparent" yaml:"transparent"`
	// CapacityCount - максимум предметов в слоте (0 = без лимита)
	CapacityCount int `json:"capacityCount" yaml:"capacity_count"`
	// AcceptedTags - предмет обязан иметь ВСЕ перечисленные теги
	AcceptedTags []string `json:"acceptedTags" yaml:"accepted_tags"`
}

// ContainerSlot - config + список ID содержимого (чистый ID-режим, без указателей)
type ContainerSlot struct {
	Config SlotConfig `json:"config" yaml:"config"`
	Items  []EntityID `json:"items" yaml:"items"`
}

// ContainerComponent - способность сущности содержать другие сущности.
// Вложенность образует лес: циклы запрещены (проверяется на уровне executor/world).
type ContainerComponent struct {
	Slots map[string]*ContainerSlot `json:"slots" yaml:"slots"`
}

// SlotNames возвращает имена слотов в детерминированном порядке.
// Обходы контейнера обязаны быть воспроизводимыми: порядок наблюдения
// влияет на решения скриптовых агентов, а значит и на реплей.
func (c *ContainerComponent) SlotNames() []string {
	names := make([]string, 0, len(c.Slots))
	for name := range c.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *ContainerComponent) AllItemIDs() []EntityID {
	var all []EntityID
	for _, name := range c.SlotNames() {
		all = append(all, c.Slots[name].Items...)
	}
	return all
}

func (c *ContainerComponent) HasItem(id EntityID) bool {
	for _, slot := range c.Slots {
		for _, it := range slot.Items {
			if it == id {
				return true
			}
		}
	}
	return false
}

func (c *ContainerComponent) RemoveItem(id EntityID) bool {
	for _, slot := range c.Slots {
		for i, it := range slot.Items {
			if it == id {
				slot.Items = append(slot.Items[:i], slot.Items[i+1:]...)
				return true
			}
		}
	}
	return false
}

// FindSlotFor возвращает первый подходящий слот для предмета (лимит + accepted_tags)
func (c *ContainerComponent) FindSlotFor(itemTags []string) *ContainerSlot {
	for _, name := range c.SlotNames() {
		slot := c.Slots[name]
		if slot.Config.CapacityCount > 0 && len(slot.Items) >= slot.Config.CapacityCount {
			continue
		}
		if !tagsAccepted(slot.Config.AcceptedTags, itemTags) {
			continue
		}
		return slot
	}
	return nil
}

func tagsAccepted(required, have []string) bool {
	for _, r := range required {
		found := false
		for _, h := range have {
			if h == r {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CreatureComponent - физиология (ресурсы, изменяемые эффектами и распадом)
type CreatureComponent struct {
	MaxHP        float64 `json:"maxHp" yaml:"max_hp"`
	MaxEnergy    float64 `json:"maxEnergy" yaml:"max_energy"`
	MaxNutrition float64 `json:"maxNutrition" yaml:"max_nutrition"`

	HP        float64 `json:"hp" yaml:"hp"`
	Energy    float64 `json:"energy" yaml:"energy"`
	Nutrition float64 `json:"nutrition" yaml:"nutrition"`

	// Пассивный распад за тик (0 = без распада)
	NutritionDecay float64 `json:"nutritionDecay" yaml:"nutrition_decay"`
	EnergyDecay    float64 `json:"energyDecay" yaml:"energy_decay"`

	initialized bool
}

// EnsureInitialized заполняет текущие значения максимумами при первом обращении
func (c *CreatureComponent) EnsureInitialized() {
	if c.initialized {
		return
	}
	if c.HP == 0 {
		c.HP = c.MaxHP
	}
	if c.Energy == 0 {
		c.Energy = c.MaxEnergy
	}
	if c.Nutrition == 0 {
		c.Nutrition = c.MaxNutrition
	}
	c.initialized = true
}

// Property возвращает числовое свойство по имени (для эффектов и прогрессоров)
func (c *CreatureComponent) Property(name string) (float64, bool) {
	switch name {
	case "hp":
		return c.HP, true
	case "energy":
		return c.Energy, true
	case "nutrition":
		return c.Nutrition, true
	case "max_hp":
		return c.MaxHP, true
	case "max_energy":
		return c.MaxEnergy, true
	case "max_nutrition":
		return c.MaxNutrition, true
	}
	return 0, false
}

// SetProperty пишет числовое свойство по имени
func (c *CreatureComponent) SetProperty(name string, v float64) bool {
	switch name {
	case "hp":
		c.HP = v
	case "energy":
		c.Energy = v
	case "nutrition":
		c.Nutrition = v
	case "max_hp":
		c.MaxHP = v
	case "max_energy":
		c.MaxEnergy = v
	case "max_nutrition":
		c.MaxNutrition = v
	default:
		return false
	}
	return true
}

// WorkerComponent - "право действия": текущая задача занимает актора
type WorkerComponent struct {
	CurrentTaskID string `json:"currentTaskId" yaml:"current_task_id"`
}

func (w *WorkerComponent) HasTask() bool {
	return w.CurrentTaskID != ""
}

func (w *WorkerComponent) AssignTask(taskID string) {
	w.CurrentTaskID = taskID
}

func (w *WorkerComponent) StopTask() {
	w.CurrentTaskID = ""
}

// TaskHostComponent - держатель списка задач (верстак, рабочая станция)
type TaskHostComponent struct {
	// task_id -> true (сами Task живут в World Store)
	TaskIDs map[string]bool `json:"taskIds" yaml:"task_ids"`
}

func (h *TaskHostComponent) AddTask(taskID string) {
	if h.TaskIDs == nil {
		h.TaskIDs = make(map[string]bool)
	}
	h.TaskIDs[taskID] = true
}

func (h *TaskHostComponent) RemoveTask(taskID string) {
	delete(h.TaskIDs, taskID)
}

// InterruptRuleSpec - данные одного правила арбитра (из шаблона)
type InterruptRuleSpec struct {
	Type      string  `json:"type" yaml:"type"`
	Priority  int     `json:"priority" yaml:"priority"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// DecisionArbiterComponent - набор правил прерывания.
// Правила проверяются в фиксированном порядке приоритета (меньше = раньше).
type DecisionArbiterComponent struct {
	Rules []InterruptRuleSpec `json:"rules" yaml:"rules"`
}

// AgentControlComponent - явное разрешение "этой сущностью управляет внешний решатель".
// Только сущности с этим компонентом попадают в цикл принятия решений.
type AgentControlComponent struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Идентификатор провайдера решений (policy/simple, ws/player, ...).
	// Пустой - используется провайдер по умолчанию.
	ProviderID string `json:"providerId" yaml:"provider_id"`
}
