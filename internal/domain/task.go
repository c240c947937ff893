package domain

// Task - растянутое во времени исполнение совпавшего рецепта.
// Создается пайплайном, продвигается каждый тик, уничтожается при
// завершении или прерывании. Progress монотонно неубывает и не
// превышает RequiredProgress, пока задача активна.
type Task struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"` // verb рецепта
	RecipeID string   `json:"recipeId"`
	TargetID EntityID `json:"targetId"`
	OwnerID  EntityID `json:"ownerId"` // актор, занятый задачей

	Progress         float64 `json:"progress"`
	RequiredProgress float64 `json:"requiredProgress"`

	Status     TaskStatus     `json:"status"`
	Parameters map[string]any `json:"parameters,omitempty"`

	// Конфигурация прогрессора, зашитая рецептом при создании
	ProgressorID string                `json:"progressorId,omitempty"`
	BasePerTick  float64               `json:"basePerTick,omitempty"`
	Contributors []ProgressContributor `json:"contributors,omitempty"`

	// Связанные шаблоны эффектов (записаны при создании, читаются пайплайном)
	TickEffects       []EffectTemplate `json:"tickEffects,omitempty"`
	CompletionEffects []EffectTemplate `json:"completionEffects,omitempty"`
	CancelEffects     []EffectTemplate `json:"cancelEffects,omitempty"`
}

func (t *Task) IsComplete() bool {
	return t.Progress >= t.RequiredProgress
}

func (t *Task) RemainingProgress() float64 {
	if rem := t.RequiredProgress - t.Progress; rem > 0 {
		return rem
	}
	return 0
}
