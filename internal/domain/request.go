package domain

// Request - предложение действия: verb + цель + параметры.
// Это еще НЕ провалидированное намерение; валидация - дело recipe engine.
type Request struct {
	Verb       string         `json:"verb"`
	TargetID   EntityID       `json:"targetId"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Outcome - результат SubmitRequest: успех (со сводкой эффектов/задачи)
// либо типизированный код осечки.
type Outcome struct {
	Status   string        `json:"status"` // "success" | "failed"
	Reason   FailureReason `json:"reason,omitempty"`
	RecipeID string        `json:"recipeId,omitempty"`
	TaskID   string        `json:"taskId,omitempty"`
	// Количество примененных эффектов (для мгновенных действий)
	EffectsApplied int `json:"effectsApplied,omitempty"`
}

func (o Outcome) OK() bool {
	return o.Status == "success"
}
