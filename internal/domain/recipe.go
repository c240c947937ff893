package domain

// ProgressContributor - вклад свойства компонента актора в скорость прогресса
type ProgressContributor struct {
	Component  string  `json:"component" yaml:"component"`
	Property   string  `json:"property" yaml:"property"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// Progression - конфигурация прогрессора, зашиваемая рецептом в задачу
type Progression struct {
	// Идентификатор прогрессора ("Linear" по умолчанию)
	Progressor   string                `json:"progressor" yaml:"progressor"`
	BasePerTick  float64               `json:"basePerTick" yaml:"base_progress_per_tick"`
	Contributors []ProgressContributor `json:"contributors,omitempty" yaml:"progress_contributors"`

	// Эффекты, применяемые каждый тик, пока задача активна
	TickEffects []EffectTemplate `json:"tickEffects,omitempty" yaml:"tick_effects"`
}

// Process - длительность рецепта. required_progress == 0 означает мгновенное действие.
type Process struct {
	RequiredProgress float64 `json:"requiredProgress" yaml:"required_progress"`
}

// Recipe - правило: (verb + предикаты цели/актора + параметры) -> эффекты.
// Матчинг - чистая функция: никакого скрытого состояния и случайности.
type Recipe struct {
	ID   string `json:"id" yaml:"-"`
	Verb string `json:"verb" yaml:"verb"`

	// Явный приоритет выбора. Тай-брейк - детерминированный порядок по ID.
	Priority int `json:"priority" yaml:"priority"`

	// Цель обязана иметь ВСЕ перечисленные теги
	TargetTags []string `json:"targetTags,omitempty" yaml:"target_tags"`
	// Актор обязан иметь перечисленные компоненты (предикат способностей)
	ActorComponents []string `json:"actorComponents,omitempty" yaml:"actor_components"`
	// Актор обязан иметь перечисленные теги
	ActorTags []string `json:"actorTags,omitempty" yaml:"actor_tags"`

	// JSON Schema для параметров запроса (валидируется при загрузке)
	ParamsSchema map[string]any `json:"paramsSchema,omitempty" yaml:"params_schema"`

	Process     Process      `json:"process" yaml:"process"`
	Progression *Progression `json:"progression,omitempty" yaml:"progression"`

	// Эффекты завершения (для мгновенных - применяются сразу)
	Outputs []EffectTemplate `json:"outputs,omitempty" yaml:"outputs"`
	// Эффекты отмены (применяются при прерывании задачи; обычно пусто)
	CancelEffects []EffectTemplate `json:"cancelEffects,omitempty" yaml:"cancel_effects"`

	// Нарративные шаблоны для журнала попыток ({actor}/{target}/{verb}/{reason})
	NarrativeSuccess string `json:"narrativeSuccess,omitempty" yaml:"narrative_success"`
	NarrativeFail    string `json:"narrativeFail,omitempty" yaml:"narrative_fail"`
}

// IsInstant - рецепт разрешается в том же тике, без создания задачи
func (r *Recipe) IsInstant() bool {
	return r.Process.RequiredProgress == 0
}
