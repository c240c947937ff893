package domain

// ReplayRequest - запись одного внешнего запроса (от решателя/игрока)
type ReplayRequest struct {
	Tick       int            `json:"tick"`
	ActorID    EntityID       `json:"actorId"`
	Verb       string         `json:"verb"`
	TargetID   EntityID       `json:"targetId"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ReplaySession - полная лента запросов одного прогона.
// Реплей того же начального мира против той же ленты обязан
// воспроизвести идентичный журнал событий и финальное состояние.
type ReplaySession struct {
	Seed      int64           `json:"seed"`
	Timestamp int64           `json:"timestamp"`
	WorldName string          `json:"worldName"`
	Requests  []ReplayRequest `json:"requests"`
}
