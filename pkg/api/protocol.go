package api

import (
	"encoding/json"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/perception"
)

// --- КЛИЕНТ -> СЕРВЕР ---

// ClientCommand - корневой объект всех сообщений от клиента.
type ClientCommand struct {
	// Token - ID сущности, от имени которой действует клиент.
	// Обязателен в первом сообщении "LOGIN".
	Token string `json:"token,omitempty"`

	// Action: LOGIN | ACT | OBSERVE
	Action string `json:"action"`

	// Payload - JSON-объект, структура зависит от Action
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ActPayload - предложение действия ("предложение, не приказ":
// сервер может отклонить его типизированной осечкой)
type ActPayload struct {
	Verb       string         `json:"verb"`
	TargetID   string         `json:"targetId"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// --- СЕРВЕР -> КЛИЕНТ ---

// Типы ответов сервера
const (
	ResponseInit        = "INIT"
	ResponseObservation = "OBSERVATION"
	ResponseOutcome     = "OUTCOME"
	ResponseError       = "ERROR"
)

// ServerResponse - корневой объект сообщений сервера.
// Наблюдение - ЕДИНСТВЕННОЕ, что клиент видит о мире: сервер не должен
// пропускать сюда сущности за пределами видимости агента.
type ServerResponse struct {
	Type string `json:"type"`
	Tick int    `json:"tick"`

	// MyEntityID - сущность, которой управляет этот клиент
	MyEntityID string `json:"myEntityId,omitempty"`

	Observation *perception.Observation `json:"observation,omitempty"`

	// Результат последнего ACT этого клиента
	Outcome *domain.Outcome `json:"outcome,omitempty"`

	Error string `json:"error,omitempty"`
}
