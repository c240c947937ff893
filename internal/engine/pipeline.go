package engine

import (
	"github.com/sirupsen/logrus"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/executor"
	"sandbox-server/internal/interaction"
	"sandbox-server/internal/world"
	"sandbox-server/pkg/logger"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Pipeline - путь одного запроса: занятость -> матчинг -> эффекты/задача.
// Общий для внешних запросов (WS) и внутренних решений планировщика.
type Pipeline struct {
	exec    *executor.Executor
	matcher *interaction.Engine
}

func NewPipeline(exec *executor.Executor, matcher *interaction.Engine) *Pipeline {
	return &Pipeline{exec: exec, matcher: matcher}
}

// Handle исполняет один запрос актора.
// Любой исход (успех и провал) фиксируется в журнале попыток:
// нарратив осечек виден соседям по локации так же, как успехи.
func (p *Pipeline) Handle(ws *world.Store, actorID domain.EntityID, req domain.Request) domain.Outcome {
	actor := ws.Entity(actorID)
	if actor == nil {
		return domain.Outcome{Status: statusFailed, Reason: domain.FailureNoTarget}
	}

	// Занятая сущность не получает вторую параллельную задачу
	if actor.IsOccupied() {
		ws.RecordInteraction(actorID, req.Verb, req.TargetID, statusFailed, domain.FailureOccupied, "")
		ws.AppendEvent(domain.EventActionFailed, actorID, map[string]any{
			"verb":   req.Verb,
			"reason": string(domain.FailureOccupied),
		})
		return domain.Outcome{Status: statusFailed, Reason: domain.FailureOccupied}
	}

	m := p.matcher.Match(ws, actorID, req)
	if !m.OK() {
		ws.RecordInteraction(actorID, req.Verb, req.TargetID, statusFailed, m.Reason, "")
		ws.AppendEvent(domain.EventActionFailed, actorID, map[string]any{
			"verb":   req.Verb,
			"reason": string(m.Reason),
		})
		logger.Log.WithFields(logrus.Fields{
			"actor":  actorID,
			"verb":   req.Verb,
			"reason": m.Reason,
		}).Debug("Request rejected")
		return domain.Outcome{Status: statusFailed, Reason: m.Reason}
	}

	recipe := m.Recipe
	ctx := domain.EffectContext{
		ActorID:  actorID,
		TargetID: req.TargetID,
		RecipeID: recipe.ID,
		Params:   req.Parameters,
	}

	// Мгновенный рецепт: эффекты применяются в том же тике, без задачи
	if recipe.IsInstant() {
		applied := p.exec.ApplyBatch(ws, recipe.Outputs, ctx)
		ws.RecordInteraction(actorID, req.Verb, req.TargetID, statusSuccess, domain.FailureNone, recipe.ID)
		return domain.Outcome{
			Status:         statusSuccess,
			RecipeID:       recipe.ID,
			EffectsApplied: applied,
		}
	}

	// Длительный рецепт: создание задачи и занятие актора
	createEff := []domain.EffectTemplate{{Effect: domain.EffectCreateTask}}
	if applied := p.exec.ApplyBatch(ws, createEff, ctx); applied == 0 {
		// Структурная осечка уже записана executor'ом
		return domain.Outcome{Status: statusFailed, Reason: domain.FailurePreconditionFailed, RecipeID: recipe.ID}
	}

	taskID := ""
	if actor.Worker != nil {
		taskID = actor.Worker.CurrentTaskID
	}
	ws.RecordInteraction(actorID, req.Verb, req.TargetID, statusSuccess, domain.FailureNone, recipe.ID)
	return domain.Outcome{
		Status:   statusSuccess,
		RecipeID: recipe.ID,
		TaskID:   taskID,
	}
}
