package engine

import (
	"sandbox-server/internal/domain"
	"sandbox-server/pkg/logger"
)

// Replay проигрывает ленту внешних запросов против свежесобранного мира.
// Детерминизм ядра гарантирует: тот же стартовый мир + та же лента =
// идентичный журнал событий и финальное состояние.
//
// Лента содержит только внешние запросы; скриптовые решатели должны
// быть зарегистрированы те же, что при записи - их решения
// воспроизводятся повторным прогоном.
func Replay(sim *Simulation, session *domain.ReplaySession) {
	for _, req := range session.Requests {
		// Доводим мир до тика, на котором запрос был подан
		for sim.Tick() < req.Tick {
			sim.Step()
		}
		outcome := sim.SubmitRequest(req.ActorID, domain.Request{
			Verb:       req.Verb,
			TargetID:   req.TargetID,
			Parameters: req.Parameters,
		})
		if !outcome.OK() {
			logger.Log.Debugf("Replay: request at tick %d rejected: %s", req.Tick, outcome.Reason)
		}
	}
}
