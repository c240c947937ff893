package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/executor"
	"sandbox-server/internal/interaction"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/world"
	"sandbox-server/pkg/logger"
)

// Notifier получает наблюдения управляемых сущностей после каждого тика
// (реализуется сетевым слоем; ядро о WebSocket не знает)
type Notifier interface {
	PublishObservation(obs perception.Observation)
}

// RequestRecorder пишет ленту внешних запросов для реплея
type RequestRecorder interface {
	Record(req domain.ReplayRequest)
}

// Simulation - фасад ядра для внешних потребителей (сервер, реплей, CLI).
// Все входы сериализуются мьютексом: внутри тика мир однопоточный,
// конкурентность существует только на границе.
type Simulation struct {
	mu sync.Mutex

	store    *world.Store
	exec     *executor.Executor
	matcher  *interaction.Engine
	resolver *perception.Resolver
	sched    *Scheduler

	notifier Notifier
	recorder RequestRecorder
}

func NewSimulation(store *world.Store, exec *executor.Executor, matcher *interaction.Engine, resolver *perception.Resolver) *Simulation {
	return &Simulation{
		store:    store,
		exec:     exec,
		matcher:  matcher,
		resolver: resolver,
		sched:    NewScheduler(store, exec, matcher, resolver),
	}
}

func (s *Simulation) Store() *world.Store {
	return s.store
}

func (s *Simulation) Scheduler() *Scheduler {
	return s.sched
}

func (s *Simulation) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetRecorder включает запись ленты ВНЕШНИХ запросов.
// Решения скриптовых провайдеров не записываются: они детерминированы
// и при реплее воспроизводятся повторным прогоном.
func (s *Simulation) SetRecorder(r RequestRecorder) {
	s.recorder = r
}

// SubmitRequest - вход для внешних запросов (игрок через WS, реплей).
// Запрос исполняется немедленно, между тиками.
func (s *Simulation) SubmitRequest(actorID domain.EntityID, req domain.Request) domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.Record(domain.ReplayRequest{
			Tick:       s.store.GameTime.TotalTicks,
			ActorID:    actorID,
			Verb:       req.Verb,
			TargetID:   req.TargetID,
			Parameters: req.Parameters,
		})
	}
	return s.sched.Pipeline().Handle(s.store, actorID, req)
}

// Step продвигает мир на один тик и рассылает наблюдения
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepLocked()
}

func (s *Simulation) stepLocked() {
	s.sched.Step()
	if s.notifier == nil {
		return
	}
	for _, id := range s.store.EntityOrder() {
		ent := s.store.Entity(id)
		if ent == nil || ent.Control == nil || !ent.Control.Enabled {
			continue
		}
		s.notifier.PublishObservation(s.resolver.Observe(s.store, id, s.matcher.Recipes()))
	}
}

// RunTicks прогоняет фиксированное число тиков (batch-режим, реплей)
func (s *Simulation) RunTicks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.stepLocked()
	}
}

// Run крутит мир с фиксированным интервалом до отмены контекста
func (s *Simulation) Run(ctx context.Context, tickInterval time.Duration) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	logger.Log.WithFields(logrus.Fields{
		"interval": tickInterval.String(),
	}).Info("Simulation loop started")

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Simulation loop stopped")
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Observation строит наблюдение для агента по запросу (вне тика)
func (s *Simulation) Observation(agentID domain.EntityID) perception.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Observe(s.store, agentID, s.matcher.Recipes())
}

// AttachExternalControl переводит сущность под внешнее управление:
// планировщик перестает спрашивать решателя, запросы приходят через
// SubmitRequest. Возвращает прежний provider (для восстановления)
// и false, если сущность не управляемая.
func (s *Simulation) AttachExternalControl(id domain.EntityID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.store.Entity(id)
	if ent == nil || ent.Control == nil {
		return "", false
	}
	prev := ent.Control.ProviderID
	ent.Control.ProviderID = "external"
	return prev, true
}

// DetachExternalControl возвращает сущность прежнему решателю
func (s *Simulation) DetachExternalControl(id domain.EntityID, prevProvider string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.store.Entity(id)
	if ent == nil || ent.Control == nil {
		return
	}
	ent.Control.ProviderID = prevProvider
}

// WorldDump - снимок состояния для debug-ручек
type WorldDump struct {
	Tick       int
	Locations  []*domain.Location
	Entities   []*domain.Entity
	LocationOf map[domain.EntityID]string
	Events     []domain.Event
}

// Inspect дает читателю доступ к состоянию под мьютексом симуляции.
// Callback не должен удерживать ссылки после возврата.
func (s *Simulation) Inspect(fn func(WorldDump)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dump := WorldDump{
		Tick:       s.store.GameTime.TotalTicks,
		Locations:  s.store.Locations(),
		LocationOf: make(map[domain.EntityID]string),
		Events:     s.store.EventLog(),
	}
	for _, id := range s.store.EntityOrder() {
		ent := s.store.Entity(id)
		if ent == nil {
			continue
		}
		dump.Entities = append(dump.Entities, ent)
		if loc := s.store.LocationOf(id); loc != nil {
			dump.LocationOf[id] = loc.ID
		}
	}
	fn(dump)
}

// Tick возвращает номер текущего тика
func (s *Simulation) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GameTime.TotalTicks
}
