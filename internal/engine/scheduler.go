package engine

import (
	"github.com/sirupsen/logrus"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/executor"
	"sandbox-server/internal/interaction"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/world"
	"sandbox-server/pkg/logger"
)

// ActionProvider - внешний решатель для управляемой сущности.
// Ядро передает наблюдение и получает (запрос, true) либо (_, false),
// если в этом тике сущность бездействует.
type ActionProvider interface {
	NextAction(ws *world.Store, obs perception.Observation) (domain.Request, bool)
}

// Scheduler продвигает мир дискретными тиками.
//
// Порядок внутри тика фиксирован и детерминирован:
//  1. время +1, событие TickAdvanced;
//  2. снимок порядка сущностей (по порядку создания);
//  3. для каждой сущности: распад -> арбитр -> прогресс задачи -> решение.
//
// Эффекты сущности A, примененные раньше в тике, видны сущности B
// в том же тике: никакой двойной буферизации состояния нет.
type Scheduler struct {
	store    *world.Store
	exec     *executor.Executor
	matcher  *interaction.Engine
	resolver *perception.Resolver
	pipeline *Pipeline

	arbiter     Arbiter
	progressors map[string]Progressor

	providers       map[string]ActionProvider
	defaultProvider string
}

func NewScheduler(store *world.Store, exec *executor.Executor, matcher *interaction.Engine, resolver *perception.Resolver) *Scheduler {
	return &Scheduler{
		store:       store,
		exec:        exec,
		matcher:     matcher,
		resolver:    resolver,
		pipeline:    NewPipeline(exec, matcher),
		progressors: defaultProgressors(),
		providers:   make(map[string]ActionProvider),
	}
}

func (s *Scheduler) Pipeline() *Pipeline {
	return s.pipeline
}

// RegisterProvider добавляет решатель. Первый зарегистрированный
// становится провайдером по умолчанию.
func (s *Scheduler) RegisterProvider(id string, p ActionProvider) {
	if len(s.providers) == 0 {
		s.defaultProvider = id
	}
	s.providers[id] = p
}

// Step выполняет ровно один тик
func (s *Scheduler) Step() {
	s.store.GameTime.AdvanceTicks(1)
	tick := s.store.GameTime.TotalTicks
	s.store.AppendEvent(domain.EventTickAdvanced, "", map[string]any{"tick": tick})

	// Снимок: сущности, созданные эффектами ВНУТРИ этого тика,
	// ждут следующего тика
	order := s.store.EntityOrder()
	for _, id := range order {
		ent := s.store.Entity(id)
		if ent == nil {
			// Уничтожена ранее в этом же тике
			continue
		}
		s.applyDecay(ent)
		s.runArbiter(ent)
		s.runWorker(ent)
		s.runDecision(ent)
	}
}

// applyDecay - пассивный распад физиологии (голод, усталость).
// Идет через executor, как и любая другая мутация.
func (s *Scheduler) applyDecay(ent *domain.Entity) {
	c := ent.Creature
	if c == nil {
		return
	}
	c.EnsureInitialized()

	ctx := domain.EffectContext{ActorID: ent.ID, TargetID: ent.ID}
	if c.NutritionDecay > 0 && c.Nutrition > 0 {
		drop := c.NutritionDecay
		if drop > c.Nutrition {
			drop = c.Nutrition
		}
		s.execDecay(ent, ctx, "nutrition", drop)
	}
	if c.EnergyDecay > 0 && c.Energy > 0 {
		drop := c.EnergyDecay
		if drop > c.Energy {
			drop = c.Energy
		}
		s.execDecay(ent, ctx, "energy", drop)
	}
}

func (s *Scheduler) execDecay(ent *domain.Entity, ctx domain.EffectContext, property string, drop float64) {
	eff := domain.EffectTemplate{
		Effect:    domain.EffectModifyProperty,
		Target:    string(ent.ID),
		Component: domain.CompCreature,
		Property:  property,
		Change:    -drop,
	}
	if err := s.exec.Execute(s.store, eff, ctx); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"entity_id": ent.ID,
			"property":  property,
			"error":     err,
		}).Warn("Decay effect failed")
	}
}

// runArbiter проверяет прерывание ДО продвижения прогресса.
// Прерванная задача отменяется и НЕ возобновляется.
func (s *Scheduler) runArbiter(ent *domain.Entity) {
	if ent.Worker == nil || !ent.Worker.HasTask() {
		return
	}
	interrupt, reason := s.arbiter.ShouldInterrupt(s.store, ent)
	if !interrupt {
		return
	}

	ctx := domain.EffectContext{ActorID: ent.ID, TaskID: ent.Worker.CurrentTaskID}
	eff := domain.EffectTemplate{Effect: domain.EffectCancelTask, Status: reason}
	if err := s.exec.Execute(s.store, eff, ctx); err != nil {
		logger.Log.WithField("entity_id", ent.ID).WithError(err).Warn("Task interrupt failed")
	}
}

// runWorker продвигает активную задачу сущности на один тик
func (s *Scheduler) runWorker(ent *domain.Entity) {
	if ent.Worker == nil || !ent.Worker.HasTask() {
		return
	}
	taskID := ent.Worker.CurrentTaskID
	task := s.store.Task(taskID)
	if task == nil {
		// Висячая ссылка: задача исчезла мимо executor'а
		logger.Log.WithFields(logrus.Fields{
			"entity_id": ent.ID,
			"task_id":   taskID,
		}).Warn("Worker references missing task, detaching")
		ent.Worker.StopTask()
		return
	}
	if task.Status != domain.TaskInProgress {
		return
	}

	ctx := domain.EffectContext{
		ActorID:  ent.ID,
		TargetID: task.TargetID,
		TaskID:   task.ID,
		RecipeID: task.RecipeID,
		Params:   task.Parameters,
	}

	// Эффекты тика (плата за работу) идут до дельты прогресса
	if len(task.TickEffects) > 0 {
		s.exec.ApplyBatch(s.store, task.TickEffects, ctx)
		// Эффекты тика могли снять задачу (крайний случай)
		if s.store.Task(task.ID) == nil {
			return
		}
	}

	prog := s.progressors[task.ProgressorID]
	if prog == nil {
		prog = LinearProgressor{}
	}
	delta := prog.Delta(s.store, task, ent)
	if delta > 0 {
		eff := domain.EffectTemplate{Effect: domain.EffectProgressTask, Delta: delta}
		if err := s.exec.Execute(s.store, eff, ctx); err != nil {
			logger.Log.WithField("task_id", task.ID).WithError(err).Warn("Progress effect failed")
			return
		}
	}

	// Эффекты завершения срабатывают РОВНО один раз: FinishTask снимает задачу
	if task.IsComplete() {
		eff := domain.EffectTemplate{Effect: domain.EffectFinishTask}
		if err := s.exec.Execute(s.store, eff, ctx); err != nil {
			logger.Log.WithField("task_id", task.ID).WithError(err).Warn("Finish effect failed")
		}
	}
}

// runDecision дает незанятой управляемой сущности не более ОДНОГО
// запроса за тик
func (s *Scheduler) runDecision(ent *domain.Entity) {
	if ent.Control == nil || !ent.Control.Enabled {
		return
	}
	if ent.IsOccupied() {
		return
	}

	providerID := ent.Control.ProviderID
	if providerID == "" {
		providerID = s.defaultProvider
	}
	provider := s.providers[providerID]
	if provider == nil {
		return
	}

	obs := s.resolver.Observe(s.store, ent.ID, s.matcher.Recipes())
	req, ok := provider.NextAction(s.store, obs)
	if !ok {
		return
	}
	s.pipeline.Handle(s.store, ent.ID, req)
}
