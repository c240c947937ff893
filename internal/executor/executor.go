package executor

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/world"
	"sandbox-server/pkg/logger"
)

// EntityFactory строит сущность из шаблона (реализуется пакетом data).
// Executor не знает формата шаблонов - только просит собрать.
type EntityFactory interface {
	CreateFromTemplate(templateID string, instanceID domain.EntityID) (*domain.Entity, error)
}

// Executor - ЕДИНСТВЕННАЯ точка записи в World Store.
// Решает "как писать", а не "зачем" (это забота планировщика и решателя).
// Каждый отдельный эффект атомарен; батч НЕ транзакционен:
// структурная осечка прерывает остаток батча без отката примененного.
type Executor struct {
	factory EntityFactory
	recipes map[string]*domain.Recipe

	// Счетчики детерминированных ID (реплей обязан выдавать те же ID)
	entitySeq int64
	taskSeq   int64
}

func New(factory EntityFactory, recipes map[string]*domain.Recipe) *Executor {
	return &Executor{
		factory: factory,
		recipes: recipes,
	}
}

// ApplyBatch применяет эффекты строго по порядку.
// При структурной осечке (пропавшая сущность/компонент и т.п.) остаток
// батча пропускается, в журнал пишется ExecutorError, примененные
// эффекты НЕ откатываются. Возвращает число примененных эффектов.
func (x *Executor) ApplyBatch(ws *world.Store, effects []domain.EffectTemplate, ctx domain.EffectContext) int {
	applied := 0
	for _, eff := range effects {
		if err := x.Execute(ws, eff, ctx); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"effect": eff.Effect.String(),
				"actor":  ctx.ActorID,
				"error":  err,
			}).Warn("Effect batch aborted")
			ws.AppendEvent(domain.EventExecutorError, ctx.ActorID, map[string]any{
				"effect":  eff.Effect.String(),
				"message": err.Error(),
				"applied": applied,
				"skipped": len(effects) - applied - 1,
			})
			return applied
		}
		applied++
	}
	return applied
}

// Execute применяет один эффект. Ошибка = структурная осечка
// (ожидаемые нарративные провалы сюда не попадают - они отсеиваются
// раньше, на матчинге).
func (x *Executor) Execute(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	switch eff.Effect {
	case domain.EffectModifyProperty:
		return x.modifyProperty(ws, eff, ctx, false)
	case domain.EffectSetProperty:
		return x.modifyProperty(ws, eff, ctx, true)
	case domain.EffectCreateEntity:
		return x.createEntity(ws, eff, ctx)
	case domain.EffectDestroyEntity:
		return x.destroyEntity(ws, eff, ctx)
	case domain.EffectTransferEntity:
		return x.transferEntity(ws, eff, ctx)
	case domain.EffectConsumeInputs:
		return x.consumeInputs(ws, ctx)
	case domain.EffectCreateTask:
		return x.createTask(ws, ctx)
	case domain.EffectProgressTask:
		return x.progressTask(ws, eff, ctx)
	case domain.EffectUpdateTaskStatus:
		return x.updateTaskStatus(ws, eff, ctx)
	case domain.EffectFinishTask:
		return x.finishTask(ws, ctx)
	case domain.EffectCancelTask:
		return x.cancelTask(ws, eff, ctx)
	case domain.EffectEmitEvent:
		return x.emitEvent(ws, eff, ctx)
	}
	return fmt.Errorf("unknown effect type: %s", eff.Effect)
}

// --- СВОЙСТВА ---

func (x *Executor) modifyProperty(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext, set bool) error {
	target := ws.Entity(ctx.Resolve(eff.Target))
	if target == nil {
		return fmt.Errorf("%s: target missing", eff.Effect)
	}

	// Пока строго поддерживаются числовые свойства CreatureComponent;
	// новые компоненты со свойствами добавляются в этот switch.
	switch eff.Component {
	case domain.CompCreature:
		c := target.Creature
		if c == nil {
			return fmt.Errorf("%s: component missing: %s", eff.Effect, eff.Component)
		}
		c.EnsureInitialized()
		cur, ok := c.Property(eff.Property)
		if !ok {
			return fmt.Errorf("%s: property missing: %s", eff.Effect, eff.Property)
		}
		newVal := cur + eff.Change
		if set {
			newVal = eff.Value
		}
		c.SetProperty(eff.Property, newVal)
		ws.AppendEvent(domain.EventPropertyModified, ctx.ActorID, map[string]any{
			"entityId":  target.ID,
			"component": eff.Component,
			"property":  eff.Property,
			"delta":     eff.Change,
			"newValue":  newVal,
		})
		return nil
	}
	return fmt.Errorf("%s: unsupported component type: %s", eff.Effect, eff.Component)
}

// --- ЖИЗНЕННЫЙ ЦИКЛ СУЩНОСТЕЙ ---

func (x *Executor) createEntity(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	if eff.Template == "" || eff.Destination == nil {
		return fmt.Errorf("CreateEntity: missing template or destination")
	}
	if x.factory == nil {
		return fmt.Errorf("CreateEntity: executor has no entity factory")
	}

	x.entitySeq++
	newID := domain.EntityID(fmt.Sprintf("%s_%04d", eff.Template, x.entitySeq))
	ent, err := x.factory.CreateFromTemplate(eff.Template, newID)
	if err != nil {
		return fmt.Errorf("CreateEntity: %w", err)
	}
	if err := ws.RegisterEntity(ent); err != nil {
		return fmt.Errorf("CreateEntity: %w", err)
	}

	placed := false
	switch eff.Destination.Type {
	case "container":
		parent := ws.Entity(ctx.Resolve(eff.Destination.Target))
		if parent != nil && parent.Container != nil {
			if slot := parent.Container.FindSlotFor(ent.AllTags()); slot != nil {
				slot.Items = append(slot.Items, ent.ID)
				// Двойная индексация: содержимое числится и в локации контейнера
				if loc := ws.LocationOf(parent.ID); loc != nil {
					ws.EnsureEntityInLocation(ent.ID, loc.ID)
				}
				placed = true
			}
		}
	case "location":
		if loc := ws.LocationOf(ctx.ActorID); loc != nil {
			ws.EnsureEntityInLocation(ent.ID, loc.ID)
			placed = true
		}
	}

	if !placed {
		// Fallback: локация актора
		if loc := ws.LocationOf(ctx.ActorID); loc != nil {
			ws.EnsureEntityInLocation(ent.ID, loc.ID)
			placed = true
		}
	}
	if !placed {
		ws.RemoveEntityRow(ent.ID)
		return fmt.Errorf("CreateEntity: nowhere to place %s", ent.ID)
	}

	ws.AppendEvent(domain.EventEntityCreated, ctx.ActorID, map[string]any{
		"entityId":   ent.ID,
		"templateId": ent.TemplateID,
	})
	return nil
}

func (x *Executor) destroyEntity(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	ent := ws.Entity(ctx.Resolve(eff.Target))
	if ent == nil {
		return fmt.Errorf("DestroyEntity: target missing")
	}

	// 1) Контейнер уничтожается вместе с поддеревом (иначе висячие ID)
	if ent.Container != nil {
		for _, childID := range ent.Container.AllItemIDs() {
			childEff := domain.EffectTemplate{Effect: domain.EffectDestroyEntity, Target: string(childID)}
			if err := x.destroyEntity(ws, childEff, ctx); err != nil {
				return err
			}
		}
	}

	// 2) Каскад: отмена активной задачи владельца (с событием прерывания)
	if ent.Worker != nil && ent.Worker.HasTask() {
		cancelEff := domain.EffectTemplate{
			Effect: domain.EffectCancelTask,
			Status: "owner destroyed",
		}
		cancelCtx := ctx
		cancelCtx.TaskID = ent.Worker.CurrentTaskID
		if err := x.cancelTask(ws, cancelEff, cancelCtx); err != nil {
			logger.Log.WithField("entity_id", ent.ID).Warn("Cascade task cancel failed")
		}
	}

	// 3) Задачи, нацеленные на сущность, остаются: их осечка проявится
	// структурной ошибкой при следующем применении эффектов (без отката).

	ws.RemoveEntityRow(ent.ID)
	ws.AppendEvent(domain.EventEntityDestroyed, ctx.ActorID, map[string]any{
		"entityId": ent.ID,
	})
	return nil
}

func (x *Executor) consumeInputs(ws *world.Store, ctx domain.EffectContext) error {
	for _, eid := range ctx.ConsumeIDs {
		eff := domain.EffectTemplate{Effect: domain.EffectDestroyEntity, Target: string(eid)}
		if err := x.destroyEntity(ws, eff, ctx); err != nil {
			return err
		}
	}
	return nil
}

// --- ПЕРЕМЕЩЕНИЕ ---

// transferEntity перемещает сущность между локацией и контейнером (в любых
// сочетаниях). Вложенность обязана оставаться лесом: перенос контейнера
// внутрь собственного поддерева - структурная осечка.
func (x *Executor) transferEntity(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	entity := ws.Entity(ctx.Resolve(eff.Target))
	if entity == nil {
		return fmt.Errorf("TransferEntity: entity missing")
	}

	sourceEnt, sourceLoc := x.resolveNode(ws, ctx, eff.Source)
	destEnt, destLoc := x.resolveNode(ws, ctx, destTarget(eff))
	if (sourceEnt == nil && sourceLoc == nil) || (destEnt == nil && destLoc == nil) {
		return fmt.Errorf("TransferEntity: missing source or destination")
	}

	// Защита ацикличности ДО каких-либо записей
	if destEnt != nil {
		if destEnt.ID == entity.ID || ws.IsDescendantOf(destEnt.ID, entity.ID) {
			return fmt.Errorf("TransferEntity: containment cycle %s -> %s", entity.ID, destEnt.ID)
		}
	}

	// Фактические локации источника/назначения (для кросс-локационного каскада)
	fromLoc := sourceLoc
	if fromLoc == nil && sourceEnt != nil {
		fromLoc = ws.LocationOf(sourceEnt.ID)
	}
	toLoc := destLoc
	if toLoc == nil && destEnt != nil {
		toLoc = ws.LocationOf(destEnt.ID)
	}
	crossLocation := fromLoc != nil && toLoc != nil && fromLoc.ID != toLoc.ID

	// 1) Убираем из источника
	if sourceEnt != nil {
		if sourceEnt.Container == nil || !sourceEnt.Container.RemoveItem(entity.ID) {
			return fmt.Errorf("TransferEntity: failed to remove from source container")
		}
	} else if crossLocation {
		sourceLoc.RemoveEntityID(entity.ID)
	}

	// 2) Кладем в назначение
	if destEnt != nil {
		if destEnt.Container == nil {
			return fmt.Errorf("TransferEntity: destination has no container")
		}
		slot := destEnt.Container.FindSlotFor(entity.AllTags())
		if slot == nil {
			return fmt.Errorf("TransferEntity: no slot accepts %s", entity.ID)
		}
		slot.Items = append(slot.Items, entity.ID)
		if toLoc != nil {
			ws.EnsureEntityInLocation(entity.ID, toLoc.ID)
		}
	} else {
		destLoc.AddEntityID(entity.ID)
	}

	// 3) Кросс-локационный перенос тянет потомков контейнера за собой
	if crossLocation {
		ids := append([]domain.EntityID{entity.ID}, ws.DescendantItems(entity.ID)...)
		ws.MoveIDsBetweenLocations(ids, fromLoc.ID, toLoc.ID)
		if destEnt != nil || destLoc != nil {
			// MoveIDs убрал и сам entity - вернем его в правильный индекс
			ws.EnsureEntityInLocation(entity.ID, toLoc.ID)
		}
	}

	ws.AppendEvent(domain.EventEntityTransferred, ctx.ActorID, map[string]any{
		"entityId": entity.ID,
	})
	return nil
}

func destTarget(eff domain.EffectTemplate) string {
	if eff.Destination != nil {
		return eff.Destination.Target
	}
	return ""
}

// resolveNode различает контейнерную сущность и локацию по символьной ссылке:
// сначала пробуем сущность с ContainerComponent, затем локацию по литеральному ID
func (x *Executor) resolveNode(ws *world.Store, ctx domain.EffectContext, key string) (*domain.Entity, *domain.Location) {
	id := ctx.Resolve(key)
	if ent := ws.Entity(id); ent != nil && ent.Container != nil {
		return ent, nil
	}
	if loc := ws.Location(string(id)); loc != nil {
		return nil, loc
	}
	// Символьная ссылка могла указывать на локацию напрямую
	if loc := ws.Location(key); loc != nil {
		return nil, loc
	}
	return nil, nil
}

// --- ЗАДАЧИ ---

func (x *Executor) createTask(ws *world.Store, ctx domain.EffectContext) error {
	recipe := x.recipes[ctx.RecipeID]
	if recipe == nil {
		return fmt.Errorf("CreateTask: recipe missing in context")
	}
	target := ws.Entity(ctx.TargetID)
	if target == nil {
		return fmt.Errorf("CreateTask: target missing")
	}

	actor := ws.Entity(ctx.ActorID)
	// Занятый актор не может получить вторую параллельную задачу.
	// Проверка идет до любых мутаций: отказ не должен оставлять следов
	if actor != nil && actor.IsOccupied() {
		return fmt.Errorf("CreateTask: actor %s is occupied", actor.ID)
	}

	host := actor
	if host == nil {
		host = target
	}
	if host.TaskHost == nil {
		host.TaskHost = &domain.TaskHostComponent{}
	}

	x.taskSeq++
	task := &domain.Task{
		ID:                fmt.Sprintf("task_%04d", x.taskSeq),
		Type:              recipe.Verb,
		RecipeID:          recipe.ID,
		TargetID:          target.ID,
		OwnerID:           ctx.ActorID,
		RequiredProgress:  recipe.Process.RequiredProgress,
		Status:            domain.TaskInactive,
		Parameters:        ctx.Params,
		CompletionEffects: recipe.Outputs,
		CancelEffects:     recipe.CancelEffects,
	}
	if p := recipe.Progression; p != nil {
		task.ProgressorID = p.Progressor
		task.BasePerTick = p.BasePerTick
		task.Contributors = p.Contributors
		task.TickEffects = p.TickEffects
	}

	host.TaskHost.AddTask(task.ID)
	if err := ws.RegisterTask(task); err != nil {
		return fmt.Errorf("CreateTask: %w", err)
	}

	ws.AppendEvent(domain.EventTaskCreated, ctx.ActorID, map[string]any{
		"taskId":   task.ID,
		"targetId": target.ID,
		"recipeId": recipe.ID,
	})

	// Актор занимает право действия
	if actor != nil && actor.Worker != nil {
		actor.Worker.AssignTask(task.ID)
		task.Status = domain.TaskInProgress
		ws.AppendEvent(domain.EventTaskAssigned, ctx.ActorID, map[string]any{
			"taskId":  task.ID,
			"agentId": actor.ID,
		})
	}
	return nil
}

func (x *Executor) progressTask(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	task := ws.Task(ctx.TaskID)
	if task == nil {
		return fmt.Errorf("ProgressTask: task not found %s", ctx.TaskID)
	}
	if eff.Delta < 0 {
		return fmt.Errorf("ProgressTask: negative delta would break monotonicity")
	}

	task.Progress += eff.Delta
	// Прогресс не выходит за пределы длительности, пока задача активна
	if task.Progress > task.RequiredProgress {
		task.Progress = task.RequiredProgress
	}
	ws.AppendEvent(domain.EventTaskProgressed, ctx.ActorID, map[string]any{
		"taskId":      task.ID,
		"delta":       eff.Delta,
		"newProgress": task.Progress,
		"required":    task.RequiredProgress,
	})
	return nil
}

func (x *Executor) updateTaskStatus(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	task := ws.Task(ctx.TaskID)
	if task == nil {
		return fmt.Errorf("UpdateTaskStatus: task not found %s", ctx.TaskID)
	}
	old := task.Status
	task.Status = domain.TaskStatus(eff.Status)
	ws.AppendEvent(domain.EventTaskStatusChanged, ctx.ActorID, map[string]any{
		"taskId":    task.ID,
		"oldStatus": string(old),
		"newStatus": eff.Status,
	})
	return nil
}

// finishTask применяет эффекты завершения и убирает задачу.
// Эффекты завершения исполняются с семантикой батча: структурная осечка
// пропускает остаток, но задача все равно снимается (частичный коммит).
func (x *Executor) finishTask(ws *world.Store, ctx domain.EffectContext) error {
	task := ws.Task(ctx.TaskID)
	if task == nil {
		return fmt.Errorf("FinishTask: task not found")
	}

	// Эффекты завершения целятся в target рецепта, если контекст не переопределил
	finishCtx := ctx
	if finishCtx.TargetID == "" {
		finishCtx.TargetID = task.TargetID
	}
	x.ApplyBatch(ws, task.CompletionEffects, finishCtx)

	x.detachTask(ws, task)
	ws.AppendEvent(domain.EventTaskFinished, ctx.ActorID, map[string]any{
		"taskId": task.ID,
	})
	return nil
}

// cancelTask прерывает задачу до завершения: эффекты завершения НЕ
// применяются (только явные cancel_effects), пишется событие прерывания.
func (x *Executor) cancelTask(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	task := ws.Task(ctx.TaskID)
	if task == nil {
		return fmt.Errorf("CancelTask: task not found")
	}

	cancelCtx := ctx
	if cancelCtx.TargetID == "" {
		cancelCtx.TargetID = task.TargetID
	}
	x.ApplyBatch(ws, task.CancelEffects, cancelCtx)

	x.detachTask(ws, task)
	ws.AppendEvent(domain.EventTaskInterrupted, ctx.ActorID, map[string]any{
		"taskId": task.ID,
		"reason": eff.Status,
	})
	return nil
}

// detachTask снимает задачу с хоста, владельца и из реестра
func (x *Executor) detachTask(ws *world.Store, task *domain.Task) {
	if owner := ws.Entity(task.OwnerID); owner != nil {
		if owner.TaskHost != nil {
			owner.TaskHost.RemoveTask(task.ID)
		}
		if owner.Worker != nil && owner.Worker.CurrentTaskID == task.ID {
			owner.Worker.StopTask()
		}
	}
	if target := ws.Entity(task.TargetID); target != nil && target.TaskHost != nil {
		target.TaskHost.RemoveTask(task.ID)
	}
	ws.UnregisterTask(task.ID)
}

// --- СОБЫТИЯ ---

func (x *Executor) emitEvent(ws *world.Store, eff domain.EffectTemplate, ctx domain.EffectContext) error {
	evtType := domain.ParseEventType(eff.EventType)
	if evtType == domain.EventUnknown {
		evtType = domain.EventCustom
	}
	payload := map[string]any{}
	for k, v := range eff.Payload {
		payload[k] = v
	}
	if eff.EventType != "" && evtType == domain.EventCustom {
		payload["kind"] = eff.EventType
	}
	ws.AppendEvent(evtType, ctx.ActorID, payload)
	return nil
}
