package perception

import (
	"strings"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/world"
)

// Resolver вычисляет, что видит наблюдатель.
// Чистый запрос: без побочных эффектов, безопасен для повторных
// вызовов внутри тика по мере изменения состояния.
//
// Правила видимости:
//   - сущность видна, если она прямой член локации наблюдателя
//     и не вложена в контейнер;
//   - содержимое прозрачных слотов раскрывается рекурсивно, но только
//     если сам контейнер виден (непрозрачный контейнер прячет ВСЁ
//     поддерево, какой бы прозрачной ни была вложенность глубже);
//   - наблюдатель всегда видит прямое содержимое СВОИХ контейнеров
//     (дальше вглубь - те же правила прозрачности).
type Resolver struct {
	// Сколько последних тиков событий попадает в наблюдение
	EventTickWindow int
	// Максимум записей событий/попыток в наблюдении
	MaxEvents int
}

func NewResolver() *Resolver {
	return &Resolver{EventTickWindow: 10, MaxEvents: 20}
}

// Visible возвращает набор видимых сущностей для наблюдателя
func (r *Resolver) Visible(ws *world.Store, observerID domain.EntityID) []domain.EntityID {
	loc := ws.LocationOf(observerID)
	if loc == nil {
		return nil
	}

	// 1) Спрятанные: всё, что лежит в каком-либо контейнере этой локации
	contained := r.containedIDsInLocation(ws, loc.ID)

	// 2) Верхний уровень: члены локации вне контейнеров
	var seeds []domain.EntityID
	for _, eid := range loc.Entities {
		if !contained[eid] {
			seeds = append(seeds, eid)
		}
	}

	// 3) Собственные контейнеры наблюдателя: прямое содержимое видно всегда
	if obs := ws.Entity(observerID); obs != nil && obs.Container != nil {
		seeds = append(seeds, obs.Container.AllItemIDs()...)
	}

	// 4) Рекурсивное раскрытие прозрачных слотов
	return r.expandTransparent(ws, seeds)
}

// containedIDsInLocation собирает ID, лежащие внутри контейнеров локации.
/// Индекс локации и отношение вложенности ортогональны: без этого фильтра
// агент становится всевидящим.
func (r *Resolver) containedIDsInLocation(ws *world.Store, locationID string) map[domain.EntityID]bool {
	contained := make(map[domain.EntityID]bool)
	for _, holderID := range ws.EntitiesAt(locationID) {
		holder := ws.Entity(holderID)
		if holder == nil || holder.Container == nil {
			continue
		}
		for _, itemID := range holder.Container.AllItemIDs() {
			contained[itemID] = true
		}
	}
	return contained
}

// expandTransparent раскрывает содержимое прозрачных слотов в ширину,
// начиная с верхнеуровневых видимых сущностей
func (r *Resolver) expandTransparent(ws *world.Store, seeds []domain.EntityID) []domain.EntityID {
	var visible []domain.EntityID
	seen := make(map[domain.EntityID]bool)

	var queue []domain.EntityID
	for _, id := range seeds {
		if id != "" && !seen[id] {
			seen[id] = true
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visible = append(visible, current)

		ent := ws.Entity(current)
		if ent == nil || ent.Container == nil {
			continue
		}
		for _, name := range ent.Container.SlotNames() {
			slot := ent.Container.Slots[name]
			if !slot.Config.Transparent {
				continue
			}
			for _, itemID := range slot.Items {
				if itemID != "" && !seen[itemID] {
					seen[itemID] = true
					queue = append(queue, itemID)
				}
			}
		}
	}
	return visible
}

// CanSee - точечная проверка видимости одной цели
func (r *Resolver) CanSee(ws *world.Store, observerID, targetID domain.EntityID) bool {
	for _, id := range r.Visible(ws, observerID) {
		if id == targetID {
			return true
		}
	}
	return false
}

// --- НАБЛЮДЕНИЕ (payload для внешнего решателя) ---

// EntityView - видимая сущность со сводкой тегов
type EntityView struct {
	ID   domain.EntityID `json:"id"`
	Name string          `json:"name"`
	Tags []string        `json:"tags,omitempty"`
}

// LocationView - текущая локация наблюдателя
type LocationView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EventView - событие из журнала, прошедшее фильтр локации/окна
type EventView struct {
	Tick    int             `json:"tick"`
	ActorID domain.EntityID `json:"actorId,omitempty"`
	Type    string          `json:"type"`
	Payload map[string]any  `json:"payload,omitempty"`
}

// InteractionView - отрендеренная запись попытки действия
type InteractionView struct {
	Tick    int             `json:"tick"`
	Text    string          `json:"text"`
	ActorID domain.EntityID `json:"actorId"`
	Status  string          `json:"status"`
	Reason  string          `json:"reason,omitempty"`
}

// Observation - ровно тот payload, который потребляет внешний решатель.
// Ядро не должно пропускать сюда сущности вне Visible().
type Observation struct {
	AgentID      domain.EntityID   `json:"agentId"`
	Tick         int               `json:"tick"`
	Time         string            `json:"time"`
	Location     *LocationView     `json:"location"`
	Entities     []EntityView      `json:"entities"`
	Events       []EventView       `json:"events,omitempty"`
	Interactions []InteractionView `json:"interactions,omitempty"`
}

// Observe строит наблюдение для агента
func (r *Resolver) Observe(ws *world.Store, agentID domain.EntityID, recipes map[string]*domain.Recipe) Observation {
	obs := Observation{
		AgentID: agentID,
		Tick:    ws.GameTime.TotalTicks,
		Time:    ws.GameTime.String(),
	}

	loc := ws.LocationOf(agentID)
	if loc == nil {
		return obs
	}
	obs.Location = &LocationView{ID: loc.ID, Name: loc.Name}

	for _, eid := range r.Visible(ws, agentID) {
		ent := ws.Entity(eid)
		if ent == nil {
			continue
		}
		obs.Entities = append(obs.Entities, EntityView{
			ID:   ent.ID,
			Name: ent.Name,
			Tags: ent.AllTags(),
		})
	}

	obs.Events = r.visibleEvents(ws, loc.ID)
	obs.Interactions = r.visibleInteractions(ws, agentID, loc.ID, recipes)
	return obs
}

// visibleEvents - последние события той же локации в пределах окна тиков
func (r *Resolver) visibleEvents(ws *world.Store, locationID string) []EventView {
	minTick := ws.GameTime.TotalTicks - r.EventTickWindow
	if minTick < 0 {
		minTick = 0
	}

	log := ws.EventLog()
	var out []EventView
	for i := len(log) - 1; i >= 0; i-- {
		ev := log[i]
		if ev.Tick < minTick {
			break
		}
		if ev.LocationID != locationID {
			continue
		}
		out = append(out, EventView{
			Tick:    ev.Tick,
			ActorID: ev.ActorID,
			Type:    ev.Type.String(),
			Payload: ev.Payload,
		})
		if len(out) >= r.MaxEvents {
			break
		}
	}
	reverseEvents(out)
	return out
}

func (r *Resolver) visibleInteractions(ws *world.Store, viewerID domain.EntityID, locationID string, recipes map[string]*domain.Recipe) []InteractionView {
	minTick := ws.GameTime.TotalTicks - r.EventTickWindow
	if minTick < 0 {
		minTick = 0
	}

	log := ws.InteractionLog()
	var out []InteractionView
	for i := len(log) - 1; i >= 0; i-- {
		rec := log[i]
		if rec.Tick < minTick {
			break
		}
		if rec.LocationID != locationID {
			continue
		}
		out = append(out, InteractionView{
			Tick:    rec.Tick,
			Text:    renderInteraction(rec, viewerID, recipes),
			ActorID: rec.ActorID,
			Status:  rec.Status,
			Reason:  string(rec.Reason),
		})
		if len(out) >= r.MaxEvents {
			break
		}
	}
	reverseInteractions(out)
	return out
}

// renderInteraction превращает запись попытки в нарратив от лица зрителя.
// Шаблоны берутся из рецепта (narrative_success/narrative_fail), иначе дефолт.
func renderInteraction(rec domain.InteractionRecord, viewerID domain.EntityID, recipes map[string]*domain.Recipe) string {
	actorText := rec.ActorName
	if rec.ActorID == viewerID {
		actorText = "Я"
	}

	template := ""
	if rec.RecipeID != "" && recipes != nil {
		if recipe := recipes[rec.RecipeID]; recipe != nil {
			if rec.Status == "success" {
				template = recipe.NarrativeSuccess
			} else {
				template = recipe.NarrativeFail
			}
		}
	}
	if template == "" {
		if rec.Status == "success" {
			template = "{actor} выполняет {verb} ({target})"
		} else {
			template = "{actor} пытается {verb} ({target}), но безуспешно: {reason}"
		}
	}

	replacer := strings.NewReplacer(
		"{actor}", actorText,
		"{target}", rec.TargetName,
		"{verb}", rec.Verb,
		"{reason}", rec.Reason.Narrative(),
	)
	return replacer.Replace(template)
}

func reverseEvents(s []EventView) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseInteractions(s []InteractionView) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
