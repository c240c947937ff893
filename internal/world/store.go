package world

import (
	"fmt"
	"sort"

	"sandbox-server/internal/domain"
)

// Store - единственный источник правды о состоянии мира.
// Чистая структура данных: таблицы сущностей/локаций/задач, часы,
// журналы. Все мутирующие операции вызываются только executor'ом;
// остальные подсистемы только читают.
type Store struct {
	GameTime domain.GameTime

	entities  map[domain.EntityID]*domain.Entity
	locations map[string]*domain.Location
	tasks     map[string]*domain.Task

	// Порядок создания сущностей - детерминированный порядок обработки в тике
	entityOrder []domain.EntityID

	// Журнал событий мира (только добавление)
	eventLog []domain.Event
	eventSeq int64

	// Журнал попыток действий (структурированный источник нарратива)
	interactionLog []domain.InteractionRecord
	interactionSeq int64
}

func NewStore() *Store {
	return &Store{
		entities:  make(map[domain.EntityID]*domain.Entity),
		locations: make(map[string]*domain.Location),
		tasks:     make(map[string]*domain.Task),
	}
}

// --- РЕГИСТРАЦИЯ ---

func (s *Store) RegisterEntity(e *domain.Entity) error {
	if _, ok := s.entities[e.ID]; ok {
		return fmt.Errorf("entity id already exists: %s", e.ID)
	}
	s.entities[e.ID] = e
	s.entityOrder = append(s.entityOrder, e.ID)
	return nil
}

func (s *Store) RegisterLocation(l *domain.Location) error {
	if _, ok := s.locations[l.ID]; ok {
		return fmt.Errorf("location id already exists: %s", l.ID)
	}
	s.locations[l.ID] = l
	return nil
}

func (s *Store) RegisterTask(t *domain.Task) error {
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("task id already exists: %s", t.ID)
	}
	s.tasks[t.ID] = t
	return nil
}

func (s *Store) UnregisterTask(taskID string) {
	delete(s.tasks, taskID)
}

// --- ЧТЕНИЕ ---

func (s *Store) Entity(id domain.EntityID) *domain.Entity {
	return s.entities[id]
}

func (s *Store) Location(id string) *domain.Location {
	return s.locations[id]
}

func (s *Store) Task(id string) *domain.Task {
	return s.tasks[id]
}

// EntityOrder возвращает снимок порядка обработки (по порядку создания).
// Планировщик снимает его в начале тика.
func (s *Store) EntityOrder() []domain.EntityID {
	out := make([]domain.EntityID, len(s.entityOrder))
	copy(out, s.entityOrder)
	return out
}

func (s *Store) EntityCount() int {
	return len(s.entities)
}

// EntitiesAt возвращает прямых членов локации
func (s *Store) EntitiesAt(locationID string) []domain.EntityID {
	loc := s.locations[locationID]
	if loc == nil {
		return nil
	}
	out := make([]domain.EntityID, len(loc.Entities))
	copy(out, loc.Entities)
	return out
}

// Locations возвращает локации в детерминированном порядке (по ID)
func (s *Store) Locations() []*domain.Location {
	ids := make([]string, 0, len(s.locations))
	for id := range s.locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*domain.Location, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.locations[id])
	}
	return out
}

// --- РАЗРЕШЕНИЕ МЕСТОПОЛОЖЕНИЯ ---

// LocationOf находит локацию сущности: либо прямое членство, либо
// подъем по цепочке контейнеров. Циклы отсекаются visited-набором.
func (s *Store) LocationOf(id domain.EntityID) *domain.Location {
	visited := make(map[domain.EntityID]bool)
	return s.resolveLocation(id, visited)
}

func (s *Store) resolveLocation(id domain.EntityID, visited map[domain.EntityID]bool) *domain.Location {
	if id == "" || visited[id] {
		return nil
	}
	visited[id] = true

	for _, loc := range s.locations {
		if loc.Contains(id) {
			return loc
		}
	}

	if parent := s.ContainerHolding(id); parent != nil {
		return s.resolveLocation(parent.ID, visited)
	}
	return nil
}

// ContainerHolding возвращает сущность-контейнер, прямо содержащую item
func (s *Store) ContainerHolding(itemID domain.EntityID) *domain.Entity {
	for _, id := range s.entityOrder {
		ent := s.entities[id]
		if ent == nil || ent.Container == nil {
			continue
		}
		if ent.Container.HasItem(itemID) {
			return ent
		}
	}
	return nil
}

// DescendantItems рекурсивно собирает ID потомков контейнерной сущности.
// Visited-набор (как в resolveLocation) не дает поврежденным данным
// с циклом вложенности уронить процесс.
func (s *Store) DescendantItems(rootID domain.EntityID) []domain.EntityID {
	var collected []domain.EntityID
	seen := map[domain.EntityID]bool{rootID: true}

	var walk func(id domain.EntityID)
	walk = func(id domain.EntityID) {
		ent := s.entities[id]
		if ent == nil || ent.Container == nil {
			return
		}
		for _, childID := range ent.Container.AllItemIDs() {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			collected = append(collected, childID)
			walk(childID)
		}
	}
	walk(rootID)
	return collected
}

// IsDescendantOf проверяет, находится ли candidate в поддереве root.
// Используется executor'ом для запрета циклов вложенности.
func (s *Store) IsDescendantOf(candidate, root domain.EntityID) bool {
	for _, id := range s.DescendantItems(root) {
		if id == candidate {
			return true
		}
	}
	return false
}

// --- ПОДДЕРЖКА ИНДЕКСА ЛОКАЦИЙ ---

func (s *Store) EnsureEntityInLocation(entityID domain.EntityID, locationID string) {
	if loc := s.locations[locationID]; loc != nil {
		loc.AddEntityID(entityID)
	}
}

func (s *Store) EnsureEntityRemovedFromLocation(entityID domain.EntityID, locationID string) {
	if loc := s.locations[locationID]; loc != nil {
		loc.RemoveEntityID(entityID)
	}
}

func (s *Store) MoveIDsBetweenLocations(ids []domain.EntityID, fromID, toID string) {
	for _, eid := range ids {
		s.EnsureEntityRemovedFromLocation(eid, fromID)
		s.EnsureEntityInLocation(eid, toID)
	}
}

// RemoveEntityRow выкидывает сущность из всех индексов и таблиц.
// Каскад (дети, отмена задач) - ответственность executor'а; здесь
// только механическое удаление строк по индексам, не по указателям.
func (s *Store) RemoveEntityRow(id domain.EntityID) {
	for _, loc := range s.locations {
		loc.RemoveEntityID(id)
	}
	for _, holder := range s.entities {
		if holder.Container != nil {
			holder.Container.RemoveItem(id)
		}
	}
	delete(s.entities, id)
	for i, oid := range s.entityOrder {
		if oid == id {
			s.entityOrder = append(s.entityOrder[:i], s.entityOrder[i+1:]...)
			break
		}
	}
}

// --- ЖУРНАЛЫ ---

// AppendEvent записывает событие мира. actorID определяет снимок локации.
func (s *Store) AppendEvent(evtType domain.EventType, actorID domain.EntityID, payload map[string]any) domain.Event {
	locID := ""
	if actorID != "" {
		if loc := s.LocationOf(actorID); loc != nil {
			locID = loc.ID
		}
	}
	s.eventSeq++
	ev := domain.Event{
		Seq:        s.eventSeq,
		Tick:       s.GameTime.TotalTicks,
		Type:       evtType,
		LocationID: locID,
		ActorID:    actorID,
		Payload:    payload,
	}
	s.eventLog = append(s.eventLog, ev)
	return ev
}

// EventLog возвращает журнал (только чтение; вызывающий не должен мутировать)
func (s *Store) EventLog() []domain.Event {
	return s.eventLog
}

// RecordInteraction записывает попытку действия со снимками имен
func (s *Store) RecordInteraction(actorID domain.EntityID, verb string, targetID domain.EntityID, status string, reason domain.FailureReason, recipeID string) {
	actorName := string(actorID)
	if a := s.entities[actorID]; a != nil && a.Name != "" {
		actorName = a.Name
	}
	targetName := string(targetID)
	if t := s.entities[targetID]; t != nil && t.Name != "" {
		targetName = t.Name
	}
	locID := ""
	if loc := s.LocationOf(actorID); loc != nil {
		locID = loc.ID
	}

	s.interactionSeq++
	s.interactionLog = append(s.interactionLog, domain.InteractionRecord{
		Seq:        s.interactionSeq,
		Tick:       s.GameTime.TotalTicks,
		LocationID: locID,
		ActorID:    actorID,
		ActorName:  actorName,
		Verb:       verb,
		TargetID:   targetID,
		TargetName: targetName,
		RecipeID:   recipeID,
		Status:     status,
		Reason:     reason,
	})
}

func (s *Store) InteractionLog() []domain.InteractionRecord {
	return s.interactionLog
}
