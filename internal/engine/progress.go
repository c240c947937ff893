package engine

import (
	"sandbox-server/internal/domain"
	"sandbox-server/internal/world"
)

// Progressor вычисляет приращение прогресса задачи за один тик.
// Чистая функция состояния: никакой случайности, реплей обязан
// давать те же дельты.
type Progressor interface {
	Delta(ws *world.Store, task *domain.Task, owner *domain.Entity) float64
}

// LinearProgressor: база + сумма вкладов свойств владельца.
// Вклад = значение свойства * множитель (например, энергия * 0.01).
type LinearProgressor struct{}

func (LinearProgressor) Delta(ws *world.Store, task *domain.Task, owner *domain.Entity) float64 {
	delta := task.BasePerTick
	if owner == nil {
		return clampDelta(delta)
	}
	for _, c := range task.Contributors {
		switch c.Component {
		case domain.CompCreature:
			if owner.Creature == nil {
				continue
			}
			owner.Creature.EnsureInitialized()
			if v, ok := owner.Creature.Property(c.Property); ok {
				delta += v * c.Multiplier
			}
		}
	}
	return clampDelta(delta)
}

// Прогресс монотонен: отрицательная дельта не допускается
func clampDelta(d float64) float64 {
	if d < 0 {
		return 0
	}
	return d
}

func defaultProgressors() map[string]Progressor {
	linear := LinearProgressor{}
	return map[string]Progressor{
		"":       linear,
		"Linear": linear,
	}
}
