package engine

import (
	"sort"
	"strings"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/world"
)

// Arbiter проверяет правила прерывания текущей задачи сущности.
// Запускается ДО продвижения прогресса: прерванная в этом тике задача
// не получает ни эффектов тика, ни дельты.
type Arbiter struct{}

// ShouldInterrupt возвращает (true, причина), если хотя бы одно правило
// сработало. Правила проверяются по приоритету (меньше = раньше),
// тай-брейк - порядок объявления в шаблоне.
func (Arbiter) ShouldInterrupt(ws *world.Store, ent *domain.Entity) (bool, string) {
	if ent.Arbiter == nil || len(ent.Arbiter.Rules) == 0 {
		return false, ""
	}

	rules := make([]domain.InterruptRuleSpec, len(ent.Arbiter.Rules))
	copy(rules, ent.Arbiter.Rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})

	for _, rule := range rules {
		if triggered, reason := evalRule(ent, rule); triggered {
			return true, reason
		}
	}
	return false, ""
}

func evalRule(ent *domain.Entity, rule domain.InterruptRuleSpec) (bool, string) {
	c := ent.Creature
	if c == nil {
		return false, ""
	}
	c.EnsureInitialized()

	switch normalizeRuleType(rule.Type) {
	case "lownutrition":
		if c.Nutrition < rule.Threshold {
			return true, "голод"
		}
	case "lowenergy":
		if c.Energy < rule.Threshold {
			return true, "истощение"
		}
	case "lowhp":
		if c.HP < rule.Threshold {
			return true, "ранение"
		}
	}
	return false, ""
}

// Данные пишут тип правила по-разному (LowNutrition / low_nutrition)
func normalizeRuleType(t string) string {
	return strings.ReplaceAll(strings.ToLower(t), "_", "")
}
