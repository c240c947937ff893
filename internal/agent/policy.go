package agent

import (
	"sandbox-server/internal/domain"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/world"
)

// ScriptedPolicy - "игрок-компьютер" (headless agent) без внешнего LLM.
// Потребляет то же наблюдение, что и внешний решатель, и выдает не более
// одного запроса за тик. Детерминирован: правила проверяются по порядку,
// цель - первая подходящая сущность в порядке наблюдения.
//
// Этот код - пример ВНЕШНЕГО решателя: ядро не знает о его существовании,
// общение идет только через Observation -> Request.
type ScriptedPolicy struct {
	Rules []PolicyRule
}

// PolicyRule: "когда свойство ниже порога (опционально), сделай verb
// над первой видимой сущностью с тегом"
type PolicyRule struct {
	Verb      string `yaml:"verb"`
	TargetTag string `yaml:"target_tag"`

	// Условие срабатывания (пусто = всегда)
	WhenProperty string  `yaml:"when_property"`
	Threshold    float64 `yaml:"threshold"`
}

// DefaultPolicy - выживание: голоден -> съешь съедобное, иначе работай
func DefaultPolicy() *ScriptedPolicy {
	return &ScriptedPolicy{
		Rules: []PolicyRule{
			{Verb: "consume", TargetTag: "edible", WhenProperty: "nutrition", Threshold: 30},
			{Verb: "chop", TargetTag: "choppable"},
		},
	}
}

// NextAction реализует engine.ActionProvider
func (p *ScriptedPolicy) NextAction(ws *world.Store, obs perception.Observation) (domain.Request, bool) {
	self := ws.Entity(obs.AgentID)
	if self == nil {
		return domain.Request{}, false
	}

	for _, rule := range p.Rules {
		if !p.conditionMet(self, rule) {
			continue
		}
		if targetID, ok := p.findTarget(ws, obs, rule.TargetTag); ok {
			return domain.Request{Verb: rule.Verb, TargetID: targetID}, true
		}
	}
	return domain.Request{}, false
}

func (p *ScriptedPolicy) conditionMet(self *domain.Entity, rule PolicyRule) bool {
	if rule.WhenProperty == "" {
		return true
	}
	c := self.Creature
	if c == nil {
		return false
	}
	c.EnsureInitialized()
	v, ok := c.Property(rule.WhenProperty)
	return ok && v < rule.Threshold
}

// findTarget - первая видимая сущность с тегом, кроме самого агента
func (p *ScriptedPolicy) findTarget(ws *world.Store, obs perception.Observation, tag string) (domain.EntityID, bool) {
	for _, view := range obs.Entities {
		if view.ID == obs.AgentID {
			continue
		}
		ent := ws.Entity(view.ID)
		if ent != nil && ent.HasTag(tag) {
			return ent.ID, true
		}
	}
	return "", false
}
