package data

import (
	"fmt"

	"sandbox-server/internal/domain"
)

// Builder инстанцирует сущности из шаблонов.
// Используется и загрузчиком (стартовый мир), и executor'ом
// (эффект CreateEntity) - один и тот же путь сборки.
type Builder struct {
	templates map[string]*EntityTemplate
}

func NewBuilder(templates map[string]*EntityTemplate) *Builder {
	return &Builder{templates: templates}
}

func (b *Builder) HasTemplate(id string) bool {
	_, ok := b.templates[id]
	return ok
}

// CreateFromTemplate строит сущность по шаблону (executor.EntityFactory)
func (b *Builder) CreateFromTemplate(templateID string, instanceID domain.EntityID) (*domain.Entity, error) {
	tpl := b.templates[templateID]
	if tpl == nil {
		return nil, fmt.Errorf("unknown entity template: %s", templateID)
	}
	ent := &domain.Entity{
		ID:         instanceID,
		TemplateID: templateID,
		Name:       tpl.Name,
		Volume:     tpl.Volume,
		Weight:     tpl.Weight,
	}
	applyComponents(ent, tpl.Components)
	return ent, nil
}

// CreateInstance строит стартовую сущность с переопределениями из World.yaml
func (b *Builder) CreateInstance(spec *InstanceSpec) (*domain.Entity, error) {
	ent, err := b.CreateFromTemplate(spec.Template, domain.EntityID(spec.ID))
	if err != nil {
		return nil, err
	}
	if spec.Name != "" {
		ent.Name = spec.Name
	}
	applyComponents(ent, spec.Overrides)
	return ent, nil
}

// applyComponents накладывает спецификацию компонентов на сущность.
// Каждый заданный компонент ЗАМЕНЯЕТ одноименный целиком (глубокой копией:
// шаблон не должен делить состояние с инстансами).
func applyComponents(ent *domain.Entity, spec ComponentSpec) {
	if spec.Tags != nil {
		ent.Tags = &domain.TagComponent{Tags: copyStrings(spec.Tags.Tags)}
	}
	if spec.Container != nil {
		ent.Container = buildContainer(spec.Container)
	}
	if spec.Creature != nil {
		c := *spec.Creature
		ent.Creature = &c
	}
	if spec.Worker != nil {
		w := *spec.Worker
		ent.Worker = &w
	}
	if spec.TaskHost != nil {
		ent.TaskHost = &domain.TaskHostComponent{}
	}
	if spec.Arbiter != nil {
		rules := make([]domain.InterruptRuleSpec, len(spec.Arbiter.Rules))
		copy(rules, spec.Arbiter.Rules)
		ent.Arbiter = &domain.DecisionArbiterComponent{Rules: rules}
	}
	if spec.Control != nil {
		ctrl := *spec.Control
		ent.Control = &ctrl
	}
}

func buildContainer(spec *ContainerSpec) *domain.ContainerComponent {
	comp := &domain.ContainerComponent{Slots: make(map[string]*domain.ContainerSlot, len(spec.Slots))}
	for name, cfg := range spec.Slots {
		comp.Slots[name] = &domain.ContainerSlot{
			Config: domain.SlotConfig{
				Transparent:   cfg.Transparent,
				CapacityCount: cfg.CapacityCount,
				AcceptedTags:  copyStrings(cfg.AcceptedTags),
			},
		}
	}
	return comp
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
