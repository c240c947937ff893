package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/world"
	"sandbox-server/pkg/logger"
)

// Bundle - загруженные определения мира: шаблоны + рецепты + сборщик.
// Сам мир (Store) собирается отдельно из World.yaml.
type Bundle struct {
	WorldName string
	Templates map[string]*EntityTemplate
	Recipes   map[string]*domain.Recipe
	Builder   *Builder
}

// Loader читает каталог данных:
//
//	<dir>/Recipes.yaml
//	<dir>/Entities/*.yaml
//	<dir>/World.yaml
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load читает и валидирует определения (без сборки мира)
func (l *Loader) Load() (*Bundle, error) {
	recipes, err := l.loadRecipes()
	if err != nil {
		return nil, err
	}
	templates, err := l.loadTemplates()
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Templates: templates,
		Recipes:   recipes,
		Builder:   NewBuilder(templates),
	}
	if err := l.checkReferences(b); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"templates": len(templates),
		"recipes":   len(recipes),
	}).Info("World definitions loaded")
	return b, nil
}

func (l *Loader) loadRecipes() (map[string]*domain.Recipe, error) {
	path := filepath.Join(l.dir, "Recipes.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := validateYAML(raw, "recipes.json"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var doc RecipesDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	// ID рецепта - ключ карты
	for id, r := range doc.Recipes {
		r.ID = id
	}
	return doc.Recipes, nil
}

// loadTemplates сливает все файлы Entities/*.yaml.
// Дубликат ID шаблона между файлами - ошибка данных.
func (l *Loader) loadTemplates() (map[string]*EntityTemplate, error) {
	pattern := filepath.Join(l.dir, "Entities", "*.yaml")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no entity templates found at %s", pattern)
	}
	sort.Strings(files)

	merged := make(map[string]*EntityTemplate)
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := validateYAML(raw, "templates.json"); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		var doc TemplatesDoc
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for id, tpl := range doc.Templates {
			if _, exists := merged[id]; exists {
				return nil, fmt.Errorf("%s: duplicate template id %q", path, id)
			}
			merged[id] = tpl
		}
	}
	return merged, nil
}

// checkReferences - семантические проверки между файлами:
// CreateEntity в рецептах обязан ссылаться на существующий шаблон
func (l *Loader) checkReferences(b *Bundle) error {
	for id, r := range b.Recipes {
		for _, eff := range collectEffects(r) {
			if eff.Effect == domain.EffectCreateEntity && !b.Builder.HasTemplate(eff.Template) {
				return fmt.Errorf("recipe %s: CreateEntity references unknown template %q", id, eff.Template)
			}
			if eff.Effect == domain.EffectUnknown {
				return fmt.Errorf("recipe %s: unknown effect type in data", id)
			}
		}
	}
	return nil
}

func collectEffects(r *domain.Recipe) []domain.EffectTemplate {
	var all []domain.EffectTemplate
	all = append(all, r.Outputs...)
	all = append(all, r.CancelEffects...)
	if r.Progression != nil {
		all = append(all, r.Progression.TickEffects...)
	}
	return all
}

// BuildWorld собирает стартовый Store из World.yaml.
// Две фазы: сначала все локации и сущности, затем вложение в контейнеры
// (parent_container может ссылаться на инстанс, объявленный позже).
func (l *Loader) BuildWorld(b *Bundle) (*world.Store, error) {
	path := filepath.Join(l.dir, "World.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := validateYAML(raw, "world.json"); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var doc WorldDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	b.WorldName = doc.Name

	ws := world.NewStore()

	// Локации в детерминированном порядке
	locIDs := make([]string, 0, len(doc.Locations))
	for id := range doc.Locations {
		locIDs = append(locIDs, id)
	}
	sort.Strings(locIDs)
	for _, id := range locIDs {
		spec := doc.Locations[id]
		loc := &domain.Location{
			ID:          id,
			Name:        spec.Name,
			Description: spec.Description,
			Connections: spec.Connections,
		}
		if err := ws.RegisterLocation(loc); err != nil {
			return nil, err
		}
	}
	for id, spec := range doc.Locations {
		for path, dest := range spec.Connections {
			if ws.Location(dest) == nil {
				return nil, fmt.Errorf("location %s: connection %q points to unknown location %q", id, path, dest)
			}
		}
	}

	// Фаза 1: создание и размещение по локациям (порядок объявления =
	// порядок создания = порядок обработки в тике)
	for _, spec := range doc.Entities {
		ent, err := b.Builder.CreateInstance(spec)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", spec.ID, err)
		}
		if err := ws.RegisterEntity(ent); err != nil {
			return nil, err
		}
		if spec.Location != "" {
			if ws.Location(spec.Location) == nil {
				return nil, fmt.Errorf("entity %s: unknown location %q", spec.ID, spec.Location)
			}
			ws.EnsureEntityInLocation(ent.ID, spec.Location)
		}
	}

	// Фаза 2: вложение в контейнеры
	for _, spec := range doc.Entities {
		if spec.ParentContainer == "" {
			continue
		}
		if err := placeInContainer(ws, spec); err != nil {
			return nil, fmt.Errorf("entity %s: %w", spec.ID, err)
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"world":     doc.Name,
		"locations": len(doc.Locations),
		"entities":  len(doc.Entities),
	}).Info("World assembled")
	return ws, nil
}

func placeInContainer(ws *world.Store, spec *InstanceSpec) error {
	parent := ws.Entity(domain.EntityID(spec.ParentContainer))
	if parent == nil {
		return fmt.Errorf("parent container %q not found", spec.ParentContainer)
	}
	if parent.Container == nil {
		return fmt.Errorf("parent %q has no ContainerComponent", spec.ParentContainer)
	}
	ent := ws.Entity(domain.EntityID(spec.ID))

	// Вложенность обязана оставаться лесом: та же защита ацикличности,
	// что у executor'а на TransferEntity, только на этапе загрузки
	if parent.ID == ent.ID || ws.IsDescendantOf(parent.ID, ent.ID) {
		return fmt.Errorf("containment cycle: parent %q is inside %q", spec.ParentContainer, spec.ID)
	}

	var slot *domain.ContainerSlot
	if spec.Slot != "" {
		slot = parent.Container.Slots[spec.Slot]
		if slot == nil {
			return fmt.Errorf("parent %q has no slot %q", spec.ParentContainer, spec.Slot)
		}
	} else {
		slot = parent.Container.FindSlotFor(ent.AllTags())
		if slot == nil {
			return fmt.Errorf("no slot in %q accepts %q", spec.ParentContainer, spec.ID)
		}
	}
	slot.Items = append(slot.Items, ent.ID)

	// Двойная индексация: вложенная сущность числится и в локации родителя
	if loc := ws.LocationOf(parent.ID); loc != nil {
		ws.EnsureEntityInLocation(ent.ID, loc.ID)
	}
	return nil
}
