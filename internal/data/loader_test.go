package data

import (
	"os"
	"path/filepath"
	"testing"

	"sandbox-server/internal/domain"
	"sandbox-server/pkg/logger"
)

func init() {
	logger.Init()
}

const testRecipesYAML = `recipes:
  chop_tree:
    verb: chop
    priority: 10
    target_tags: [choppable]
    actor_components: [WorkerComponent]
    process:
      required_progress: 3
    progression:
      base_progress_per_tick: 1
      tick_effects:
        - effect: ModifyProperty
          target: actor
          component: CreatureComponent
          property: energy
          change: -1
    outputs:
      - effect: DestroyEntity
        target: target
      - effect: CreateEntity
        template: log
        destination:
          type: location
  consume:
    verb: consume
    target_tags: [edible]
    outputs:
      - effect: ModifyProperty
        target: actor
        component: CreatureComponent
        property: nutrition
        change: 30
      - effect: DestroyEntity
        target: target
`

const testEntitiesYAML = `templates:
  villager:
    name: Крестьянин
    components:
      TagComponent:
        tags: [creature, humanoid]
      CreatureComponent:
        max_hp: 100
        max_energy: 100
        max_nutrition: 100
      WorkerComponent: {}
      TaskHostComponent: {}
  log:
    name: Бревно
    components:
      TagComponent:
        tags: [wood]
  bread:
    name: Хлеб
    components:
      TagComponent:
        tags: [edible, food]
  basket:
    name: Корзина
    components:
      ContainerComponent:
        slots:
          open_top:
            transparent: true
            capacity_count: 5
            accepted_tags: [food]
`

const testWorldYAML = `name: test_valley
locations:
  forest:
    name: Лес
    connections:
      south: village
  village:
    name: Деревня
    connections:
      north: forest
entities:
  - id: villager_01
    template: villager
    name: Иван
    location: forest
  - id: basket_01
    template: basket
    location: forest
  - id: bread_01
    template: bread
    parent_container: basket_01
    slot: open_top
`

func writeBundle(t *testing.T, recipes, entities, worldDoc string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "Entities"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"Recipes.yaml":            recipes,
		"Entities/creatures.yaml": entities,
		"World.yaml":              worldDoc,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadHappyPath(t *testing.T) {
	dir := writeBundle(t, testRecipesYAML, testEntitiesYAML, testWorldYAML)

	b, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatal(err)
	}

	if len(b.Templates) != 4 {
		t.Errorf("templates = %d, want 4", len(b.Templates))
	}
	if len(b.Recipes) != 2 {
		t.Errorf("recipes = %d, want 2", len(b.Recipes))
	}

	chop := b.Recipes["chop_tree"]
	if chop == nil {
		t.Fatal("chop_tree missing")
	}
	// ID берется из ключа карты
	if chop.ID != "chop_tree" {
		t.Errorf("ID = %q", chop.ID)
	}
	if chop.IsInstant() {
		t.Error("required_progress 3 means durable")
	}
	if chop.Progression == nil || chop.Progression.BasePerTick != 1 {
		t.Errorf("progression = %+v", chop.Progression)
	}
	if len(chop.Outputs) != 2 || chop.Outputs[0].Effect != domain.EffectDestroyEntity {
		t.Errorf("outputs = %+v", chop.Outputs)
	}

	if !b.Recipes["consume"].IsInstant() {
		t.Error("consume must be instant")
	}
}

func TestLoadRejectsRecipeWithoutVerb(t *testing.T) {
	broken := `recipes:
  bad:
    priority: 1
`
	dir := writeBundle(t, broken, testEntitiesYAML, testWorldYAML)
	if _, err := NewLoader(dir).Load(); err == nil {
		t.Fatal("recipe without verb must fail schema validation")
	}
}

func TestLoadRejectsUnknownEffect(t *testing.T) {
	broken := `recipes:
  bad:
    verb: zap
    outputs:
      - effect: Teleport
`
	dir := writeBundle(t, broken, testEntitiesYAML, testWorldYAML)
	if _, err := NewLoader(dir).Load(); err == nil {
		t.Fatal("unknown effect type must be rejected")
	}
}

func TestLoadRejectsUnknownCreateTemplate(t *testing.T) {
	broken := `recipes:
  bad:
    verb: conjure
    outputs:
      - effect: CreateEntity
        template: no_such_template
        destination:
          type: location
`
	dir := writeBundle(t, broken, testEntitiesYAML, testWorldYAML)
	if _, err := NewLoader(dir).Load(); err == nil {
		t.Fatal("CreateEntity with unknown template must be rejected")
	}
}

func TestLoadRejectsDuplicateTemplates(t *testing.T) {
	dir := writeBundle(t, testRecipesYAML, testEntitiesYAML, testWorldYAML)
	dup := `templates:
  log:
    name: Второе бревно
`
	if err := os.WriteFile(filepath.Join(dir, "Entities", "items.yaml"), []byte(dup), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(dir).Load(); err == nil {
		t.Fatal("duplicate template id across files must be rejected")
	}
}

func TestBuildWorld(t *testing.T) {
	dir := writeBundle(t, testRecipesYAML, testEntitiesYAML, testWorldYAML)
	l := NewLoader(dir)
	b, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}

	ws, err := l.BuildWorld(b)
	if err != nil {
		t.Fatal(err)
	}
	if b.WorldName != "test_valley" {
		t.Errorf("WorldName = %q", b.WorldName)
	}
	if len(ws.Locations()) != 2 {
		t.Errorf("locations = %d, want 2", len(ws.Locations()))
	}

	villager := ws.Entity("villager_01")
	if villager == nil {
		t.Fatal("villager_01 missing")
	}
	// Переопределение имени инстансом
	if villager.Name != "Иван" {
		t.Errorf("Name = %q, want instance override", villager.Name)
	}
	if villager.Creature == nil || villager.Worker == nil {
		t.Error("template components must be instantiated")
	}

	// Вложение: хлеб лежит в корзине И числится в локации корзины
	basket := ws.Entity("basket_01")
	if basket == nil || !basket.Container.HasItem("bread_01") {
		t.Fatal("bread_01 must be inside basket_01")
	}
	if !ws.Location("forest").Contains("bread_01") {
		t.Error("contained item must be double-indexed in the location")
	}
	if loc := ws.LocationOf("bread_01"); loc == nil || loc.ID != "forest" {
		t.Error("LocationOf must resolve through the container chain")
	}
}

func TestBuildWorldRejectsBadConnection(t *testing.T) {
	broken := `name: test
locations:
  forest:
    name: Лес
    connections:
      south: nowhere
`
	dir := writeBundle(t, testRecipesYAML, testEntitiesYAML, broken)
	l := NewLoader(dir)
	b, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.BuildWorld(b); err == nil {
		t.Fatal("connection to unknown location must be rejected")
	}
}

func TestBuildWorldRejectsContainmentCycle(t *testing.T) {
	// Две корзины, вложенные друг в друга: вложенность обязана
	// оставаться лесом, иначе обходы контейнеров зацикливаются
	broken := `name: test
locations:
  forest:
    name: Лес
entities:
  - id: basket_a
    template: basket
    location: forest
    parent_container: basket_b
    slot: open_top
  - id: basket_b
    template: basket
    parent_container: basket_a
    slot: open_top
`
	dir := writeBundle(t, testRecipesYAML, testEntitiesYAML, broken)
	l := NewLoader(dir)
	b, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.BuildWorld(b); err == nil {
		t.Fatal("containment cycle in world data must be rejected")
	}
}

func TestTemplatesAreNotShared(t *testing.T) {
	dir := writeBundle(t, testRecipesYAML, testEntitiesYAML, testWorldYAML)
	b, err := NewLoader(dir).Load()
	if err != nil {
		t.Fatal(err)
	}

	first, err := b.Builder.CreateFromTemplate("villager", "v1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := b.Builder.CreateFromTemplate("villager", "v2")
	if err != nil {
		t.Fatal(err)
	}

	first.Creature.HP = 1
	first.Tags.Tags[0] = "mutated"

	if second.Creature.HP == 1 {
		t.Error("creature component must be deep-copied per instance")
	}
	if second.Tags.Tags[0] == "mutated" {
		t.Error("tag slice must be deep-copied per instance")
	}
}
