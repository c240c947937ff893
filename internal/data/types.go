package data

import "sandbox-server/internal/domain"

// Форматы YAML-данных мира. Данные описывают ЧТО существует;
// семантика (эффекты, видимость, задачи) живет в ядре.

// TemplatesDoc - файл Entities/*.yaml
type TemplatesDoc struct {
	Templates map[string]*EntityTemplate `yaml:"templates"`
}

// EntityTemplate - прототип сущности. Инстанцирование всегда делает
// глубокую копию компонентов: шаблоны переиспользуются.
type EntityTemplate struct {
	Name   string  `yaml:"name"`
	Volume float64 `yaml:"volume"`
	Weight float64 `yaml:"weight"`

	Components ComponentSpec `yaml:"components"`
}

// ComponentSpec - набор компонентов в данных (nil = компонент отсутствует).
// Ключи - канонические имена компонентов.
type ComponentSpec struct {
	Tags      *domain.TagComponent             `yaml:"TagComponent"`
	Container *ContainerSpec                   `yaml:"ContainerComponent"`
	Creature  *domain.CreatureComponent        `yaml:"CreatureComponent"`
	Worker    *domain.WorkerComponent          `yaml:"WorkerComponent"`
	TaskHost  *TaskHostSpec                    `yaml:"TaskHostComponent"`
	Arbiter   *domain.DecisionArbiterComponent `yaml:"DecisionArbiterComponent"`
	Control   *domain.AgentControlComponent    `yaml:"AgentControlComponent"`
}

// ContainerSpec - слоты контейнера в данных (без содержимого:
// наполнение описывается инстансами с parent_container)
type ContainerSpec struct {
	Slots map[string]domain.SlotConfig `yaml:"slots"`
}

// TaskHostSpec - маркер без полей
type TaskHostSpec struct{}

// RecipesDoc - файл Recipes.yaml
type RecipesDoc struct {
	Recipes map[string]*domain.Recipe `yaml:"recipes"`
}

// WorldDoc - файл World.yaml: граф локаций + стартовые инстансы
type WorldDoc struct {
	Name      string                   `yaml:"name"`
	Locations map[string]*LocationSpec `yaml:"locations"`
	Entities  []*InstanceSpec          `yaml:"entities"`
}

type LocationSpec struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Connections map[string]string `yaml:"connections"`
}

// InstanceSpec - стартовая сущность мира.
// Размещение: либо location, либо parent_container (вторая фаза сборки,
// когда все инстансы уже созданы).
type InstanceSpec struct {
	ID       string `yaml:"id"`
	Template string `yaml:"template"`

	// Переопределение имени шаблона (пусто = имя шаблона)
	Name string `yaml:"name"`

	Location        string `yaml:"location"`
	ParentContainer string `yaml:"parent_container"`
	// Имя слота родителя (пусто = первый подходящий)
	Slot string `yaml:"slot"`

	// Точечные переопределения компонентов шаблона
	Overrides ComponentSpec `yaml:"components"`
}
