package interaction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/world"
)

// Engine - движок рецептов. Матчинг - чистая функция своих входов:
// (актор, verb, цель, параметры, снимок видимости) -> рецепт или код осечки.
// Никакого скрытого состояния и случайности: реплей обязан быть бит-в-бит.
type Engine struct {
	recipes map[string]*domain.Recipe

	// verb -> ID рецептов в детерминированном порядке (приоритет, затем ID)
	byVerb map[string][]string

	// Скомпилированные схемы параметров (готовятся при загрузке, не при матчинге)
	schemas map[string]*jsonschema.Schema

	resolver *perception.Resolver
}

// MatchResult - результат матчинга: либо рецепт, либо типизированная осечка
type MatchResult struct {
	Recipe *domain.Recipe
	Reason domain.FailureReason
}

func (m MatchResult) OK() bool {
	return m.Recipe != nil
}

// NewEngine строит движок по таблице рецептов. Схемы параметров
// компилируются здесь: кривой рецепт отклоняется при загрузке,
// а не в момент матчинга.
func NewEngine(recipes map[string]*domain.Recipe, resolver *perception.Resolver) (*Engine, error) {
	e := &Engine{
		recipes:  recipes,
		byVerb:   make(map[string][]string),
		schemas:  make(map[string]*jsonschema.Schema),
		resolver: resolver,
	}

	for id, r := range recipes {
		e.byVerb[r.Verb] = append(e.byVerb[r.Verb], id)

		if r.ParamsSchema != nil {
			sch, err := compileParamsSchema(id, r.ParamsSchema)
			if err != nil {
				return nil, fmt.Errorf("recipe %s: invalid params_schema: %w", id, err)
			}
			e.schemas[id] = sch
		}
	}

	// Порядок кандидатов: приоритет по убыванию, тай-брейк - ID по возрастанию
	for verb := range e.byVerb {
		ids := e.byVerb[verb]
		sort.Slice(ids, func(i, j int) bool {
			ri, rj := recipes[ids[i]], recipes[ids[j]]
			if ri.Priority != rj.Priority {
				return ri.Priority > rj.Priority
			}
			return ids[i] < ids[j]
		})
	}

	return e, nil
}

func compileParamsSchema(recipeID string, raw map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	url := "recipe:///" + recipeID + "/params.json"
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

func (e *Engine) Recipes() map[string]*domain.Recipe {
	return e.recipes
}

// Match подбирает рецепт для запроса актора.
//
// Алгоритм (фиксированный, см. тесты детерминизма):
//  1. кандидаты по verb; пусто -> NO_RECIPE
//  2. цель отсутствует или вне Visible(actor) -> NO_TARGET
//  3. теги цели / компоненты и теги актора -> PRECONDITION_FAILED
//  4. параметры против схемы рецепта -> PARAM_INVALID
//  5. из выживших берется первый в порядке (priority desc, id asc)
//
// Если выживших нет, возвращается самая "поздняя" достигнутая осечка:
// кандидат, упавший только на параметрах, дает PARAM_INVALID, а не NO_RECIPE.
func (e *Engine) Match(ws *world.Store, actorID domain.EntityID, req domain.Request) MatchResult {
	candidates := e.byVerb[req.Verb]
	if len(candidates) == 0 {
		return MatchResult{Reason: domain.FailureNoRecipe}
	}

	target := ws.Entity(req.TargetID)
	if target == nil || !e.resolver.CanSee(ws, actorID, req.TargetID) {
		return MatchResult{Reason: domain.FailureNoTarget}
	}

	actor := ws.Entity(actorID)
	if actor == nil {
		return MatchResult{Reason: domain.FailureNoTarget}
	}

	best := domain.FailureNoRecipe
	for _, id := range candidates {
		r := e.recipes[id]

		if !hasAllTags(target, r.TargetTags) || !actorSatisfies(actor, r) {
			best = worse(best, domain.FailurePreconditionFailed)
			continue
		}

		if sch := e.schemas[id]; sch != nil {
			if err := sch.Validate(normalizeParams(req.Parameters)); err != nil {
				best = worse(best, domain.FailureParamInvalid)
				continue
			}
		}

		return MatchResult{Recipe: r}
	}

	return MatchResult{Reason: best}
}

func hasAllTags(e *domain.Entity, tags []string) bool {
	for _, t := range tags {
		if !e.HasTag(t) {
			return false
		}
	}
	return true
}

func actorSatisfies(actor *domain.Entity, r *domain.Recipe) bool {
	for _, comp := range r.ActorComponents {
		if !actor.HasComponent(comp) {
			return false
		}
	}
	for _, t := range r.ActorTags {
		if !actor.HasTag(t) {
			return false
		}
	}
	return true
}

// worse выбирает более специфичную осечку (дальше по конвейеру = специфичнее)
func worse(a, b domain.FailureReason) domain.FailureReason {
	rank := func(r domain.FailureReason) int {
		switch r {
		case domain.FailureParamInvalid:
			return 2
		case domain.FailurePreconditionFailed:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// normalizeParams приводит параметры к формам, которые понимает валидатор
// (jsonschema ждет типы из encoding/json: map[string]any, float64, ...)
func normalizeParams(params map[string]any) any {
	if params == nil {
		return map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return params
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return params
	}
	return out
}
