package interaction

import (
	"testing"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/world"
)

func testRecipes() map[string]*domain.Recipe {
	return map[string]*domain.Recipe{
		"chop_tree": {
			ID:              "chop_tree",
			Verb:            "chop",
			Priority:        10,
			TargetTags:      []string{"choppable"},
			ActorComponents: []string{domain.CompWorker},
			Process:         domain.Process{RequiredProgress: 3},
		},
		// Тот же verb, выше приоритет, но жестче предикат
		"chop_sacred": {
			ID:         "chop_sacred",
			Verb:       "chop",
			Priority:   20,
			TargetTags: []string{"choppable", "sacred"},
		},
		"shout": {
			ID:         "shout",
			Verb:       "shout",
			Priority:   1,
			TargetTags: []string{"creature"},
			ParamsSchema: map[string]any{
				"type":     "object",
				"required": []any{"message"},
				"properties": map[string]any{
					"message": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	}
}

func buildMatchWorld(t *testing.T) *world.Store {
	t.Helper()
	ws := world.NewStore()
	if err := ws.RegisterLocation(&domain.Location{ID: "forest"}); err != nil {
		t.Fatal(err)
	}

	actor := &domain.Entity{
		ID:     "npc",
		Tags:   &domain.TagComponent{Tags: []string{"creature"}},
		Worker: &domain.WorkerComponent{},
	}
	tree := &domain.Entity{
		ID:   "tree",
		Tags: &domain.TagComponent{Tags: []string{"choppable"}},
	}
	rock := &domain.Entity{ID: "rock"}
	for _, e := range []*domain.Entity{actor, tree, rock} {
		if err := ws.RegisterEntity(e); err != nil {
			t.Fatal(err)
		}
		ws.EnsureEntityInLocation(e.ID, "forest")
	}
	return ws
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(testRecipes(), perception.NewResolver())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestMatchFailureCodes(t *testing.T) {
	ws := buildMatchWorld(t)
	e := newTestEngine(t)

	tests := []struct {
		name   string
		req    domain.Request
		reason domain.FailureReason
	}{
		{
			name:   "unknown verb",
			req:    domain.Request{Verb: "fly", TargetID: "tree"},
			reason: domain.FailureNoRecipe,
		},
		{
			name:   "missing target",
			req:    domain.Request{Verb: "chop", TargetID: "ghost"},
			reason: domain.FailureNoTarget,
		},
		{
			name:   "target tags mismatch",
			req:    domain.Request{Verb: "chop", TargetID: "rock"},
			reason: domain.FailurePreconditionFailed,
		},
		{
			name:   "params fail schema",
			req:    domain.Request{Verb: "shout", TargetID: "npc", Parameters: map[string]any{"message": ""}},
			reason: domain.FailureParamInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := e.Match(ws, "npc", tt.req)
			if m.OK() {
				t.Fatalf("expected failure %s, got recipe %s", tt.reason, m.Recipe.ID)
			}
			if m.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", m.Reason, tt.reason)
			}
		})
	}
}

func TestMatchPicksByPriorityThenID(t *testing.T) {
	ws := buildMatchWorld(t)
	e := newTestEngine(t)

	// chop_sacred приоритетнее, но дерево не sacred -> берется chop_tree
	m := e.Match(ws, "npc", domain.Request{Verb: "chop", TargetID: "tree"})
	if !m.OK() || m.Recipe.ID != "chop_tree" {
		t.Fatalf("match = %+v, want chop_tree", m)
	}

	// Освятим дерево: теперь выигрывает приоритет
	tree := ws.Entity("tree")
	tree.Tags.Tags = append(tree.Tags.Tags, "sacred")
	m = e.Match(ws, "npc", domain.Request{Verb: "chop", TargetID: "tree"})
	if !m.OK() || m.Recipe.ID != "chop_sacred" {
		t.Fatalf("match = %+v, want chop_sacred", m)
	}
}

func TestMatchRequiresVisibility(t *testing.T) {
	ws := buildMatchWorld(t)
	e := newTestEngine(t)

	// Прячем дерево в непрозрачный сундук
	chest := &domain.Entity{
		ID: "chest",
		Container: &domain.ContainerComponent{
			Slots: map[string]*domain.ContainerSlot{
				"main": {Items: []domain.EntityID{"tree"}},
			},
		},
	}
	if err := ws.RegisterEntity(chest); err != nil {
		t.Fatal(err)
	}
	ws.EnsureEntityInLocation("chest", "forest")

	m := e.Match(ws, "npc", domain.Request{Verb: "chop", TargetID: "tree"})
	if m.Reason != domain.FailureNoTarget {
		t.Fatalf("reason = %s, want NO_TARGET for invisible target", m.Reason)
	}
}

func TestMatchIsPure(t *testing.T) {
	ws := buildMatchWorld(t)
	e := newTestEngine(t)

	before := len(ws.EventLog())
	req := domain.Request{Verb: "chop", TargetID: "tree"}
	first := e.Match(ws, "npc", req)
	second := e.Match(ws, "npc", req)

	if first.Recipe != second.Recipe || first.Reason != second.Reason {
		t.Error("same inputs must give the same match")
	}
	if len(ws.EventLog()) != before {
		t.Error("matching must not write to the world")
	}
}

func TestNewEngineRejectsBrokenParamsSchema(t *testing.T) {
	recipes := map[string]*domain.Recipe{
		"bad": {
			ID:   "bad",
			Verb: "x",
			ParamsSchema: map[string]any{
				"type": 42,
			},
		},
	}
	if _, err := NewEngine(recipes, perception.NewResolver()); err == nil {
		t.Fatal("broken schema must be rejected at load time")
	}
}
