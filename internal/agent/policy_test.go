package agent

import (
	"testing"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/world"
)

func buildPolicyWorld(t *testing.T, nutrition float64) *world.Store {
	t.Helper()
	ws := world.NewStore()
	if err := ws.RegisterLocation(&domain.Location{ID: "forest"}); err != nil {
		t.Fatal(err)
	}

	agent := &domain.Entity{
		ID:   "npc",
		Tags: &domain.TagComponent{Tags: []string{"creature", "edible"}},
		Creature: &domain.CreatureComponent{
			MaxHP: 100, MaxEnergy: 100, MaxNutrition: 100,
			Nutrition: nutrition,
		},
	}
	tree := &domain.Entity{ID: "tree", Tags: &domain.TagComponent{Tags: []string{"choppable"}}}
	bread := &domain.Entity{ID: "bread", Tags: &domain.TagComponent{Tags: []string{"edible"}}}
	for _, e := range []*domain.Entity{agent, tree, bread} {
		if err := ws.RegisterEntity(e); err != nil {
			t.Fatal(err)
		}
		ws.EnsureEntityInLocation(e.ID, "forest")
	}
	return ws
}

func observe(ws *world.Store) perception.Observation {
	return perception.NewResolver().Observe(ws, "npc", nil)
}

func TestHungryAgentEats(t *testing.T) {
	ws := buildPolicyWorld(t, 10)
	req, ok := DefaultPolicy().NextAction(ws, observe(ws))
	if !ok {
		t.Fatal("hungry agent must act")
	}
	if req.Verb != "consume" || req.TargetID != "bread" {
		t.Errorf("req = %+v, want consume bread", req)
	}
}

func TestFedAgentWorks(t *testing.T) {
	ws := buildPolicyWorld(t, 90)
	req, ok := DefaultPolicy().NextAction(ws, observe(ws))
	if !ok {
		t.Fatal("fed agent must fall through to work")
	}
	if req.Verb != "chop" || req.TargetID != "tree" {
		t.Errorf("req = %+v, want chop tree", req)
	}
}

func TestAgentNeverTargetsItself(t *testing.T) {
	ws := buildPolicyWorld(t, 10)
	// Убираем хлеб: единственная "съедобная" сущность - сам агент
	ws.RemoveEntityRow("bread")

	req, ok := DefaultPolicy().NextAction(ws, observe(ws))
	if ok && req.TargetID == "npc" {
		t.Errorf("req = %+v: agent must not eat itself", req)
	}
}
