package domain

import "testing"

func TestGameTimeCalendar(t *testing.T) {
	tests := []struct {
		name   string
		ticks  int
		hour   int
		minute int
	}{
		{name: "start of world", ticks: 0, hour: 0, minute: 0},
		{name: "one minute", ticks: 1, hour: 0, minute: 1},
		{name: "one hour", ticks: 60, hour: 1, minute: 0},
		{name: "end of day", ticks: 24*60 - 1, hour: 23, minute: 59},
		{name: "next day wraps", ticks: 24 * 60, hour: 0, minute: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt := GameTime{TotalTicks: tt.ticks}
			if got := gt.Hour(); got != tt.hour {
				t.Errorf("Hour() = %d, want %d", got, tt.hour)
			}
			if got := gt.Minute(); got != tt.minute {
				t.Errorf("Minute() = %d, want %d", got, tt.minute)
			}
		})
	}
}

func TestAdvanceTicksDayRollover(t *testing.T) {
	gt := GameTime{}

	if gt.AdvanceTicks(10) {
		t.Error("10 ticks should not roll the day")
	}
	if !gt.AdvanceTicks(gt.TicksPerDay()) {
		t.Error("a full day of ticks must roll the day")
	}
	if gt.TotalTicks != 10+gt.TicksPerDay() {
		t.Errorf("TotalTicks = %d", gt.TotalTicks)
	}
}

func TestParseEffectCaseInsensitive(t *testing.T) {
	if ParseEffect("modifyProperty") != EffectModifyProperty {
		t.Error("parse should ignore case")
	}
	if ParseEffect("no_such_effect") != EffectUnknown {
		t.Error("unknown strings must map to EffectUnknown")
	}
}

func TestEffectContextResolve(t *testing.T) {
	ctx := EffectContext{
		ActorID:  "npc_1",
		TargetID: "tree_1",
		Refs:     map[string]EntityID{"loot": "log_1"},
	}

	tests := []struct {
		key  string
		want EntityID
	}{
		{key: "", want: "tree_1"},
		{key: "target", want: "tree_1"},
		{key: "actor", want: "npc_1"},
		{key: "agent", want: "npc_1"},
		{key: "loot", want: "log_1"},
		// Неизвестный ключ трактуется как явный ID
		{key: "chest_7", want: "chest_7"},
	}
	for _, tt := range tests {
		if got := ctx.Resolve(tt.key); got != tt.want {
			t.Errorf("Resolve(%q) = %s, want %s", tt.key, got, tt.want)
		}
	}
}
