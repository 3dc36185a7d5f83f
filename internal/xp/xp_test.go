package xp

import (
	"testing"

	"flowtrack/internal/model"
)

func levelTable() []model.LevelRequirement {
	return []model.LevelRequirement{
		{Level: 1, XPRequired: 0, XPTotal: 0},
		{Level: 2, XPRequired: 100, XPTotal: 100},
		{Level: 3, XPRequired: 150, XPTotal: 250},
		{Level: 4, XPRequired: 200, XPTotal: 450},
	}
}

func TestTaskXP(t *testing.T) {
	cases := []struct {
		priority  model.Priority
		completed int
		want      int
	}{
		{model.PriorityLow, 0, 10},
		{model.PriorityMedium, 0, 15},
		{model.PriorityHigh, 0, 20},
		{model.PriorityCritical, 0, 30},
		{model.PriorityHigh, 2, 30},
		{model.PriorityLow, 3, 25},
		{"unknown", 0, 10},
		{model.PriorityLow, -1, 10},
	}
	for _, tc := range cases {
		if got := TaskXP(tc.priority, tc.completed); got != tc.want {
			t.Errorf("TaskXP(%s, %d) = %d, want %d", tc.priority, tc.completed, got, tc.want)
		}
	}
}

func TestTaskXPPriorityOrdering(t *testing.T) {
	for n := 0; n < 5; n++ {
		low := TaskXP(model.PriorityLow, n)
		med := TaskXP(model.PriorityMedium, n)
		high := TaskXP(model.PriorityHigh, n)
		crit := TaskXP(model.PriorityCritical, n)
		if !(crit > high && high > med && med > low) {
			t.Errorf("priority ordering broken at n=%d: %d %d %d %d", n, low, med, high, crit)
		}
	}
}

func TestTaskXPMonotonicInSubtasks(t *testing.T) {
	for _, p := range []model.Priority{model.PriorityLow, model.PriorityCritical} {
		prev := -1
		for n := 0; n < 10; n++ {
			got := TaskXP(p, n)
			if got < prev {
				t.Errorf("TaskXP(%s, %d) = %d decreased from %d", p, n, got, prev)
			}
			prev = got
		}
	}
}

func TestXPBreakdown(t *testing.T) {
	b := XPBreakdown(model.PriorityHigh, 2)
	if b.BaseXP != 10 || b.PriorityBonus != 10 || b.SubtaskBonus != 10 || b.TotalXP != 30 {
		t.Errorf("unexpected breakdown: %+v", b)
	}
	if b.BaseXP+b.PriorityBonus+b.SubtaskBonus != b.TotalXP {
		t.Error("breakdown parts do not sum to total")
	}
}

func TestLevel(t *testing.T) {
	reqs := levelTable()
	cases := []struct {
		totalXP int
		want    int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{450, 4},
		{10000, 4},
	}
	for _, tc := range cases {
		if got := Level(tc.totalXP, reqs); got != tc.want {
			t.Errorf("Level(%d) = %d, want %d", tc.totalXP, got, tc.want)
		}
	}

	if got := Level(500, nil); got != 1 {
		t.Errorf("empty table: got level %d, want 1", got)
	}
}

func TestLevelMonotonic(t *testing.T) {
	reqs := levelTable()
	prev := 0
	for x := 0; x <= 500; x += 10 {
		lvl := Level(x, reqs)
		if lvl < prev {
			t.Fatalf("Level(%d) = %d decreased from %d", x, lvl, prev)
		}
		prev = lvl
	}
}

func TestProgressToNext(t *testing.T) {
	reqs := levelTable()

	// Exactly at the level-2 threshold.
	p := ProgressToNext(100, 2, reqs)
	if p.ProgressXP != 0 || p.ProgressPercentage != 0 {
		t.Errorf("at threshold: %+v", p)
	}
	if p.CurrentLevelXP != 100 || p.NextLevelXP != 250 {
		t.Errorf("threshold bounds: %+v", p)
	}

	// One XP short of level 3.
	p = ProgressToNext(249, 2, reqs)
	if p.ProgressPercentage >= 100 || p.ProgressPercentage < 99 {
		t.Errorf("near threshold percentage = %d", p.ProgressPercentage)
	}

	// Midway through level 2.
	p = ProgressToNext(175, 2, reqs)
	if p.ProgressXP != 75 || p.ProgressPercentage != 50 {
		t.Errorf("midway: %+v", p)
	}

	// Top level is maxed out.
	p = ProgressToNext(450, 4, reqs)
	if p.ProgressPercentage != 100 || p.CurrentLevelXP != 0 || p.NextLevelXP != 0 || p.ProgressXP != 0 {
		t.Errorf("maxed out: %+v", p)
	}
}

func TestSubtaskProgress(t *testing.T) {
	cases := []struct {
		name      string
		subtasks  []model.Subtask
		completed int
		pct       int
	}{
		{"empty", nil, 0, 0},
		{"none done", []model.Subtask{{}, {}}, 0, 0},
		{"partial", []model.Subtask{{Completed: true}, {}, {}}, 1, 33},
		{"all done", []model.Subtask{{Completed: true}, {Completed: true}}, 2, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SubtaskProgress(tc.subtasks)
			if got.Completed != tc.completed || got.Total != len(tc.subtasks) || got.Percentage != tc.pct {
				t.Errorf("summary = %+v, want %d/%d at %d%%", got, tc.completed, len(tc.subtasks), tc.pct)
			}
		})
	}
}
