package models

import "testing"

func TestPointsTillNextLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 80},
		{1, 165},
		{2, 266},
		{5, 664},
		{10, 1638},
	}
	for _, tt := range tests {
		if got := PointsTillNextLevel(tt.level); got != tt.want {
			t.Errorf("PointsTillNextLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestLevelForPoints(t *testing.T) {
	if got := LevelForPoints(0); got != 0 {
		t.Errorf("LevelForPoints(0) = %d, want 0", got)
	}
	if got := LevelForPoints(79); got != 0 {
		t.Errorf("LevelForPoints(79) = %d, want 0", got)
	}
	if got := LevelForPoints(80); got != 1 {
		t.Errorf("LevelForPoints(80) = %d, want 1", got)
	}
}

func TestLevelMonotonicity(t *testing.T) {
	prev := 0
	for points := 0; points < 60000; points += 7 {
		level := LevelForPoints(points)
		if level < prev {
			t.Fatalf("level decreased at %d points: %d -> %d", points, prev, level)
		}
		prev = level
	}
}

// Level boundaries are exact: crossing the cumulative cost of the next
// level bumps the level by exactly one.
func TestLevelBoundaries(t *testing.T) {
	cumulative := 0
	for level := 0; level < 30; level++ {
		cost := PointsTillNextLevel(level)
		if got := LevelForPoints(cumulative + cost - 1); got != level {
			t.Errorf("just below boundary of level %d: got %d", level+1, got)
		}
		cumulative += cost
		if got := LevelForPoints(cumulative); got != level+1 {
			t.Errorf("at boundary of level %d: got %d", level+1, got)
		}
	}
}

func TestXPProgress(t *testing.T) {
	// 100 total points: level 1 reached at 80, 20 points into level 1
	// which requires 165.
	current, needed := XPProgress(100)
	if current != 20 || needed != 165 {
		t.Errorf("XPProgress(100) = (%d, %d), want (20, 165)", current, needed)
	}
	current, needed = XPProgress(0)
	if current != 0 || needed != 80 {
		t.Errorf("XPProgress(0) = (%d, %d), want (0, 80)", current, needed)
	}
}

func TestAddPointsLevelChange(t *testing.T) {
	u := &User{ID: 1, Stats: NewStats(1)}
	u.RefreshLevel()
	if u.AddPoints(50) {
		t.Error("50 points should not level up from 0")
	}
	if !u.AddPoints(40) {
		t.Error("crossing 80 total points should reach level 1")
	}
	if u.Level != 1 {
		t.Errorf("level = %d, want 1", u.Level)
	}
	if u.Stats.ActivityPointsToday != 90 {
		t.Errorf("ActivityPointsToday = %d, want 90", u.Stats.ActivityPointsToday)
	}
	if !u.Stats.ShouldUpdate {
		t.Error("AddPoints must mark stats dirty")
	}
}
