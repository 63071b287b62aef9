package models

// The level curve. Total points convert to levels by repeatedly
// subtracting the per-level requirement until the remainder goes
// negative.

// PointsTillNextLevel returns how many points are needed to get from
// level to level+1. The float truncation is load-bearing: level 0 costs
// exactly 80 points, level 5 costs 664 (not 665).
func PointsTillNextLevel(level int) int {
	l := float64(level)
	return int(7.79*l*l + 77.9*l + 80)
}

// LevelForPoints converts total points to a level.
func LevelForPoints(points int) int {
	level := 0
	for {
		points -= PointsTillNextLevel(level)
		if points < 0 {
			return level
		}
		level++
	}
}

// XPProgress takes total points and returns the XP gathered on the
// current level and the XP the current level requires.
func XPProgress(points int) (current, needed int) {
	level := 0
	for {
		points -= PointsTillNextLevel(level)
		needed = PointsTillNextLevel(level)
		if points < 0 {
			return current, needed
		}
		current = points
		level++
	}
}
