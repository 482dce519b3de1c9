package score

import (
	"fmt"
	"math"

	"github.com/steadyhq/steady/internal/features"
)

// Compute maps a feature snapshot to a score result. Pure function, no I/O.
//
// Every component is rounded to an integer at the point of computation,
// not only at the end; totals are only reproducible with per-component
// rounding.
func Compute(f *features.Snapshot) Result {
	consistency := consistencyScore(f)
	capacity := capacityScore(f)
	integrity := integrityScore(f)
	engagement := engagementQualityScore(f)

	total := consistency + capacity + integrity + engagement - inactivityPenalty(f)
	total = clamp(total, 0, MaxTotal)

	return Result{
		TotalScore: total,
		SubScores: SubScores{
			Consistency:       consistency,
			Capacity:          capacity,
			Integrity:         integrity,
			EngagementQuality: engagement,
		},
		Drivers: generateDrivers(f),
	}
}

// consistencyScore rewards streaks, recent active days and 90-day stability.
func consistencyScore(f *features.Snapshot) int {
	streakPoints := min(f.StreakDays, 60) * 2
	active30Points := min(f.ActiveDays30d, 30) * 3

	varianceStability := 90
	if f.ActiveDays90d < 45 {
		varianceStability = round(float64(f.ActiveDays90d) / 45 * 90)
	}

	return clamp(streakPoints+active30Points+round(float64(varianceStability)*0.3), 0, MaxConsistency)
}

// capacityScore combines mission completion rate with tenure.
func capacityScore(f *features.Snapshot) int {
	rate := math.Min(math.Max(f.CompletionRate90d, 0), 1)
	tenureFactor := math.Min(float64(f.TenureDays)/90, 1)
	return clamp(round(rate*150+tenureFactor*100), 0, MaxCapacity)
}

// integrityScore starts from a tenure-scaled base, subtracts weighted
// penalties and adds a clean-history bonus when there are no disputes,
// reversals or risk flags.
func integrityScore(f *features.Snapshot) int {
	base := min(200, round(float64(f.TenureDays)/90*200))

	penalty := f.DisputeCount90d*5 +
		f.ReversalCount90d*10 +
		f.VelocityFlags30d*20 +
		f.RiskFlags90d*40

	bonus := 0
	if f.DisputeCount90d == 0 && f.ReversalCount90d == 0 && f.RiskFlags90d == 0 {
		bonus = 30
	}

	return clamp(base-penalty+bonus, 0, MaxIntegrity)
}

func engagementQualityScore(f *features.Snapshot) int {
	meaningful := min(f.MeaningfulEvents30d*5, 100)
	diversity := min(f.DiversityIndex90d*20, 100)
	return clamp(meaningful+diversity, 0, MaxEngagement)
}

func inactivityPenalty(f *features.Snapshot) int {
	if f.InactivityWeeks > 0 {
		return f.InactivityWeeks * 10
	}
	return 0
}

// generateDrivers evaluates the driver rules in fixed order, positives
// first. Rules are independent; each fires at most once.
func generateDrivers(f *features.Snapshot) Drivers {
	var positive, negative []string

	if f.StreakDays >= 5 {
		positive = append(positive, fmt.Sprintf("Strong streak of %d days", f.StreakDays))
	}
	if f.DiversityIndex90d >= 5 {
		positive = append(positive, fmt.Sprintf("High action diversity with %d unique event types", f.DiversityIndex90d))
	}
	if f.DisputeCount90d == 0 && f.ReversalCount90d == 0 {
		positive = append(positive, "No disputes or reversals in the last 90 days")
	}
	if f.RiskFlags90d == 0 {
		positive = append(positive, "Clean risk profile")
	}
	if f.ActiveDays30d >= 20 {
		positive = append(positive, fmt.Sprintf("Highly active with %d active days in last 30 days", f.ActiveDays30d))
	}
	if f.CompletionRate90d >= 0.8 {
		positive = append(positive, "Excellent mission completion rate")
	}

	if f.DisputeCount90d > 0 {
		negative = append(negative, fmt.Sprintf("%d dispute(s) in the last 90 days", f.DisputeCount90d))
	}
	if f.ReversalCount90d > 0 {
		negative = append(negative, fmt.Sprintf("%d reversal(s) in the last 90 days", f.ReversalCount90d))
	}
	if f.InactivityWeeks > 0 {
		negative = append(negative, fmt.Sprintf("Recent inactivity: %d week(s)", f.InactivityWeeks))
	}
	if f.RiskFlags90d > 0 {
		negative = append(negative, fmt.Sprintf("%d risk flag(s) detected", f.RiskFlags90d))
	}
	if f.VelocityFlags30d > 0 {
		negative = append(negative, fmt.Sprintf("%d velocity spike(s) in last 30 days", f.VelocityFlags30d))
	}
	if f.ActiveDays30d < 5 {
		negative = append(negative, "Low activity in last 30 days")
	}
	if f.StreakDays < 2 {
		negative = append(negative, "No current activity streak")
	}

	return Drivers{Positive: positive, Negative: negative}
}

// NextActions evaluates a separate rule list (its thresholds intentionally
// differ from the driver rules) and returns the first three matches, or
// two fixed encouragements when nothing matches.
func NextActions(f *features.Snapshot) []string {
	var actions []string

	if f.StreakDays < 3 {
		actions = append(actions, "Build a daily activity streak by logging in and completing actions for 3+ consecutive days")
	}
	if f.DiversityIndex90d < 5 {
		actions = append(actions, "Try different types of activities to increase your engagement diversity")
	}
	if f.ActiveDays30d < 10 {
		actions = append(actions, "Increase daily engagement by being active on more days this month")
	}
	if f.MeaningfulEvents30d < 20 {
		actions = append(actions, "Complete more meaningful actions beyond just logging in")
	}
	if f.InactivityWeeks > 0 {
		actions = append(actions, "Return to regular activity to remove inactivity penalties")
	}
	if f.CompletionRate90d < 0.5 {
		actions = append(actions, "Focus on completing started missions to improve your completion rate")
	}

	if len(actions) == 0 {
		return []string{
			"Keep up the great work! Maintain your current activity levels",
			"Consider trying new types of activities to further diversify your engagement",
		}
	}
	if len(actions) > 3 {
		actions = actions[:3]
	}
	return actions
}

func round(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
