package missions

import "time"

// DefaultCatalog returns the built-in mission catalog used in demo mode
// and by first-boot seeding. Windows run a year from seed time; the
// assignment jobs re-check windows on every pass.
func DefaultCatalog(now time.Time) []*Mission {
	from := now.UTC()
	to := from.AddDate(1, 0, 0)

	return []*Mission{
		{
			Code:            "DAILY_LOGIN",
			Type:            TypeDaily,
			Title:           "Daily Login",
			Description:     "Log in to the platform",
			TargetCount:     1,
			RewardPoints:    5,
			ScoreImpactHint: "Keeps your activity streak alive",
			ActiveFrom:      from,
			ActiveTo:        to,
			Conditions:      map[string]any{"minLogins": 1},
		},
		{
			Code:            "DAILY_FIVE_EVENTS",
			Type:            TypeDaily,
			Title:           "Complete 5 Events",
			Description:     "Complete 5 events today",
			TargetCount:     5,
			RewardPoints:    10,
			ScoreImpactHint: "Boosts engagement quality",
			ActiveFrom:      from,
			ActiveTo:        to,
			Conditions:      map[string]any{"minEvents": 5},
		},
		{
			Code:            "DAILY_DIVERSITY",
			Type:            TypeDaily,
			Title:           "Event Diversity",
			Description:     "Complete 3 different types of events",
			TargetCount:     3,
			RewardPoints:    8,
			ScoreImpactHint: "Raises your diversity index",
			ActiveFrom:      from,
			ActiveTo:        to,
			Conditions:      map[string]any{"minTypes": 3},
		},
		{
			Code:            "WEEKLY_STREAK",
			Type:            TypeWeekly,
			Title:           "Weekly Streak",
			Description:     "Maintain a 7-day streak",
			TargetCount:     7,
			RewardPoints:    25,
			ScoreImpactHint: "Strongest consistency signal",
			ActiveFrom:      from,
			ActiveTo:        to,
			Conditions:      map[string]any{"minStreak": 7},
		},
		{
			Code:            "WEEKLY_CHAMPION",
			Type:            TypeWeekly,
			Title:           "Weekly Champion",
			Description:     "Complete 50 events in a week",
			TargetCount:     50,
			RewardPoints:    50,
			ScoreImpactHint: "High-volume engagement",
			ActiveFrom:      from,
			ActiveTo:        to,
			Conditions:      map[string]any{"minEvents": 50},
		},
	}
}
