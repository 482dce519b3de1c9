package rewards

import "time"

// DefaultCatalog returns the built-in reward catalog used in demo mode
// and by first-boot seeding.
func DefaultCatalog(now time.Time) []*Reward {
	from := now.UTC()
	to := from.AddDate(1, 0, 0)

	return []*Reward{
		{
			Type:         "badge",
			Title:        "Premium Badge",
			Description:  "Get a premium badge on your profile",
			CostPoints:   50,
			ValueDisplay: "Profile badge",
			ActiveFrom:   from,
			ActiveTo:     to,
		},
		{
			Type:         "boost",
			Title:        "Score Boost",
			Description:  "Get a 50-point score boost",
			CostPoints:   75,
			ValueDisplay: "+50 score",
			ActiveFrom:   from,
			ActiveTo:     to,
		},
		{
			Type:         "gift_card",
			Title:        "$5 Gift Card",
			Description:  "Redeem for a $5 gift card",
			CostPoints:   100,
			ValueDisplay: "$5",
			ActiveFrom:   from,
			ActiveTo:     to,
		},
		{
			Type:         "gift_card",
			Title:        "$10 Gift Card",
			Description:  "Redeem for a $10 gift card",
			CostPoints:   200,
			ValueDisplay: "$10",
			ActiveFrom:   from,
			ActiveTo:     to,
		},
		{
			Type:         "access",
			Title:        "VIP Access",
			Description:  "1 month of VIP access",
			CostPoints:   300,
			ValueDisplay: "30 days VIP",
			ActiveFrom:   from,
			ActiveTo:     to,
		},
		{
			Type:         "gift_card",
			Title:        "$25 Gift Card",
			Description:  "Redeem for a $25 gift card",
			CostPoints:   500,
			ValueDisplay: "$25",
			ActiveFrom:   from,
			ActiveTo:     to,
		},
	}
}
