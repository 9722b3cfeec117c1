package core

import "strings"

// IncomeCategories are offered as suggestions; category stays free text.
var IncomeCategories = []string{
	"Salary", "Bonus", "Monthly Profits", "Government Support", "Freelance Services",
	"Programming", "Design", "Marketing", "E-commerce", "Business Profit",
	"Stock Profit", "Real Estate Profit", "Rent Income", "Family Transfer",
	"Financial Help", "Debt Refund", "Selling Items", "Selling Products",
	"Selling Services", "Rewards", "Prizes",
}

// SuggestCategories returns the known categories starting with prefix,
// case-insensitively, in list order.
func SuggestCategories(prefix string) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	out := make([]string, 0, len(IncomeCategories))
	for _, c := range IncomeCategories {
		if strings.HasPrefix(strings.ToLower(c), prefix) {
			out = append(out, c)
		}
	}
	return out
}
