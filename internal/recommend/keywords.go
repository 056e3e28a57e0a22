// Package recommend holds the pure recommendation logic: bucketing a child's
// skills, ranking activities against parent concerns and goals, assembling a
// weekly plan, and forecasting the materials upcoming plans will need.
// Nothing here touches storage; callers load the inputs and persist the results.
package recommend

import "strings"

// Keywords lower-cases each phrase and splits it on whitespace.
// Empty phrases contribute nothing, so empty input disables reordering.
func Keywords(phrases []string) []string {
	var out []string
	for _, phrase := range phrases {
		out = append(out, strings.Fields(strings.ToLower(phrase))...)
	}
	return out
}

// containsAny reports whether text contains any keyword as a substring.
// text must already be lower-cased.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
