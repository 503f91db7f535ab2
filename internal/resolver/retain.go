package resolver

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// RetainRule requires at least one selected package matching Pattern to
// survive every action. Label names the group in user-facing messages.
type RetainRule struct {
	Pattern *regexp.Regexp
	Label   string
}

// MPMRule keeps at least one Apache multi-processing module selected.
var MPMRule = RetainRule{
	Pattern: regexp.MustCompile(`mod[-_]mpm`),
	Label:   "MPM",
}

// RetainCheck reports whether an action would leave no package of a
// RetainRule selected.
type RetainCheck struct {
	Missing bool     `json:"missing"`
	Removed []string `json:"removed,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Check evaluates the rule for result applied to selected, where target is the
// toggled package and selecting tells the direction of the toggle. The check
// fails whenever no matching package is left selected and none is added,
// including when the selection never had one.
func (rule RetainRule) Check(result Result, selected []string, target string, selecting bool) RetainCheck {
	var removed []string
	for _, name := range result.RemoveList {
		if rule.Pattern.MatchString(name) && !slices.Contains(removed, name) {
			removed = append(removed, name)
		}
	}
	if !selecting && rule.Pattern.MatchString(target) && !slices.Contains(removed, target) {
		removed = append(removed, target)
	}

	if selecting && rule.Pattern.MatchString(target) {
		return RetainCheck{}
	}
	for _, name := range selected {
		if rule.Pattern.MatchString(name) && !slices.Contains(removed, name) {
			return RetainCheck{}
		}
	}
	for _, name := range result.AddList {
		if rule.Pattern.MatchString(name) {
			return RetainCheck{}
		}
	}

	lead := fmt.Sprintf("No %s package is selected.", rule.Label)
	if len(removed) > 0 {
		lead = fmt.Sprintf("Your selection removed %s.", listAnd(removed))
	}
	return RetainCheck{
		Missing: true,
		Removed: removed,
		Message: fmt.Sprintf("%s An %s package must exist on your system. "+
			"Click “Continue” to select a new %s package. Click “Cancel” to cancel this operation.",
			lead, rule.Label, rule.Label),
	}
}

// CheckRetain evaluates rule against the current result of the resolution.
func (res *Resolution) CheckRetain(rule RetainRule) RetainCheck {
	return rule.Check(res.result, res.selectedList, res.target, res.selecting)
}

func listAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
