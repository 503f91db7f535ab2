package resolver

import (
	"slices"
)

// Choice is one alternative of an OR-group offered to the user.
type Choice struct {
	Package     string `json:"package"`
	DisplayName string `json:"displayName"`
}

// Prompt holds one OR-group awaiting the user's pick.
type Prompt struct {
	Exist         bool     `json:"exist"`
	OrList        []Choice `json:"orList"`
	ChosenPackage string   `json:"chosenPackage"`
}

func (res *Resolution) queueGroup(group []string) {
	if containsGroup(res.groups, group) {
		return
	}
	res.groups = append(res.groups, slices.Clone(group))
}

// reduceGroups settles every queued OR-group that does not need the user:
// groups already satisfied by the selection or by collected requirements are
// dropped, and groups narrowed to a single viable member are resolved to it.
// Resolving a member walks its own requirements, which may queue new groups or
// settle others, so passes repeat until nothing changes.
func (res *Resolution) reduceGroups() {
	for {
		pending := res.groups
		res.groups = nil

		var keep [][]string
		changed := false
		for _, group := range pending {
			viable, drop := res.reduceGroup(group)
			if drop {
				if len(viable) == 1 && !res.requires.has(viable[0]) {
					if res.selected.has(viable[0]) {
						res.requires.add(viable[0])
					} else {
						res.autoResolve(viable[0])
						changed = true
					}
				}
				continue
			}
			keep = append(keep, viable)
		}

		discovered := res.groups
		res.groups = keep
		for _, g := range discovered {
			res.queueGroup(g)
		}
		if !changed {
			return
		}
	}
}

// reduceGroup filters group down to its viable members. drop reports that the
// group needs no prompt; when drop is set and exactly one viable member is
// returned, that member must be added to the requirements.
func (res *Resolution) reduceGroup(group []string) (viable []string, drop bool) {
	var known []string
	namespaced := false
	for _, name := range group {
		if !res.r.namespaced(name) {
			continue
		}
		namespaced = true
		if _, ok := res.r.catalog.Lookup(name); ok {
			known = append(known, name)
		}
	}
	if len(known) == 0 {
		if namespaced {
			res.markUnsatisfiable(group)
		}
		return nil, true
	}

	for _, name := range known {
		if res.selected.has(name) || res.requires.has(name) {
			if len(known) == 1 {
				return known, true
			}
			return nil, true
		}
	}

	for _, name := range known {
		if !res.conflicts.has(name) {
			viable = append(viable, name)
		}
	}
	switch len(viable) {
	case 0:
		res.markUnsatisfiable(group)
		return nil, true
	case 1:
		return viable, true
	}
	return viable, false
}

func (res *Resolution) autoResolve(name string) {
	res.r.logger.Debug("or-group resolved", "package", name)
	if p, ok := res.r.catalog.Lookup(name); ok {
		res.walkSelect(p, name)
	}
	res.requires.add(name)
}

func (res *Resolution) markUnsatisfiable(group []string) {
	if containsGroup(res.unsatisfiable, group) {
		return
	}
	res.r.logger.Warn("or-group has no viable member", "group", group, "package", res.target)
	res.unsatisfiable = append(res.unsatisfiable, slices.Clone(group))
}

// NextPrompt surfaces the first pending OR-group. The group leaves the queue;
// calling NextPrompt again before Continue returns the same prompt.
func (res *Resolution) NextPrompt() (Prompt, bool) {
	if res.prompt == nil {
		if len(res.groups) == 0 {
			return Prompt{}, false
		}
		res.prompt = res.groups[0]
		res.groups = res.groups[1:]
	}

	choices := make([]Choice, 0, len(res.prompt))
	for _, name := range res.prompt {
		c := Choice{Package: name, DisplayName: name}
		if p, ok := res.r.catalog.Lookup(name); ok && p.DisplayName != "" {
			c.DisplayName = p.DisplayName
		}
		choices = append(choices, c)
	}
	return Prompt{Exist: true, OrList: choices}, true
}
