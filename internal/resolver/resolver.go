// Package resolver computes which packages must be added to or removed from
// an EasyApache selection when a single package is toggled.
//
// A Resolver wraps a read-only catalog. Every user action starts a fresh
// Resolution through Select or Unselect; the resolution owns all scratch
// state of that attempt and produces a Result (add list, remove list, whether
// the user must confirm). The catalog and the caller's selection are never
// modified: applying a Result is the caller's job.
//
// Selecting a package may hit OR-groups ("requires one of mod_mpm_event or
// mod_mpm_worker") that cannot be settled automatically. Resolution then
// pauses in PhaseChoiceNeeded; the caller shows NextPrompt to the user and
// feeds the answer back through Continue.
package resolver

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

// DefaultNamespace is the name prefix of packages managed by EasyApache.
const DefaultNamespace = "ea-"

var (
	// ErrUnknownPackage is returned when a name is absent from the catalog.
	ErrUnknownPackage = errors.New("unknown package")

	// ErrNoPendingChoice is returned by Continue when no OR-group is waiting.
	ErrNoPendingChoice = errors.New("no pending choice")

	// ErrInvalidChoice is returned by Continue when the chosen package is not
	// a member of the prompted OR-group.
	ErrInvalidChoice = errors.New("choice not offered")
)

func unknown(op, name string) error {
	return fmt.Errorf("%s %s: %w", op, name, ErrUnknownPackage)
}

// Phase is the position of a resolution in its lifecycle.
type Phase string

const (
	// PhaseIdle: nothing in progress, or the resolution was reset.
	PhaseIdle Phase = "idle"
	// PhaseChoiceNeeded: an OR-group waits for the user.
	PhaseChoiceNeeded Phase = "choice_needed"
	// PhaseActionNeeded: the result removes packages and must be confirmed.
	PhaseActionNeeded Phase = "action_needed"
	// PhaseReady: the result can be applied without asking.
	PhaseReady Phase = "ready"
)

// Result is the diff a resolution asks the caller to apply.
type Result struct {
	AddList      []string `json:"addList"`
	RemoveList   []string `json:"removeList"`
	ActionNeeded bool     `json:"actionNeeded"`
	// Broken lists removed packages that the toggled package still requires.
	// Applying such a result leaves the selection inconsistent.
	Broken []string `json:"broken,omitempty"`
}

func emptyResult() Result {
	return Result{AddList: []string{}, RemoveList: []string{}}
}

// Outcome summarises a Select or Continue step.
type Outcome struct {
	OrListExist  bool `json:"orListExist"`
	ActionNeeded bool `json:"actionNeeded"`
	// Broken mirrors Result.Broken.
	Broken []string `json:"broken,omitempty"`
	// Unsatisfiable lists OR-groups whose members are all unknown or all in
	// conflict with the packages being added.
	Unsatisfiable [][]string `json:"unsatisfiable,omitempty"`
}

// Resolver resolves selections against a catalog.
type Resolver struct {
	catalog   pkginfo.Catalog
	namespace string
	logger    *log.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithNamespace sets the name prefix of packages the resolver follows.
// Packages outside the namespace are treated as external and ignored. An
// empty prefix follows every package.
func WithNamespace(prefix string) Option {
	return func(r *Resolver) {
		r.namespace = prefix
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a resolver over catalog. The catalog is only read.
func New(catalog pkginfo.Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:   catalog,
		namespace: DefaultNamespace,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the catalog the resolver reads.
func (r *Resolver) Catalog() pkginfo.Catalog {
	return r.catalog
}

func (r *Resolver) namespaced(name string) bool {
	return strings.HasPrefix(name, r.namespace)
}

// Resolution is the state of one select or unselect attempt.
type Resolution struct {
	r         *Resolver
	target    string
	selecting bool
	phase     Phase

	selectedList []string
	selected     *nameSet

	visited   *nameSet
	requires  *nameSet
	conflicts *nameSet
	removed   *nameSet

	groups        [][]string
	prompt        []string
	unsatisfiable [][]string

	requireStructure  Structure
	conflictStructure Structure
	result            Result
}

func (r *Resolver) newResolution(target string, selecting bool, selected []string) *Resolution {
	res := &Resolution{r: r, target: target, selecting: selecting}
	res.clear()
	res.selectedList = slices.Clone(selected)
	res.selected = newNameSet(selected...)
	return res
}

func (res *Resolution) clear() {
	res.phase = PhaseIdle
	res.visited = newNameSet()
	res.requires = newNameSet()
	res.conflicts = newNameSet()
	res.removed = newNameSet()
	res.groups = nil
	res.prompt = nil
	res.unsatisfiable = nil
	res.requireStructure = Structure{Safe: []string{}}
	res.conflictStructure = Structure{Safe: []string{}}
	res.result = emptyResult()
}

// Select starts resolving the selection of name on top of selected.
func (r *Resolver) Select(name string, selected []string) (*Resolution, Outcome, error) {
	p, ok := r.catalog.Lookup(name)
	if !ok {
		return nil, Outcome{}, unknown("selecting", name)
	}

	res := r.newResolution(name, true, selected)
	res.walkSelect(p, name)
	res.requires.add(name)
	return res, res.advance(), nil
}

// Continue resumes a resolution paused on an OR-group with the user's pick.
// If NextPrompt was not called, the first pending group is taken as the one
// being answered.
func (res *Resolution) Continue(choice string) (Outcome, error) {
	if res.phase != PhaseChoiceNeeded {
		return Outcome{}, fmt.Errorf("continuing %s: %w", res.target, ErrNoPendingChoice)
	}
	if res.prompt == nil {
		res.NextPrompt()
	}
	if !slices.Contains(res.prompt, choice) {
		return Outcome{}, fmt.Errorf("continuing %s with %s: %w", res.target, choice, ErrInvalidChoice)
	}
	p, ok := res.r.catalog.Lookup(choice)
	if !ok {
		return Outcome{}, unknown("continuing with", choice)
	}

	res.r.logger.Debug("or-group chosen", "package", choice, "target", res.target)
	res.prompt = nil
	res.walkSelect(p, choice)
	res.requires.add(choice)
	return res.advance(), nil
}

// advance settles OR-groups and, when none are left, builds the result.
func (res *Resolution) advance() Outcome {
	res.reduceGroups()

	out := Outcome{Unsatisfiable: res.Unsatisfiable()}
	if len(res.groups) > 0 || res.prompt != nil {
		res.phase = PhaseChoiceNeeded
		out.OrListExist = true
		return out
	}

	res.proceed()
	out.ActionNeeded = res.result.ActionNeeded
	out.Broken = slices.Clone(res.result.Broken)
	return out
}

// proceed classifies the collected requirements and conflicts, cascades the
// removals that unsafe entries force, and records the final result.
func (res *Resolution) proceed() {
	var reqs []string
	for _, name := range res.requires.list() {
		if !res.selected.has(name) {
			reqs = append(reqs, name)
		}
	}
	if len(reqs) > 0 {
		res.requireStructure = BuildRequireStructure(reqs, res.selectedList, res.r.catalog)
	}

	var cons []string
	for _, name := range res.conflicts.list() {
		if res.selected.has(name) {
			cons = append(cons, name)
		}
	}
	if len(cons) > 0 {
		res.conflictStructure = BuildConflictStructure(cons, res.selectedList, res.r.catalog)
	}

	res.resolveUnsafe(&res.requireStructure, false)
	res.resolveUnsafe(&res.conflictStructure, true)

	remove := newNameSet(res.removed.list()...)
	remove.add(res.conflictStructure.Safe...)

	add := make([]string, 0, len(res.requireStructure.Safe))
	for _, name := range res.requireStructure.Safe {
		if name != res.target && !slices.Contains(add, name) {
			add = append(add, name)
		}
	}

	var broken []string
	for _, name := range remove.list() {
		if res.requires.has(name) {
			broken = append(broken, name)
		}
	}
	if len(broken) > 0 {
		res.r.logger.Warn("removal breaks requirements", "target", res.target, "packages", broken)
	}

	res.result = Result{
		AddList:      add,
		RemoveList:   remove.list(),
		ActionNeeded: remove.len() > 0,
		Broken:       broken,
	}
	res.phase = PhaseReady
	if res.result.ActionNeeded {
		res.phase = PhaseActionNeeded
	}
}

// resolveUnsafe removes every blocking package of each unsafe entry (plus the
// selected packages depending on it) and moves the entry to the safe bucket.
// For conflicts, entries that are themselves already being removed are
// dropped instead.
func (res *Resolution) resolveUnsafe(s *Structure, conflicts bool) {
	for _, u := range s.Unsafe {
		if conflicts && res.removed.has(u.Name) {
			continue
		}
		for _, blocker := range u.By {
			if res.removed.has(blocker) {
				continue
			}
			scope := res.remaining()
			res.cascade(blocker, blocker, &scope)
			res.removed.add(blocker)
		}
		s.Safe = append(s.Safe, u.Name)
	}
	s.Unsafe = nil
}

func (res *Resolution) remaining() []string {
	out := make([]string, 0, len(res.selectedList))
	for _, name := range res.selectedList {
		if !res.removed.has(name) {
			out = append(out, name)
		}
	}
	return out
}

// cascade marks name for removal along with every package in scope that
// requires it, transitively.
func (res *Resolution) cascade(name, origin string, scope *[]string) {
	if name != origin {
		res.removed.add(name)
	}
	*scope = without(*scope, name)

	var dependents []string
	for _, s := range *scope {
		if sp, ok := res.r.catalog.Lookup(s); ok && sp.PlainRequires(name) {
			dependents = append(dependents, s)
		}
	}
	for _, d := range dependents {
		res.r.logger.Debug("cascade removal", "package", d, "requires", name, "target", res.target)
		res.cascade(d, origin, scope)
	}
}

// Unselect resolves the removal of name from selected. The result only has a
// remove list: name itself followed by every selected package that requires
// it, transitively.
func (r *Resolver) Unselect(name string, selected []string) (*Resolution, error) {
	p, ok := r.catalog.Lookup(name)
	if !ok {
		return nil, unknown("unselecting", name)
	}

	res := r.newResolution(name, false, selected)
	res.removed.add(name)
	scope := slices.Clone(selected)
	res.walkUnselect(p, name, &scope)

	res.result = emptyResult()
	res.result.RemoveList = res.removed.list()
	res.phase = PhaseReady
	return res, nil
}

// Extend adds names to the packages an unselect resolution removes, along
// with every selected package that requires them. Names that are not selected
// or already removed are ignored. It returns an error on a select resolution.
func (res *Resolution) Extend(names ...string) error {
	if res.selecting {
		return fmt.Errorf("extending %s: only unselect resolutions can be extended", res.target)
	}
	scope := res.remaining()
	for _, name := range names {
		if !res.selected.has(name) || res.removed.has(name) {
			continue
		}
		p, ok := res.r.catalog.Lookup(name)
		if !ok {
			continue
		}
		res.removed.add(name)
		scope = without(scope, name)
		res.walkUnselect(p, name, &scope)
	}
	res.result.RemoveList = res.removed.list()
	return nil
}

// Target returns the package being toggled.
func (res *Resolution) Target() string { return res.target }

// Selecting reports whether the resolution is for a select action.
func (res *Resolution) Selecting() bool { return res.selecting }

// Phase returns the current lifecycle phase.
func (res *Resolution) Phase() Phase { return res.phase }

// Result returns a copy of the resolved diff. Before the resolution reaches
// PhaseReady or PhaseActionNeeded it is empty.
func (res *Resolution) Result() Result {
	return Result{
		AddList:      slices.Clone(res.result.AddList),
		RemoveList:   slices.Clone(res.result.RemoveList),
		ActionNeeded: res.result.ActionNeeded,
		Broken:       slices.Clone(res.result.Broken),
	}
}

// Unsatisfiable returns the OR-groups that had no viable member.
func (res *Resolution) Unsatisfiable() [][]string {
	if len(res.unsatisfiable) == 0 {
		return nil
	}
	out := make([][]string, len(res.unsatisfiable))
	for i, g := range res.unsatisfiable {
		out[i] = slices.Clone(g)
	}
	return out
}

// Reset discards all scratch state and the result. It is safe to call in any
// phase, more than once, and on a nil resolution.
func (res *Resolution) Reset() {
	if res == nil {
		return
	}
	res.clear()
}
