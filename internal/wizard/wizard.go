// Package wizard drives package toggles the way the EasyApache customize
// wizard does: toggle a package, answer OR-group prompts, review the packages
// that will be added and removed, then apply or cancel.
//
// A Session owns the selected-packages list. The catalog it is built on is
// only read, so one catalog can back many sessions.
package wizard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/eapkg/internal/catalog"
	"github.com/frederic-klein/eapkg/internal/pkginfo"
	"github.com/frederic-klein/eapkg/internal/resolver"
)

var (
	// ErrPending is returned when a toggle is started while another one
	// still waits for a choice or a confirmation.
	ErrPending = errors.New("another toggle is pending")

	// ErrNothingPending is returned by Apply and Confirm without a toggle.
	ErrNothingPending = errors.New("nothing to apply")

	// ErrChoicePending is returned by Apply and Confirm while an OR-group
	// still needs an answer.
	ErrChoicePending = errors.New("an OR-group choice is pending")
)

// Status is the outcome of a wizard step.
type Status string

const (
	// StatusIdle: no toggle in progress.
	StatusIdle Status = "idle"
	// StatusChoiceNeeded: Prompt must be answered with Choose.
	StatusChoiceNeeded Status = "choice_needed"
	// StatusActionNeeded: Result removes packages; Apply or Reset.
	StatusActionNeeded Status = "action_needed"
	// StatusRetainMissing: the result would leave no MPM; Confirm or Reset.
	StatusRetainMissing Status = "retain_missing"
	// StatusApplied: the selection was updated.
	StatusApplied Status = "applied"
)

// Step reports where a toggle stands.
type Step struct {
	Status        Status                `json:"status"`
	Package       string                `json:"package,omitempty"`
	Selecting     bool                  `json:"selecting"`
	Prompt        *resolver.Prompt      `json:"prompt,omitempty"`
	Result        resolver.Result       `json:"result"`
	Retain        *resolver.RetainCheck `json:"retain,omitempty"`
	Unsatisfiable [][]string            `json:"unsatisfiable,omitempty"`
}

// Session is one user's walk through the wizard.
type Session struct {
	resolver *resolver.Resolver
	rule     resolver.RetainRule
	logger   *log.Logger

	selected []string

	pending *resolver.Resolution
	choices []string
	last    Step
}

// Option customizes a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	rule     resolver.RetainRule
	logger   *log.Logger
	resolver []resolver.Option
}

// WithRetainRule replaces the default MPM rule.
func WithRetainRule(rule resolver.RetainRule) Option {
	return func(c *sessionConfig) {
		c.rule = rule
	}
}

// WithLogger sets the logger for the session and its resolver.
func WithLogger(l *log.Logger) Option {
	return func(c *sessionConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithResolverOptions passes options to the underlying resolver.
func WithResolverOptions(opts ...resolver.Option) Option {
	return func(c *sessionConfig) {
		c.resolver = append(c.resolver, opts...)
	}
}

// New starts a session on c with the given initial selection.
func New(c pkginfo.Catalog, selected []string, opts ...Option) *Session {
	cfg := sessionConfig{rule: resolver.MPMRule, logger: log.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	ropts := append([]resolver.Option{resolver.WithLogger(cfg.logger)}, cfg.resolver...)

	s := &Session{
		resolver: resolver.New(c, ropts...),
		rule:     cfg.rule,
		logger:   cfg.logger,
	}
	for _, name := range selected {
		if !slices.Contains(s.selected, name) {
			s.selected = append(s.selected, name)
		}
	}
	s.last = s.idle()
	return s
}

// Catalog returns the catalog the session resolves against.
func (s *Session) Catalog() pkginfo.Catalog {
	return s.resolver.Catalog()
}

// Resolver returns the session's resolver.
func (s *Session) Resolver() *resolver.Resolver {
	return s.resolver
}

// Selected returns a copy of the current selection.
func (s *Session) Selected() []string {
	return slices.Clone(s.selected)
}

// IsSelected reports whether name is in the selection.
func (s *Session) IsSelected(name string) bool {
	return slices.Contains(s.selected, name)
}

// State returns the step the session is in.
func (s *Session) State() Step {
	return s.last
}

func (s *Session) idle() Step {
	return Step{Status: StatusIdle, Result: resolver.Result{AddList: []string{}, RemoveList: []string{}}}
}

// Toggle selects name when it is not selected and unselects it otherwise.
// Unselecting a PHP version also unselects its extensions. Toggles that need
// nothing from the user are applied at once.
func (s *Session) Toggle(name string) (Step, error) {
	if s.pending != nil {
		return s.last, fmt.Errorf("toggling %s: %w", name, ErrPending)
	}

	if s.IsSelected(name) {
		res, err := s.resolver.Unselect(name, s.selected)
		if err != nil {
			return s.last, err
		}
		if exts := catalog.ExtensionsOf(name, s.selected); len(exts) > 0 {
			s.logger.Debug("dropping extensions with php version", "package", name, "extensions", exts)
			if err := res.Extend(exts...); err != nil {
				return s.last, err
			}
		}
		s.pending = res
		s.choices = nil
		if check := res.CheckRetain(s.rule); check.Missing {
			return s.hold(StatusRetainMissing, &check, nil), nil
		}
		return s.commit(), nil
	}

	res, out, err := s.resolver.Select(name, s.selected)
	if err != nil {
		return s.last, err
	}
	s.pending = res
	s.choices = nil
	return s.evaluate(out), nil
}

// Choose answers the outstanding OR-group prompt.
func (s *Session) Choose(name string) (Step, error) {
	if s.pending == nil {
		return s.last, fmt.Errorf("choosing %s: %w", name, resolver.ErrNoPendingChoice)
	}
	out, err := s.pending.Continue(name)
	if err != nil {
		return s.last, err
	}
	s.choices = append(s.choices, name)
	return s.evaluate(out), nil
}

func (s *Session) evaluate(out resolver.Outcome) Step {
	if out.OrListExist {
		prompt, _ := s.pending.NextPrompt()
		step := s.hold(StatusChoiceNeeded, nil, out.Unsatisfiable)
		step.Prompt = &prompt
		s.last = step
		return step
	}
	if out.ActionNeeded {
		return s.hold(StatusActionNeeded, nil, out.Unsatisfiable)
	}
	step := s.commit()
	step.Unsatisfiable = out.Unsatisfiable
	s.last = step
	return step
}

func (s *Session) hold(status Status, check *resolver.RetainCheck, unsatisfiable [][]string) Step {
	s.last = Step{
		Status:        status,
		Package:       s.pending.Target(),
		Selecting:     s.pending.Selecting(),
		Result:        s.pending.Result(),
		Retain:        check,
		Unsatisfiable: unsatisfiable,
	}
	return s.last
}

// Apply commits the pending result. When it would leave no package of the
// retain rule selected, nothing changes and StatusRetainMissing is returned;
// Confirm overrides that.
func (s *Session) Apply() (Step, error) {
	if err := s.ready("applying"); err != nil {
		return s.last, err
	}
	if check := s.pending.CheckRetain(s.rule); check.Missing {
		return s.hold(StatusRetainMissing, &check, s.last.Unsatisfiable), nil
	}
	return s.commit(), nil
}

// Confirm commits the pending result even if the retain rule fails.
func (s *Session) Confirm() (Step, error) {
	if err := s.ready("confirming"); err != nil {
		return s.last, err
	}
	return s.commit(), nil
}

func (s *Session) ready(op string) error {
	if s.pending == nil {
		return fmt.Errorf("%s: %w", op, ErrNothingPending)
	}
	if s.pending.Phase() == resolver.PhaseChoiceNeeded {
		return fmt.Errorf("%s %s: %w", op, s.pending.Target(), ErrChoicePending)
	}
	return nil
}

// commit applies the pending result to the selection: removals first, then
// additions, then the toggled package itself.
func (s *Session) commit() Step {
	res := s.pending
	result := res.Result()
	target := res.Target()

	next := make([]string, 0, len(s.selected)+len(result.AddList)+1)
	for _, name := range s.selected {
		if !slices.Contains(result.RemoveList, name) {
			next = append(next, name)
		}
	}
	for _, name := range result.AddList {
		if !slices.Contains(next, name) {
			next = append(next, name)
		}
	}
	if res.Selecting() {
		if !slices.Contains(next, target) {
			next = append(next, target)
		}
	} else {
		next = slices.DeleteFunc(next, func(n string) bool { return n == target })
	}
	s.selected = next

	s.logger.Debug("selection updated", "package", target, "selecting", res.Selecting(),
		"added", len(result.AddList), "removed", len(result.RemoveList))

	step := Step{
		Status:    StatusApplied,
		Package:   target,
		Selecting: res.Selecting(),
		Result:    result,
	}
	res.Reset()
	s.pending = nil
	s.choices = nil
	s.last = step
	return step
}

// Reset abandons the pending toggle, leaving the selection as it was. It is
// a no-op when nothing is pending.
func (s *Session) Reset() {
	if s.pending != nil {
		s.pending.Reset()
	}
	s.pending = nil
	s.choices = nil
	s.last = s.idle()
}

// AutoSelectReport lists what AutoSelect did.
type AutoSelectReport struct {
	Selected []string `json:"selected"`
	Failed   []string `json:"failed"`
}

// AutoSelect selects each of names that resolves without a prompt and without
// removing anything. The rest are reported as failed and left alone.
// Already selected names are skipped.
func (s *Session) AutoSelect(names []string) (AutoSelectReport, error) {
	report := AutoSelectReport{Selected: []string{}, Failed: []string{}}
	if s.pending != nil {
		return report, fmt.Errorf("auto-selecting: %w", ErrPending)
	}

	for _, name := range names {
		if s.IsSelected(name) {
			continue
		}
		res, out, err := s.resolver.Select(name, s.selected)
		if err != nil || out.OrListExist || out.ActionNeeded {
			s.logger.Debug("auto-select skipped", "package", name, "err", err)
			report.Failed = append(report.Failed, name)
			continue
		}
		s.pending = res
		s.commit()
		report.Selected = append(report.Selected, name)
	}
	s.last = s.idle()
	return report, nil
}

// ExtensionCandidates lists the extensions of phpVersion worth auto-selecting:
// those selected for every other selected PHP version, minus the ones
// phpVersion already requires.
func (s *Session) ExtensionCandidates(phpVersion string) ([]string, error) {
	deps, err := s.resolver.Dependencies(phpVersion)
	if err != nil {
		return nil, err
	}
	others := slices.DeleteFunc(s.Selected(), func(n string) bool {
		return n == phpVersion || strings.HasPrefix(n, phpVersion+"-")
	})
	common := catalog.CommonExtensions(s.Catalog(), others)
	return catalog.ExtensionCandidates(s.Catalog(), phpVersion, common, deps.Requires), nil
}
