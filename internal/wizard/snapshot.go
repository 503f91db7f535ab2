package wizard

import (
	"fmt"
	"slices"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

// Snapshot is the serialisable state of a Session. A pending toggle is kept
// as the package and the OR-group answers given so far; Restore replays them.
// RetainShown marks a pending toggle that stopped on the retain warning.
type Snapshot struct {
	Selected    []string       `json:"selected"`
	Pending     *PendingToggle `json:"pending,omitempty"`
	RetainShown bool           `json:"retainShown,omitempty"`
}

// PendingToggle is a toggle that waits for the user.
type PendingToggle struct {
	Package   string   `json:"package"`
	Selecting bool     `json:"selecting"`
	Choices   []string `json:"choices,omitempty"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{Selected: s.Selected()}
	if s.pending != nil {
		snap.Pending = &PendingToggle{
			Package:   s.pending.Target(),
			Selecting: s.pending.Selecting(),
			Choices:   slices.Clone(s.choices),
		}
		snap.RetainShown = s.last.Status == StatusRetainMissing
	}
	return snap
}

// Restore rebuilds a session from a snapshot by replaying its pending toggle
// and choices against c.
func Restore(c pkginfo.Catalog, snap Snapshot, opts ...Option) (*Session, error) {
	s := New(c, snap.Selected, opts...)
	if snap.Pending == nil {
		return s, nil
	}

	p := snap.Pending
	if s.IsSelected(p.Package) == p.Selecting {
		return nil, fmt.Errorf("restoring toggle of %s: selection does not match", p.Package)
	}
	if _, err := s.Toggle(p.Package); err != nil {
		return nil, fmt.Errorf("restoring toggle of %s: %w", p.Package, err)
	}
	for _, choice := range p.Choices {
		if _, err := s.Choose(choice); err != nil {
			return nil, fmt.Errorf("restoring choice %s: %w", choice, err)
		}
	}
	if snap.RetainShown && s.pending != nil && s.last.Status == StatusActionNeeded {
		if _, err := s.Apply(); err != nil {
			return nil, fmt.Errorf("restoring %s: %w", p.Package, err)
		}
	}
	return s, nil
}
