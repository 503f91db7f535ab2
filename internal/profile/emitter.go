package profile

import (
	"encoding/json"
	"fmt"
	"io"
)

// Emitter writes profiles as indented JSON.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates a new profile emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes p with its package and tag lists sorted, so the same
// selection always produces the same bytes. p itself is not modified.
func (e *Emitter) Emit(p *Profile) error {
	out := *p
	out.Normalize()
	if out.Pkgs == nil {
		out.Pkgs = []string{}
	}

	data, err := json.MarshalIndent(&out, "", "   ")
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	data = append(data, '\n')

	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("writing profile: %w", err)
	}
	return nil
}
