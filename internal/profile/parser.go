package profile

import (
	"encoding/json"
	"fmt"
	"io"
)

// Parser reads profile documents.
type Parser struct {
	r io.Reader
}

// NewParser creates a new profile parser.
func NewParser(r io.Reader) *Parser {
	return &Parser{r: r}
}

// Parse reads one profile. The ID is left empty; stores fill it in.
func (p *Parser) Parse() (*Profile, error) {
	var prof Profile
	dec := json.NewDecoder(p.r)
	if err := dec.Decode(&prof); err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	if prof.Pkgs == nil {
		return nil, fmt.Errorf("reading profile: %w: missing pkgs", ErrInvalid)
	}
	return &prof, nil
}
