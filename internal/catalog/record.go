package catalog

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

// FlexString handles JSON/YAML values that can be string or number.
type FlexString string

func (v *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = FlexString(n.String())
		return nil
	}
	*v = ""
	return nil
}

func (v *FlexString) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		*v = FlexString(s)
		return nil
	}
	*v = ""
	return nil
}

// RawRequirement is one entry of a package's requires list as the API sends
// it: a bare name, or a nested array of names any one of which satisfies it.
type RawRequirement struct {
	Names []string
	Group bool
}

func (q *RawRequirement) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = RawRequirement{Names: []string{s}}
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("requirement must be a name or a list of names: %w", err)
	}
	*q = RawRequirement{Names: names, Group: true}
	return nil
}

func (q *RawRequirement) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*q = RawRequirement{Names: []string{node.Value}}
		return nil
	}
	var names []string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("requirement must be a name or a list of names: %w", err)
	}
	*q = RawRequirement{Names: names, Group: true}
	return nil
}

// Requirement converts the raw entry. An array stays an OR-group even with a
// single member.
func (q RawRequirement) Requirement() pkginfo.Requirement {
	if !q.Group && len(q.Names) == 1 {
		return pkginfo.Single(q.Names[0])
	}
	names := q.Names
	if names == nil {
		names = []string{}
	}
	return pkginfo.AnyOf(names...)
}

// Record is one package as reported by package_manager_get_package_info.
type Record struct {
	Package FlexString `json:"package" yaml:"package"`
	Version FlexString `json:"version" yaml:"version"`
	Summary string     `json:"summary" yaml:"summary"`
	State   string     `json:"state" yaml:"state"`
	PkgDep  PkgDep     `json:"pkg_dep" yaml:"pkg_dep"`
}

// PkgDep holds the dependency lists of a Record.
type PkgDep struct {
	Requires  []RawRequirement `json:"requires" yaml:"requires"`
	Conflicts []string         `json:"conflicts" yaml:"conflicts"`
}

// Envelope is the WHM API v1 response wrapper.
type Envelope struct {
	Metadata struct {
		Result  int    `json:"result" yaml:"result"`
		Reason  string `json:"reason" yaml:"reason"`
		Command string `json:"command,omitempty" yaml:"command,omitempty"`
	} `json:"metadata" yaml:"metadata"`
	Data struct {
		Payload []Record `json:"payload" yaml:"payload"`
	} `json:"data" yaml:"data"`
}
