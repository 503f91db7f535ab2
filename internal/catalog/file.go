package catalog

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

// Format is the serialisation of a catalog dump.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// LoadFile reads a catalog dump. The format follows the extension: .json,
// .yaml or .yml, optionally followed by .gz or .xz.
func LoadFile(path string) (pkginfo.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	name := strings.ToLower(filepath.Base(path))
	switch filepath.Ext(name) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing catalog: %w", err)
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	case ".xz":
		x, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing catalog: %w", err)
		}
		r = x
		name = strings.TrimSuffix(name, ".xz")
	}

	format := FormatJSON
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		format = FormatYAML
	}

	records, err := Decode(r, format)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Build(records), nil
}

// Decode reads package records in the given format. The document is either a
// bare list of records or a WHM API envelope around one.
func Decode(r io.Reader, format Format) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if format == FormatYAML {
		return decodeYAML(data)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}

	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("parsing catalog: %w", err)
		}
		return records, nil
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return env.records()
}

func decodeYAML(data []byte) ([]Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty catalog")
	}

	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var records []Record
		if err := root.Decode(&records); err != nil {
			return nil, fmt.Errorf("parsing catalog: %w", err)
		}
		return records, nil
	}

	var env Envelope
	if err := root.Decode(&env); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return env.records()
}

// records returns the payload, or the API's failure reason. A dump without
// metadata is accepted as long as it has a payload.
func (env *Envelope) records() ([]Record, error) {
	if env.Metadata.Result == 0 && env.Metadata.Reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrAPI, env.Metadata.Reason)
	}
	return env.Data.Payload, nil
}
