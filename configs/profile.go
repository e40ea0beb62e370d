package configs

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Profile holds raw limit values read from a YAML file, keyed by the long
// flag name, plus an optional target command line:
//
//	memory: 512
//	cpu-time: 60
//	breakaway: "no"
//	target: notepad.exe
//
// Values stay textual so they pass through the same parser as flags.
type Profile struct {
	Values map[string]string
	Target string
}

// LoadProfile reads a profile from path.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open profile %s", path)
	}
	defer f.Close()
	return ReadProfile(f)
}

// ReadProfile decodes a profile document.
func ReadProfile(r io.Reader) (*Profile, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return &Profile{Values: map[string]string{}}, nil
		}
		return nil, &ConfigurationError{Field: "profile", Detail: err.Error()}
	}
	p := &Profile{Values: map[string]string{}}
	if len(doc.Content) == 0 {
		return p, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigurationError{Field: "profile", Detail: fmt.Sprintf("line %d: expected a mapping", root.Line)}
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, &ConfigurationError{Field: key.Value, Detail: fmt.Sprintf("line %d: expected a scalar value", value.Line)}
		}
		if key.Value == "target" {
			p.Target = value.Value
			continue
		}
		f, ok := LookupFlag(key.Value)
		if !ok {
			return nil, &ConfigurationError{Field: key.Value, Detail: fmt.Sprintf("line %d: unknown limit", key.Line)}
		}
		p.Values[f.Long] = value.Value
	}
	return p, nil
}

// Merge overlays raw flag values on top of the profile. Flags win.
func (p *Profile) Merge(raw map[string]string, target string) (map[string]string, string) {
	out := make(map[string]string, len(p.Values)+len(raw))
	for k, v := range p.Values {
		out[k] = v
	}
	for k, v := range raw {
		out[k] = v
	}
	if target == "" {
		target = p.Target
	}
	return out, target
}
