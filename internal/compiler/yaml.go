package compiler

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/runcost/internal/ir"
)

// yamlFile is the on-disk shape of a YAML definition file.
type yamlFile struct {
	Series map[string]ir.SeriesSpec `yaml:"series"`
	Window *ir.WindowSpec           `yaml:"window"`
}

// CompileYAML compiles YAML source into a definition file.
// Unknown fields are rejected.
func CompileYAML(path string, data []byte) (*File, error) {
	var raw yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &CompileError{Field: "series", Message: "at least one series is required", File: path}
		}
		return nil, yamlError(path, err)
	}

	if len(raw.Series) == 0 {
		return nil, &CompileError{Field: "series", Message: "at least one series is required", File: path}
	}

	// Second pass over the node tree recovers line numbers for messages.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, yamlError(path, err)
	}
	seriesNode := mappingValue(documentRoot(&root), "series")

	file := &File{Path: path, Window: raw.Window}
	for name, spec := range raw.Series {
		spec.Name = name
		if spec.Label == "" {
			spec.Label = name
		}

		node := mappingValue(seriesNode, name)
		if node != nil {
			spec.Line = node.Line
			if comps := mappingValue(node, "components"); comps != nil && comps.Kind == yaml.SequenceNode {
				for i := range spec.Components {
					if i < len(comps.Content) {
						spec.Components[i].Line = comps.Content[i].Line
					}
				}
			}
		}

		file.Series = append(file.Series, spec)
	}
	sortSeries(file.Series)

	return file, nil
}

var yamlLinePattern = regexp.MustCompile(`line (\d+): (.*)`)

// yamlError converts a yaml.v3 error into a CompileError, keeping the first
// line number it mentions.
func yamlError(path string, err error) error {
	msg := err.Error()
	var te *yaml.TypeError
	if errors.As(err, &te) && len(te.Errors) > 0 {
		msg = te.Errors[0]
	}

	ce := &CompileError{Field: "yaml", Message: msg, File: path}
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		ce.Line, _ = strconv.Atoi(m[1])
		ce.Message = m[2]
	}
	return ce
}

func documentRoot(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	return n
}

// mappingValue returns the value node for key in a mapping node, or nil.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
