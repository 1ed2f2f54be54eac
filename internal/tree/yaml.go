package tree

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromYAML decodes a YAML or JSON document.
func FromYAML(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return New(KindNull, "", nil), nil
	}
	return fromYAMLNode(doc.Content[0], "", 0)
}

// maxAliasDepth bounds alias expansion.
const maxAliasDepth = 64

func fromYAMLNode(n *yaml.Node, label string, depth int) (*Tree, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("line %d: document nests deeper than %d levels", n.Line, maxAliasDepth)
	}
	switch n.Kind {
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias, label, depth+1)

	case yaml.MappingNode:
		t := New(KindObject, label, nil)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			c, err := fromYAMLNode(n.Content[i+1], key, depth+1)
			if err != nil {
				return nil, err
			}
			t.Add(c)
		}
		return t, nil

	case yaml.SequenceNode:
		t := New(KindArray, label, nil)
		for i, item := range n.Content {
			c, err := fromYAMLNode(item, strconv.Itoa(i), depth+1)
			if err != nil {
				return nil, err
			}
			t.Add(c)
		}
		return t, nil

	case yaml.ScalarNode:
		return fromYAMLScalar(n, label)
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

func fromYAMLScalar(n *yaml.Node, label string) (*Tree, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	switch v := v.(type) {
	case nil:
		return New(KindNull, label, nil), nil
	case bool:
		return New(KindBool, label, v), nil
	case int:
		return New(KindInt, label, int64(v)), nil
	case int64:
		return New(KindInt, label, v), nil
	case uint64:
		return New(KindInt, label, int64(v)), nil
	case float64:
		return New(KindFloat, label, v), nil
	case string:
		return New(KindString, label, v), nil
	}
	return New(KindString, label, n.Value), nil
}
