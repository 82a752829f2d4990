package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawEntry keeps absent fields distinguishable from empty ones.
type rawEntry struct {
	Question *string `json:"question" yaml:"question"`
	Answer   *string `json:"answer" yaml:"answer"`
}

type rawDocument struct {
	FAQs *[]rawEntry `json:"faqs" yaml:"faqs"`
}

// LoadFile reads a JSON or YAML knowledge base. The document is either
// {"faqs": [...]} or a bare list of {question, answer} objects.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	var raw []rawEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", "":
		raw, err = decodeJSON(data)
	case ".yaml", ".yml":
		raw, err = decodeYAML(data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}

	base, err := fromRaw(raw)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return base, nil
}

func decodeJSON(data []byte) ([]rawEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []rawEntry
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return list, nil
	}
	var doc rawDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if doc.FAQs == nil {
		return nil, ErrMalformedShape
	}
	return *doc.FAQs, nil
}

func decodeYAML(data []byte) ([]rawEntry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, ErrMalformedShape
	}
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []rawEntry
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return list, nil
	case yaml.MappingNode:
		var doc rawDocument
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		if doc.FAQs == nil {
			return nil, ErrMalformedShape
		}
		return *doc.FAQs, nil
	default:
		return nil, ErrMalformedShape
	}
}

func fromRaw(raw []rawEntry) (*Base, error) {
	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		if r.Question == nil || r.Answer == nil {
			return nil, fmt.Errorf("entry %d: %w", i, ErrMissingField)
		}
		entries = append(entries, Entry{Question: *r.Question, Answer: *r.Answer})
	}
	return NewBase(entries)
}
