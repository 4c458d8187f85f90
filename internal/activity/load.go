package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Batch encodings accepted by Decode.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// LoadFile reads a captured batch from path. The encoding is chosen by file
// extension: .yaml/.yml decode as YAML, everything else as JSON.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	format := FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = FormatYAML
	}
	activities, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewStore(activities)
}

// Decode reads a batch in the given format.
//
// Two shapes are accepted: a list of activities, or a mapping from id to
// activity. Mapping order is preserved. Keys must be decimal ids; an entry
// that also carries "id" must agree with its key.
func Decode(r io.Reader, format string) ([]Activity, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(r)
	case FormatYAML:
		return decodeYAML(r)
	default:
		return nil, fmt.Errorf("unknown batch format %q", format)
	}
}

func decodeJSON(r io.Reader) ([]Activity, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode json batch: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var activities []Activity
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&activities); err != nil {
			return nil, fmt.Errorf("decode json batch: %w", err)
		}
		return activities, nil
	}

	// Object keyed by id: walk tokens so key order survives.
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode json batch: %w", err)
	}
	var activities []Activity
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode json batch: %w", err)
		}
		key, _ := tok.(string)
		var a Activity
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("decode json batch: activity %q: %w", key, err)
		}
		if err := fillIDFromKey(&a, key); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}

func decodeYAML(r io.Reader) ([]Activity, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml batch: %w", err)
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}

	switch doc.Kind {
	case yaml.SequenceNode:
		var activities []Activity
		if err := doc.Decode(&activities); err != nil {
			return nil, fmt.Errorf("decode yaml batch: %w", err)
		}
		return activities, nil
	case yaml.MappingNode:
		activities := make([]Activity, 0, len(doc.Content)/2)
		for i := 0; i+1 < len(doc.Content); i += 2 {
			key := doc.Content[i].Value
			var a Activity
			if err := doc.Content[i+1].Decode(&a); err != nil {
				return nil, fmt.Errorf("decode yaml batch: activity %q: %w", key, err)
			}
			if err := fillIDFromKey(&a, key); err != nil {
				return nil, err
			}
			activities = append(activities, a)
		}
		return activities, nil
	default:
		return nil, fmt.Errorf("decode yaml batch: expected list or mapping")
	}
}

func fillIDFromKey(a *Activity, key string) error {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return fmt.Errorf("activity key %q is not an id: %w", key, err)
	}
	if a.ID != 0 && a.ID != id {
		return fmt.Errorf("activity key %q disagrees with id %d", key, a.ID)
	}
	a.ID = id
	return nil
}

// Encode writes activities as an indented JSON list.
func Encode(w io.Writer, activities []*Activity) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(activities)
}
