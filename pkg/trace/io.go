package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Load reads a msgpack trace from disk. A missing file surfaces as an
// error wrapping fs.ErrNotExist.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace %s: %w", path, err)
	}
	var doc Document
	if err := msgpack.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding trace %s: %w", path, err)
	}
	return doc, nil
}

// Save writes the document as msgpack, creating parent directories.
func Save(doc Document, path string) error {
	raw, err := msgpack.Marshal(map[string]any(doc))
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating trace dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing trace %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a JSON-authored trace.
func LoadJSON(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding trace %s: %w", path, err)
	}
	return doc, nil
}

// SaveJSON writes the document as indented JSON for authoring/inspection.
func SaveJSON(doc Document, path string) error {
	raw, err := json.MarshalIndent(map[string]any(doc), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating trace dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing trace %s: %w", path, err)
	}
	return nil
}

// ConvertJSONToMsgpack packs a JSON trace into the simulator's native format.
func ConvertJSONToMsgpack(jsonPath, msgpackPath string) error {
	doc, err := LoadJSON(jsonPath)
	if err != nil {
		return err
	}
	return Save(doc, msgpackPath)
}

// ConvertMsgpackToJSON unpacks a msgpack trace for inspection.
func ConvertMsgpackToJSON(msgpackPath, jsonPath string) error {
	doc, err := Load(msgpackPath)
	if err != nil {
		return err
	}
	return SaveJSON(doc, jsonPath)
}
