package schema

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of one schema YAML file. A file may carry any
// mix of definition kinds; the scraped standard ships one file per kind.
type document struct {
	TriggerEvents []TriggerEventDefinition `yaml:"triggerEvents,omitempty"`
	Segments      []SegmentSchema          `yaml:"segments,omitempty"`
	DataTypes     []DataTypeDefinition     `yaml:"dataTypes,omitempty"`
	Tables        []TableDefinition        `yaml:"tables,omitempty"`
}

// LoadDir loads every .yaml/.yml file under dir into a MemoryStore. Files are
// loaded once at startup; the returned store is read-only thereafter.
func LoadDir(dir string, logger *zap.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store := NewMemoryStore()
	loaded := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if err := loadFile(store, path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		loaded++
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("schema store loaded",
		zap.String("dir", dir),
		zap.Int("files", loaded),
	)
	return store, nil
}

func loadFile(store *MemoryStore, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return LoadYAML(store, raw)
}

// LoadYAML merges one YAML schema document into store.
func LoadYAML(store *MemoryStore, raw []byte) error {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse schema document: %w", err)
	}

	for i := range doc.TriggerEvents {
		store.AddTriggerEvent(&doc.TriggerEvents[i])
	}
	for i := range doc.Segments {
		if err := store.AddSegment(&doc.Segments[i]); err != nil {
			return err
		}
	}
	for i := range doc.DataTypes {
		store.AddDataType(&doc.DataTypes[i])
	}
	for i := range doc.Tables {
		store.AddTable(&doc.Tables[i])
	}
	return nil
}
