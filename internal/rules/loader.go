package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// tablesFile is the on-disk JSON shape of a rules file.
type tablesFile struct {
	Tables []*Table `json:"tables"`
}

// Load builds the rule registry. When path is empty the compiled-in
// default tables are used; otherwise the JSON file at path replaces
// them entirely. All tables are validated before the registry is
// returned, so conflicting rows are rejected here rather than resolved
// at lookup time.
func Load(path string, logger *logrus.Logger) (*Registry, error) {
	if path == "" {
		registry, err := NewRegistry(DefaultTables())
		if err != nil {
			return nil, fmt.Errorf("building default rule registry: %w", err)
		}
		logger.WithField("tables", registry.Names()).Info("Loaded compiled-in rule tables")
		return registry, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var file tablesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules file %s: %w", path, err)
	}

	registry, err := NewRegistry(file.Tables)
	if err != nil {
		return nil, fmt.Errorf("building rule registry from %s: %w", path, err)
	}

	logger.WithFields(logrus.Fields{
		"path":   path,
		"tables": registry.Names(),
	}).Info("Loaded rule tables from file")

	return registry, nil
}
