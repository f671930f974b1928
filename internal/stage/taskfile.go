package stage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tandemhq/tandem/pkg/models"
)

// LoadTask reads and normalizes a task file. Both JSON and YAML task
// files are accepted; YAML documents are converted to their JSON form
// before normalization so the two formats follow identical rules.
func LoadTask(path string) (models.Task, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Task{}, nil, fmt.Errorf("read task file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return models.Task{}, nil, fmt.Errorf("parse task file %s: %w", path, err)
		}
		data, err = json.Marshal(doc)
		if err != nil {
			return models.Task{}, nil, fmt.Errorf("convert task file %s: %w", path, err)
		}
	}

	task, errs, err := models.NormalizeTask(data)
	if err != nil {
		return models.Task{}, nil, fmt.Errorf("task file %s: %w", path, err)
	}
	return task, errs, nil
}
