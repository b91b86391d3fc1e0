package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"qcl-datasheet/internal/domain"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// YAMLStateStore keeps the values one run derives for a later one (fitted
// threshold formulas, emission frequency ranges) in a flat YAML map.
type YAMLStateStore struct {
	logger *zap.Logger
}

func NewYAMLStateStore(logger *zap.Logger) *YAMLStateStore {
	return &YAMLStateStore{logger: logger}
}

// Load reads path. A missing file is an empty state.
func (s *YAMLStateStore) Load(path string) (domain.MetadataMap, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.MetadataMap{}, nil
	}
	if err != nil {
		return nil, err
	}

	state := domain.MetadataMap{}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, path, err)
	}
	return state, nil
}

func (s *YAMLStateStore) Save(path string, state domain.MetadataMap) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	s.logger.Debug("Run state saved", zap.String("file", path), zap.Int("keys", len(state)))
	return nil
}
