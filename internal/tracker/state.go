package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ReversalSentinel/internal/model"
)

// LoadState reads the tracker state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.TrackerState, error) {
	empty := &model.TrackerState{Series: make(map[string]*model.SeriesState)}
	if filePath == "" {
		return empty, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var state model.TrackerState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state.Series == nil {
		state.Series = make(map[string]*model.SeriesState)
	}
	return &state, nil
}

// SaveState writes the tracker state to a JSON file via a temp file and rename.
func SaveState(filePath string, state *model.TrackerState) error {
	if filePath == "" {
		return nil
	}
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
