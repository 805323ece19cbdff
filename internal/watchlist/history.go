package watchlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"StockSentinel/internal/model"
)

// History is the persisted evaluation history of one stock.
type History struct {
	ISIN      string                    `json:"isin"`
	Name      string                    `json:"name"`
	CapType   model.CapType             `json:"cap_type"`
	Results   []*model.EvaluationResult `json:"results"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

func historyPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

// LoadHistory reads a history file. Returns an empty history if the file doesn't exist.
func LoadHistory(filePath string) (*History, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &History{}, nil
		}
		return nil, err
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return &h, nil
}

// SaveHistory writes the history atomically via a temp file and rename.
func SaveHistory(filePath string, h *History) error {
	h.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
