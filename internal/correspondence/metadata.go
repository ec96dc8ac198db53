package correspondence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/content-curator/internal/artifacts"
)

// metadataTimeLayout is how timestamps are written to the metadata file.
const metadataTimeLayout = time.DateTime

// DefaultLookback bounds the first inbox scan when no metadata exists yet.
const DefaultLookback = 7 * 24 * time.Hour

// Metadata is the triage bookkeeping persisted between runs.
type Metadata struct {
	LastEmailCheck       string `json:"last_email_check"`
	LastContextRefresh   string `json:"last_context_refresh"`
	TotalEmailsProcessed int    `json:"total_emails_processed"`
	TotalDraftsCreated   int    `json:"total_drafts_created"`
	SpreadsheetID        string `json:"spreadsheet_id"`
}

// LastCheck parses LastEmailCheck. A zero time means never checked.
func (m Metadata) LastCheck() time.Time {
	t, err := time.ParseInLocation(metadataTimeLayout, m.LastEmailCheck, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LoadMetadata reads the metadata file. A missing file yields fresh
// metadata whose last check lies DefaultLookback before now.
func LoadMetadata(path, spreadsheetID string, now time.Time) (Metadata, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		stamp := now.UTC().Format(metadataTimeLayout)
		return Metadata{
			LastEmailCheck:     now.UTC().Add(-DefaultLookback).Format(metadataTimeLayout),
			LastContextRefresh: stamp,
			SpreadsheetID:      spreadsheetID,
		}, nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	if m.SpreadsheetID == "" {
		m.SpreadsheetID = spreadsheetID
	}
	return m, nil
}

// SaveMetadata writes m to path atomically.
func SaveMetadata(path string, m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create metadata directory: %w", err)
		}
	}
	return artifacts.WriteFileAtomic(path, append(data, '\n'))
}
