package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/fsx"
)

// LoadDocument reads the profile document at path. A missing file yields an
// empty document so first-run profile creation works; a present but
// unparseable file is an error.
//
// Two layouts are accepted: the profiled layout with a "profiles" map, and
// the legacy flat layout with profile fields at the document root. The flat
// layout becomes an implicit single profile named "default".
func LoadDocument(path string) (*domain.ProfiledConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // workspace-relative path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.ProfiledConfig{Profiles: map[string]domain.Profile{}}, nil
		}
		return nil, fmt.Errorf("read config document %s: %w", path, err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse config document %s: %w", path, err)
	}

	if _, hasProfiles := probe["profiles"]; !hasProfiles {
		return loadFlatDocument(path, data)
	}

	var doc domain.ProfiledConfig
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config document %s: %w", path, err)
	}
	if doc.Profiles == nil {
		doc.Profiles = map[string]domain.Profile{}
	}
	return &doc, nil
}

// loadFlatDocument interprets the legacy single-profile layout.
func loadFlatDocument(path string, data []byte) (*domain.ProfiledConfig, error) {
	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse flat config document %s: %w", path, err)
	}
	return &domain.ProfiledConfig{
		DefaultProfile: domain.DefaultProfileName,
		Profiles: map[string]domain.Profile{
			domain.DefaultProfileName: p,
		},
	}, nil
}

// SaveDocument rewrites the whole profile document atomically. Profile
// mutation operations always go through here; there is no partial update.
func SaveDocument(path string, doc *domain.ProfiledConfig) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config document: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	// 0600: the document may carry a client secret.
	if err := fsx.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("write config document %s: %w", path, err)
	}
	return nil
}
