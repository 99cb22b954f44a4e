package config

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// Store manages the workspace profile document and resolves profiles from
// it. Every mutation rewrites the whole document atomically. Implements
// domain.ConfigResolver.
type Store struct {
	path     string
	resolver *Resolver
	logger   *slog.Logger
}

// NewStore creates a Store for the document at path.
func NewStore(path string, resolver *Resolver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, resolver: resolver, logger: logger.With("component", "config-store")}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load reads the current document. A missing file is an empty document.
func (s *Store) Load() (*domain.ProfiledConfig, error) {
	return LoadDocument(s.path)
}

// Save rewrites the document.
func (s *Store) Save(doc *domain.ProfiledConfig) error {
	return SaveDocument(s.path, doc)
}

// ResolveProfile loads the document and flattens the named profile.
func (s *Store) ResolveProfile(profileName string) (*domain.ResolvedConfig, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(doc, profileName)
}

// ProfileNames returns selectable profile names (base profiles excluded),
// sorted.
func (s *Store) ProfileNames() ([]string, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Profiles))
	for name := range doc.Profiles {
		if !domain.IsBaseProfile(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// CreateProfile adds a new profile and rewrites the document.
func (s *Store) CreateProfile(name string, p domain.Profile) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrMissingRequiredField("profile name must not be empty")
	}
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Profiles[name]; exists {
		return fmt.Errorf("profile %q already exists", name)
	}
	if p.AuthFlow != "" && !p.AuthFlow.Valid() {
		return domain.ErrMissingRequiredField("profile %q: unknown auth flow %q", name, p.AuthFlow)
	}
	doc.Profiles[name] = p
	if doc.DefaultProfile == "" && !domain.IsBaseProfile(name) {
		doc.DefaultProfile = name
	}
	if err := s.Save(doc); err != nil {
		return err
	}
	s.logger.Info("profile created", "profile", name)
	return nil
}

// UpdateProfile replaces an existing profile and rewrites the document.
func (s *Store) UpdateProfile(name string, p domain.Profile) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Profiles[name]; !exists {
		return domain.ErrProfileNotFound("profile %q not found in configuration document", name)
	}
	if p.AuthFlow != "" && !p.AuthFlow.Valid() {
		return domain.ErrMissingRequiredField("profile %q: unknown auth flow %q", name, p.AuthFlow)
	}
	doc.Profiles[name] = p
	if err := s.Save(doc); err != nil {
		return err
	}
	s.logger.Info("profile updated", "profile", name)
	return nil
}

// DeleteProfile removes a profile and rewrites the document. Deleting a
// profile other profiles still extend is rejected.
func (s *Store) DeleteProfile(name string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Profiles[name]; !exists {
		return domain.ErrProfileNotFound("profile %q not found in configuration document", name)
	}
	var dependents []string
	for other, p := range doc.Profiles {
		if other != name && p.Extends == name {
			dependents = append(dependents, other)
		}
	}
	if len(dependents) > 0 {
		sort.Strings(dependents)
		return fmt.Errorf("profile %q is extended by %s and cannot be deleted", name, strings.Join(dependents, ", "))
	}
	delete(doc.Profiles, name)
	if doc.DefaultProfile == name {
		doc.DefaultProfile = ""
	}
	if err := s.Save(doc); err != nil {
		return err
	}
	s.logger.Info("profile deleted", "profile", name)
	return nil
}

// SetDefaultProfile records which profile is used when callers pass none.
func (s *Store) SetDefaultProfile(name string) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, exists := doc.Profiles[name]; !exists {
		return domain.ErrProfileNotFound("profile %q not found in configuration document", name)
	}
	if domain.IsBaseProfile(name) {
		return domain.ErrProfileNotFound("profile %q is a base profile: base profiles can only be extended, not selected", name)
	}
	doc.DefaultProfile = name
	if err := s.Save(doc); err != nil {
		return err
	}
	s.logger.Info("default profile set", "profile", name)
	return nil
}
