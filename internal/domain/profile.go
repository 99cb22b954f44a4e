package domain

import "strings"

// AuthFlow selects how a credential session is acquired for a profile.
type AuthFlow string

const (
	AuthFlowAzureCLI          AuthFlow = "azure_cli"
	AuthFlowDeviceCode        AuthFlow = "device_code"
	AuthFlowClientCredentials AuthFlow = "client_credentials"
	AuthFlowHostIntegrated    AuthFlow = "host_integrated"
)

// Valid reports whether f is one of the four supported flows.
func (f AuthFlow) Valid() bool {
	switch f {
	case AuthFlowAzureCLI, AuthFlowDeviceCode, AuthFlowClientCredentials, AuthFlowHostIntegrated:
		return true
	}
	return false
}

// BaseProfilePrefix marks a profile as inherit-only. Base profiles are never
// directly selectable.
const BaseProfilePrefix = "_"

// DefaultProfileName is the profile selected when neither the caller nor the
// document names one.
const DefaultProfileName = "default"

// Built-in fallbacks applied after profile and document-level settings.
const (
	DefaultCacheTTLSeconds = 3600
	DefaultCacheEnabled    = true
	DefaultRemovePII       = false
)

// Profile is a named, inheritable bundle of tenant, auth, endpoint, and
// policy settings. Optional scalars are pointers so an unset field is
// distinguishable from an explicit false/zero during inheritance merging.
type Profile struct {
	ConnectionName           string   `json:"connectionName,omitempty"`
	TenantID                 string   `json:"tenantId,omitempty"`
	AuthFlow                 AuthFlow `json:"authFlow,omitempty"`
	ClientID                 string   `json:"clientId,omitempty"`
	ClientSecret             string   `json:"clientSecret,omitempty"`
	ApplicationInsightsAppID string   `json:"applicationInsightsAppId,omitempty"`
	KustoClusterURL          string   `json:"kustoClusterUrl,omitempty"`
	CacheEnabled             *bool    `json:"cacheEnabled,omitempty"`
	CacheTTLSeconds          *int     `json:"cacheTTLSeconds,omitempty"`
	RemovePII                *bool    `json:"removePII,omitempty"`
	QueriesFolder            string   `json:"queriesFolder,omitempty"`
	References               []string `json:"references,omitempty"`
	Extends                  string   `json:"extends,omitempty"`
}

// CacheDefaults is the document-level cache block applied where a profile
// leaves cache settings unset.
type CacheDefaults struct {
	Enabled    *bool `json:"enabled,omitempty"`
	TTLSeconds *int  `json:"ttlSeconds,omitempty"`
}

// SanitizeDefaults is the document-level sanitize block applied where a
// profile leaves RemovePII unset.
type SanitizeDefaults struct {
	RemovePII *bool `json:"removePII,omitempty"`
}

// ProfiledConfig is the root configuration document. Profiles maps unique
// names to profiles; DefaultProfile names the profile used when a caller
// passes none.
type ProfiledConfig struct {
	DefaultProfile string             `json:"defaultProfile,omitempty"`
	Cache          *CacheDefaults     `json:"cache,omitempty"`
	Sanitize       *SanitizeDefaults  `json:"sanitize,omitempty"`
	References     []string           `json:"references,omitempty"`
	Profiles       map[string]Profile `json:"profiles"`
}

// IsBaseProfile reports whether name denotes an inherit-only base profile.
func IsBaseProfile(name string) bool {
	return strings.HasPrefix(name, BaseProfilePrefix)
}

// ResolvedConfig is the flattened, placeholder-expanded result of resolving
// one profile: inheritance applied, document defaults filled, built-in
// fallbacks last. All fields are concrete.
type ResolvedConfig struct {
	ProfileName              string
	ConnectionName           string
	TenantID                 string
	AuthFlow                 AuthFlow
	ClientID                 string
	ClientSecret             string
	ApplicationInsightsAppID string
	KustoClusterURL          string
	CacheEnabled             bool
	CacheTTLSeconds          int
	RemovePII                bool
	QueriesFolder            string
	References               []string
	WorkspacePath            string

	// UnresolvedPlaceholders lists ${VAR} names whose environment variable
	// was absent at resolve time. The literal placeholder text stays in the
	// field; callers surface these as authoring errors.
	UnresolvedPlaceholders []string
}

// IsConfigured reports whether the profile carries the minimum the backend
// needs. Absence is not an error by itself; it gates whether queries may run.
func (c *ResolvedConfig) IsConfigured() bool {
	return strings.TrimSpace(c.TenantID) != "" &&
		strings.TrimSpace(c.ApplicationInsightsAppID) != "" &&
		strings.TrimSpace(c.KustoClusterURL) != ""
}
