package config

import (
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Resolver flattens one named profile: inheritance chain applied most-base
// ancestor first, document-level defaults filled where the profile is
// silent, built-in fallbacks last, then ${ENV_VAR} expansion over every
// string field.
type Resolver struct {
	workspace string
	logger    *slog.Logger
}

// NewResolver creates a Resolver rooted at the given workspace path.
func NewResolver(workspace string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{workspace: workspace, logger: logger.With("component", "config-resolver")}
}

// Resolve flattens the named profile from doc. Name selection order:
// explicit profileName, the document's defaultProfile, the literal name
// "default". Base profiles (leading "_") are inherit-only and cannot be
// selected directly.
func (r *Resolver) Resolve(doc *domain.ProfiledConfig, profileName string) (*domain.ResolvedConfig, error) {
	name := strings.TrimSpace(profileName)
	if name == "" {
		name = strings.TrimSpace(doc.DefaultProfile)
	}
	if name == "" {
		name = domain.DefaultProfileName
	}

	if domain.IsBaseProfile(name) {
		return nil, domain.ErrProfileNotFound("profile %q is a base profile: base profiles can only be extended, not selected", name)
	}
	if _, ok := doc.Profiles[name]; !ok {
		return nil, domain.ErrProfileNotFound("profile %q not found in configuration document", name)
	}

	chain, err := inheritanceChain(doc, name)
	if err != nil {
		return nil, err
	}

	merged := domain.Profile{}
	for _, link := range chain {
		overlayProfile(&merged, doc.Profiles[link])
	}
	applyDocumentDefaults(&merged, doc)

	resolved := &domain.ResolvedConfig{
		ProfileName:              name,
		ConnectionName:           merged.ConnectionName,
		TenantID:                 merged.TenantID,
		AuthFlow:                 merged.AuthFlow,
		ClientID:                 merged.ClientID,
		ClientSecret:             merged.ClientSecret,
		ApplicationInsightsAppID: merged.ApplicationInsightsAppID,
		KustoClusterURL:          merged.KustoClusterURL,
		CacheEnabled:             boolOr(merged.CacheEnabled, domain.DefaultCacheEnabled),
		CacheTTLSeconds:          intOr(merged.CacheTTLSeconds, domain.DefaultCacheTTLSeconds),
		RemovePII:                boolOr(merged.RemovePII, domain.DefaultRemovePII),
		QueriesFolder:            merged.QueriesFolder,
		References:               append([]string(nil), merged.References...),
		WorkspacePath:            r.workspace,
	}

	r.expandPlaceholders(resolved)
	return resolved, nil
}

// inheritanceChain returns profile names ordered most-base ancestor first,
// ending with the requested profile. A revisited name is a cycle.
func inheritanceChain(doc *domain.ProfiledConfig, name string) ([]string, error) {
	chain := []string{name}
	visited := map[string]bool{name: true}
	current := doc.Profiles[name]
	currentName := name
	for current.Extends != "" {
		parentName := current.Extends
		if visited[parentName] {
			return nil, domain.ErrCyclicInheritance("profile inheritance cycle detected: %s -> %s", strings.Join(reverse(chain), " -> "), parentName)
		}
		parent, ok := doc.Profiles[parentName]
		if !ok {
			return nil, domain.ErrProfileNotFound("profile %q extends unknown profile %q", currentName, parentName)
		}
		chain = append(chain, parentName)
		visited[parentName] = true
		current = parent
		currentName = parentName
	}
	return reverse(chain), nil
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// overlayProfile copies src's defined fields over dst. Empty strings and nil
// pointers/slices count as undefined and fall through to the ancestor value.
func overlayProfile(dst *domain.Profile, src domain.Profile) {
	if src.ConnectionName != "" {
		dst.ConnectionName = src.ConnectionName
	}
	if src.TenantID != "" {
		dst.TenantID = src.TenantID
	}
	if src.AuthFlow != "" {
		dst.AuthFlow = src.AuthFlow
	}
	if src.ClientID != "" {
		dst.ClientID = src.ClientID
	}
	if src.ClientSecret != "" {
		dst.ClientSecret = src.ClientSecret
	}
	if src.ApplicationInsightsAppID != "" {
		dst.ApplicationInsightsAppID = src.ApplicationInsightsAppID
	}
	if src.KustoClusterURL != "" {
		dst.KustoClusterURL = src.KustoClusterURL
	}
	if src.CacheEnabled != nil {
		dst.CacheEnabled = src.CacheEnabled
	}
	if src.CacheTTLSeconds != nil {
		dst.CacheTTLSeconds = src.CacheTTLSeconds
	}
	if src.RemovePII != nil {
		dst.RemovePII = src.RemovePII
	}
	if src.QueriesFolder != "" {
		dst.QueriesFolder = src.QueriesFolder
	}
	if len(src.References) > 0 {
		dst.References = src.References
	}
	if src.Extends != "" {
		dst.Extends = src.Extends
	}
}

// applyDocumentDefaults fills cache/sanitize settings the merged profile
// left unset. A profile's explicit false always survives a document true.
func applyDocumentDefaults(p *domain.Profile, doc *domain.ProfiledConfig) {
	if doc.Cache != nil {
		if p.CacheEnabled == nil && doc.Cache.Enabled != nil {
			p.CacheEnabled = doc.Cache.Enabled
		}
		if p.CacheTTLSeconds == nil && doc.Cache.TTLSeconds != nil {
			p.CacheTTLSeconds = doc.Cache.TTLSeconds
		}
	}
	if doc.Sanitize != nil && p.RemovePII == nil && doc.Sanitize.RemovePII != nil {
		p.RemovePII = doc.Sanitize.RemovePII
	}
	if len(p.References) == 0 && len(doc.References) > 0 {
		p.References = doc.References
	}
}

func boolOr(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

// expandPlaceholders substitutes ${VAR} from the process environment in
// every string field. A placeholder whose variable is absent stays literal
// and its name is surfaced through UnresolvedPlaceholders; resolution never
// fails on it.
func (r *Resolver) expandPlaceholders(cfg *domain.ResolvedConfig) {
	unresolved := map[string]bool{}
	expand := func(s string) string {
		return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
			varName := placeholderPattern.FindStringSubmatch(match)[1]
			if value, ok := os.LookupEnv(varName); ok {
				return value
			}
			unresolved[varName] = true
			return match
		})
	}

	cfg.ConnectionName = expand(cfg.ConnectionName)
	cfg.TenantID = expand(cfg.TenantID)
	cfg.ClientID = expand(cfg.ClientID)
	cfg.ClientSecret = expand(cfg.ClientSecret)
	cfg.ApplicationInsightsAppID = expand(cfg.ApplicationInsightsAppID)
	cfg.KustoClusterURL = expand(cfg.KustoClusterURL)
	cfg.QueriesFolder = expand(cfg.QueriesFolder)
	for i, ref := range cfg.References {
		cfg.References[i] = expand(ref)
	}

	names := make([]string, 0, len(unresolved))
	for varName := range unresolved {
		names = append(names, varName)
	}
	sort.Strings(names)
	for _, varName := range names {
		cfg.UnresolvedPlaceholders = append(cfg.UnresolvedPlaceholders, varName)
		r.logger.Warn("environment placeholder left unresolved",
			"profile", cfg.ProfileName,
			"variable", varName)
	}
}
