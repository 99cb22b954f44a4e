// Package auth brokers credential sessions for resolved profiles through
// four interchangeable flows: azure_cli, device_code, client_credentials,
// and host_integrated.
package auth

import (
	"net/url"
	"strings"
)

// DefaultBaseScope is used when a profile has no cluster URL to derive one
// from.
const DefaultBaseScope = "https://api.applicationinsights.io/.default"

// tenantScopePrefix marks the tenant hint entry handed to the host's
// account system.
const tenantScopePrefix = "TENANT:"

// BaseScope derives the resource scope from the profile's cluster URL.
func BaseScope(clusterURL string) string {
	clusterURL = strings.TrimSpace(clusterURL)
	if clusterURL == "" {
		return DefaultBaseScope
	}
	u, err := url.Parse(clusterURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return DefaultBaseScope
	}
	return u.Scheme + "://" + u.Host + "/.default"
}

// HostScopes builds the scope list for the host_integrated flow. The tenant
// hint is always the FIRST entry so guest-tenant disambiguation works; an
// empty or whitespace-only tenant falls back to the base scope alone.
func HostScopes(tenantID, baseScope string) []string {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return []string{baseScope}
	}
	return []string{tenantScopePrefix + tenantID, baseScope}
}
