package domain

import "time"

// Account identifies who a credential session belongs to, for display only.
type Account struct {
	ID    string
	Label string
}

// CredentialSession is a brokered access token with its expiry and account
// metadata. Sessions live in memory only and are never persisted; a session
// must not be handed to a caller once expired.
type CredentialSession struct {
	AccessToken string
	ExpiresOn   time.Time
	Account     Account
}

// Valid reports whether the session is usable at the given instant.
func (s *CredentialSession) Valid(now time.Time) bool {
	return s != nil && s.AccessToken != "" && now.Before(s.ExpiresOn)
}
