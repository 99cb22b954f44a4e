package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// credential joins a token source with its optional explicit sign-in step.
// Flows without an interactive step (azure_cli, client_credentials) leave
// authenticate nil.
type credential struct {
	source       azcore.TokenCredential
	authenticate func(ctx context.Context, opts *policy.TokenRequestOptions) error
}

// BrokerDeps holds dependencies for Broker.
type BrokerDeps struct {
	Host           domain.HostSessionProvider                      // nil unless embedded in a host
	DeviceClientID string                                          // device-code client id override
	DevicePrompt   func(ctx context.Context, message string) error // nil uses the SDK's stdout prompt
	Logger         *slog.Logger
}

// Broker acquires credential sessions for resolved profiles. It persists
// nothing: at most one credential object is kept per profile so a flow's own
// in-memory token record can serve silent re-acquisition within the process.
// Implements domain.TokenBroker.
type Broker struct {
	host         domain.HostSessionProvider
	deviceClient string
	devicePrompt func(ctx context.Context, message string) error
	logger       *slog.Logger
	now          func() time.Time

	// newCredential builds the flow-specific credential; tests replace it.
	newCredential func(cfg *domain.ResolvedConfig) (*credential, error)

	mu    sync.Mutex
	creds map[string]*credential
}

var _ domain.TokenBroker = (*Broker)(nil)

// NewBroker creates a Broker.
func NewBroker(deps BrokerDeps) *Broker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		host:         deps.Host,
		deviceClient: deps.DeviceClientID,
		devicePrompt: deps.DevicePrompt,
		logger:       logger.With("component", "credential-broker"),
		now:          time.Now,
		creds:        make(map[string]*credential),
	}
	b.newCredential = b.buildCredential
	return b
}

// AcquireToken returns a live session for cfg. With interactive=false no
// prompt is ever raised; a flow that would need one fails with NoSession.
func (b *Broker) AcquireToken(ctx context.Context, cfg *domain.ResolvedConfig, interactive bool) (*domain.CredentialSession, error) {
	switch cfg.AuthFlow {
	case domain.AuthFlowHostIntegrated:
		return b.acquireFromHost(ctx, cfg, interactive)
	case domain.AuthFlowAzureCLI, domain.AuthFlowDeviceCode, domain.AuthFlowClientCredentials:
		cred, err := b.credentialFor(cfg)
		if err != nil {
			return nil, err
		}
		return b.acquireFromCredential(ctx, cfg, cred, interactive)
	case "":
		return nil, domain.ErrFlowFailed("profile %q does not specify an auth flow", cfg.ProfileName)
	default:
		return nil, domain.ErrFlowFailed("profile %q: unknown auth flow %q", cfg.ProfileName, cfg.AuthFlow)
	}
}

// CheckAuth probes for an existing session without prompting. (false, nil)
// is a definitive "not signed in"; (false, err) means the probe itself
// failed, and the two stay distinguishable.
func (b *Broker) CheckAuth(ctx context.Context, cfg *domain.ResolvedConfig) (bool, error) {
	switch cfg.AuthFlow {
	case domain.AuthFlowHostIntegrated:
		if b.host == nil {
			return false, domain.ErrFlowFailed("profile %q: no host session provider is wired", cfg.ProfileName)
		}
		scopes := HostScopes(cfg.TenantID, BaseScope(cfg.KustoClusterURL))
		session, err := b.host.AcquireSession(ctx, scopes, false)
		if err != nil {
			var noSession *domain.NoSessionError
			if errors.As(err, &noSession) {
				return false, nil
			}
			return false, err
		}
		return session.Valid(b.now()), nil
	case domain.AuthFlowAzureCLI, domain.AuthFlowDeviceCode, domain.AuthFlowClientCredentials:
		cred, err := b.credentialFor(cfg)
		if err != nil {
			return false, err
		}
		_, err = cred.source.GetToken(ctx, b.tokenOptions(cfg))
		switch {
		case err == nil:
			return true, nil
		case isAuthenticationRequired(err), isLoginRequired(err):
			return false, nil
		default:
			return false, domain.ErrFlowFailed("%s auth check failed: %v", cfg.AuthFlow, err)
		}
	case "":
		return false, domain.ErrFlowFailed("profile %q does not specify an auth flow", cfg.ProfileName)
	default:
		return false, domain.ErrFlowFailed("profile %q: unknown auth flow %q", cfg.ProfileName, cfg.AuthFlow)
	}
}

// SignOut drops broker-held state for cfg's profile. Flows whose sessions
// live outside this process report that explicitly.
func (b *Broker) SignOut(cfg *domain.ResolvedConfig) error {
	switch cfg.AuthFlow {
	case domain.AuthFlowHostIntegrated:
		return domain.ErrFlowFailed("profile %q: host_integrated sessions are managed by the host's account UI and cannot be signed out here", cfg.ProfileName)
	case domain.AuthFlowAzureCLI:
		return domain.ErrFlowFailed("profile %q: azure_cli sessions belong to the Azure CLI; run 'az logout'", cfg.ProfileName)
	default:
		b.mu.Lock()
		delete(b.creds, credentialKey(cfg))
		b.mu.Unlock()
		b.logger.Info("session state dropped", "profile", cfg.ProfileName, "flow", cfg.AuthFlow)
		return nil
	}
}

func credentialKey(cfg *domain.ResolvedConfig) string {
	return fmt.Sprintf("%s|%s|%s|%s", cfg.ProfileName, cfg.AuthFlow, cfg.TenantID, cfg.ClientID)
}

// credentialFor returns the cached credential for cfg, building one on first
// use. The cache key covers the identity-relevant fields so an edited
// profile gets a fresh credential.
func (b *Broker) credentialFor(cfg *domain.ResolvedConfig) (*credential, error) {
	key := credentialKey(cfg)
	b.mu.Lock()
	defer b.mu.Unlock()
	if cred, ok := b.creds[key]; ok {
		return cred, nil
	}
	cred, err := b.newCredential(cfg)
	if err != nil {
		return nil, err
	}
	b.creds[key] = cred
	return cred, nil
}

func (b *Broker) tokenOptions(cfg *domain.ResolvedConfig) policy.TokenRequestOptions {
	return policy.TokenRequestOptions{Scopes: []string{BaseScope(cfg.KustoClusterURL)}}
}

func (b *Broker) acquireFromCredential(ctx context.Context, cfg *domain.ResolvedConfig, cred *credential, interactive bool) (*domain.CredentialSession, error) {
	opts := b.tokenOptions(cfg)
	token, err := cred.source.GetToken(ctx, opts)
	if err != nil {
		switch {
		case isAuthenticationRequired(err):
			if !interactive {
				return nil, domain.ErrNoSession("profile %q: sign-in required and interactive prompts are not allowed", cfg.ProfileName)
			}
			if cred.authenticate == nil {
				return nil, domain.ErrFlowFailed("%s flow cannot prompt for sign-in", cfg.AuthFlow)
			}
			if err := cred.authenticate(ctx, &opts); err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return nil, domain.ErrAuthCancelled("sign-in cancelled")
				}
				return nil, domain.ErrFlowFailed("device sign-in failed: %v", err)
			}
			token, err = cred.source.GetToken(ctx, opts)
			if err != nil {
				return nil, domain.ErrFlowFailed("token acquisition after sign-in failed: %v", err)
			}
		case isLoginRequired(err):
			return nil, domain.ErrNoSession("profile %q: no Azure CLI session available (run 'az login')", cfg.ProfileName)
		case ctx.Err() != nil:
			return nil, domain.ErrAuthCancelled("token acquisition cancelled")
		default:
			return nil, domain.ErrFlowFailed("%s flow failed: %v", cfg.AuthFlow, err)
		}
	}
	return b.sessionFromToken(cfg, token)
}

func (b *Broker) acquireFromHost(ctx context.Context, cfg *domain.ResolvedConfig, interactive bool) (*domain.CredentialSession, error) {
	if b.host == nil {
		return nil, domain.ErrFlowFailed("profile %q: no host session provider is wired", cfg.ProfileName)
	}
	scopes := HostScopes(cfg.TenantID, BaseScope(cfg.KustoClusterURL))
	session, err := b.host.AcquireSession(ctx, scopes, interactive)
	if err != nil {
		var noSession *domain.NoSessionError
		var flowFailed *domain.FlowFailedError
		var cancelled *domain.AuthCancelledError
		if errors.As(err, &noSession) || errors.As(err, &flowFailed) || errors.As(err, &cancelled) {
			return nil, err
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, domain.ErrAuthCancelled("host sign-in cancelled")
		}
		return nil, domain.ErrFlowFailed("host session acquisition failed: %v", err)
	}
	if session == nil {
		if interactive {
			return nil, domain.ErrFlowFailed("host returned no session")
		}
		return nil, domain.ErrNoSession("profile %q: no host session available without prompting", cfg.ProfileName)
	}
	if !session.Valid(b.now()) {
		return nil, domain.ErrNoSession("profile %q: host session is already expired", cfg.ProfileName)
	}
	b.logger.Debug("host session acquired", "profile", cfg.ProfileName, "account", session.Account.Label)
	return session, nil
}

func (b *Broker) sessionFromToken(cfg *domain.ResolvedConfig, token azcore.AccessToken) (*domain.CredentialSession, error) {
	session := &domain.CredentialSession{
		AccessToken: token.Token,
		ExpiresOn:   token.ExpiresOn,
		Account:     accountFromToken(token.Token),
	}
	if !session.Valid(b.now()) {
		return nil, domain.ErrNoSession("profile %q: acquired token is already expired", cfg.ProfileName)
	}
	b.logger.Debug("session acquired",
		"profile", cfg.ProfileName,
		"flow", cfg.AuthFlow,
		"account", session.Account.Label,
		"expires", session.ExpiresOn)
	return session, nil
}

// isAuthenticationRequired reports whether err is azidentity's signal that a
// silent acquisition needs user interaction.
func isAuthenticationRequired(err error) bool {
	var required *azidentity.AuthenticationRequiredError
	return errors.As(err, &required)
}

// isLoginRequired matches the Azure CLI credential's "not logged in" errors,
// which arrive as opaque subprocess output.
func isLoginRequired(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "az login") || strings.Contains(msg, "not logged in")
}
