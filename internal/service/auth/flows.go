package auth

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// buildCredential constructs the azidentity credential for cfg's flow.
// host_integrated never reaches here; it is served by the host provider.
func (b *Broker) buildCredential(cfg *domain.ResolvedConfig) (*credential, error) {
	switch cfg.AuthFlow {
	case domain.AuthFlowAzureCLI:
		return b.buildAzureCLI(cfg)
	case domain.AuthFlowDeviceCode:
		return b.buildDeviceCode(cfg)
	case domain.AuthFlowClientCredentials:
		return b.buildClientCredentials(cfg)
	default:
		return nil, domain.ErrFlowFailed("profile %q: unknown auth flow %q", cfg.ProfileName, cfg.AuthFlow)
	}
}

func (b *Broker) buildAzureCLI(cfg *domain.ResolvedConfig) (*credential, error) {
	opts := &azidentity.AzureCLICredentialOptions{}
	if tenant := strings.TrimSpace(cfg.TenantID); tenant != "" {
		opts.TenantID = tenant
	}
	cred, err := azidentity.NewAzureCLICredential(opts)
	if err != nil {
		return nil, domain.ErrFlowFailed("azure_cli credential: %v", err)
	}
	return &credential{source: cred}, nil
}

func (b *Broker) buildDeviceCode(cfg *domain.ResolvedConfig) (*credential, error) {
	opts := &azidentity.DeviceCodeCredentialOptions{
		// Prompting happens only through the explicit authenticate step so
		// silent probes can never block on user input.
		DisableAutomaticAuthentication: true,
	}
	if tenant := strings.TrimSpace(cfg.TenantID); tenant != "" {
		opts.TenantID = tenant
	}
	switch {
	case strings.TrimSpace(cfg.ClientID) != "":
		opts.ClientID = strings.TrimSpace(cfg.ClientID)
	case b.deviceClient != "":
		opts.ClientID = b.deviceClient
	}
	if b.devicePrompt != nil {
		prompt := b.devicePrompt
		opts.UserPrompt = func(ctx context.Context, message azidentity.DeviceCodeMessage) error {
			return prompt(ctx, message.Message)
		}
	}
	cred, err := azidentity.NewDeviceCodeCredential(opts)
	if err != nil {
		return nil, domain.ErrFlowFailed("device_code credential: %v", err)
	}
	return &credential{
		source: cred,
		authenticate: func(ctx context.Context, opts *policy.TokenRequestOptions) error {
			_, err := cred.Authenticate(ctx, opts)
			return err
		},
	}, nil
}

func (b *Broker) buildClientCredentials(cfg *domain.ResolvedConfig) (*credential, error) {
	tenant := strings.TrimSpace(cfg.TenantID)
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := cfg.ClientSecret
	switch {
	case tenant == "":
		return nil, domain.ErrFlowFailed("profile %q: client_credentials flow requires tenantId", cfg.ProfileName)
	case clientID == "":
		return nil, domain.ErrFlowFailed("profile %q: client_credentials flow requires clientId", cfg.ProfileName)
	case secret == "":
		return nil, domain.ErrFlowFailed("profile %q: client_credentials flow requires clientSecret", cfg.ProfileName)
	}
	cred, err := azidentity.NewClientSecretCredential(tenant, clientID, secret, nil)
	if err != nil {
		return nil, domain.ErrFlowFailed("client_credentials credential: %v", err)
	}
	return &credential{source: cred}, nil
}
