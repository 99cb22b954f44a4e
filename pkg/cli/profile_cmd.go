package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

func newProfileCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage workspace profiles",
		Long:  "Create, inspect, and maintain the named profiles stored in the workspace configuration document.",
	}

	cmd.AddCommand(newProfileListCmd(state))
	cmd.AddCommand(newProfileShowCmd(state))
	cmd.AddCommand(newProfileResolveCmd(state))
	cmd.AddCommand(newProfileCreateCmd(state))
	cmd.AddCommand(newProfileUpdateCmd(state))
	cmd.AddCommand(newProfileDeleteCmd(state))
	cmd.AddCommand(newProfileUseCmd(state))
	return cmd
}

// profileFlags holds the flag targets shared by create and update. Only
// flags the user actually set are applied, so update never clobbers fields
// it was not asked to touch and create leaves optional tri-state fields
// unset rather than pinned to a default.
type profileFlags struct {
	connection    string
	tenant        string
	flow          string
	clientID      string
	clientSecret  string
	appID         string
	cluster       string
	extends       string
	queriesFolder string
	references    []string
	cacheEnabled  bool
	cacheTTL      int
	removePII     bool
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.connection, "connection", "", "Human-readable connection name")
	cmd.Flags().StringVar(&f.tenant, "tenant", "", "Microsoft Entra tenant id")
	cmd.Flags().StringVar(&f.flow, "auth-flow", "", "Auth flow (azure_cli, device_code, client_credentials, host_integrated)")
	cmd.Flags().StringVar(&f.clientID, "client-id", "", "App registration client id")
	cmd.Flags().StringVar(&f.clientSecret, "client-secret", "", "Client secret (client_credentials flow)")
	cmd.Flags().StringVar(&f.appID, "app-id", "", "Application Insights application id")
	cmd.Flags().StringVar(&f.cluster, "cluster", "", "Kusto cluster URL")
	cmd.Flags().StringVar(&f.extends, "extends", "", "Base profile to inherit from")
	cmd.Flags().StringVar(&f.queriesFolder, "queries-folder", "", "Saved-queries folder override")
	cmd.Flags().StringSliceVar(&f.references, "reference", nil, "Reference URL or note (repeatable)")
	cmd.Flags().BoolVar(&f.cacheEnabled, "cache-enabled", true, "Cache query results")
	cmd.Flags().IntVar(&f.cacheTTL, "cache-ttl", domain.DefaultCacheTTLSeconds, "Cache TTL in seconds")
	cmd.Flags().BoolVar(&f.removePII, "remove-pii", false, "Redact emails, IPs, and tokens from results")
}

func (f *profileFlags) apply(cmd *cobra.Command, p *domain.Profile) {
	if cmd.Flags().Changed("connection") {
		p.ConnectionName = f.connection
	}
	if cmd.Flags().Changed("tenant") {
		p.TenantID = f.tenant
	}
	if cmd.Flags().Changed("auth-flow") {
		p.AuthFlow = domain.AuthFlow(f.flow)
	}
	if cmd.Flags().Changed("client-id") {
		p.ClientID = f.clientID
	}
	if cmd.Flags().Changed("client-secret") {
		p.ClientSecret = f.clientSecret
	}
	if cmd.Flags().Changed("app-id") {
		p.ApplicationInsightsAppID = f.appID
	}
	if cmd.Flags().Changed("cluster") {
		p.KustoClusterURL = f.cluster
	}
	if cmd.Flags().Changed("extends") {
		p.Extends = f.extends
	}
	if cmd.Flags().Changed("queries-folder") {
		p.QueriesFolder = f.queriesFolder
	}
	if cmd.Flags().Changed("reference") {
		p.References = f.references
	}
	if cmd.Flags().Changed("cache-enabled") {
		v := f.cacheEnabled
		p.CacheEnabled = &v
	}
	if cmd.Flags().Changed("cache-ttl") {
		v := f.cacheTTL
		p.CacheTTLSeconds = &v
	}
	if cmd.Flags().Changed("remove-pii") {
		v := f.removePII
		p.RemovePII = &v
	}
}

func newProfileListCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles in the workspace document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := a.Services.Config.Load()
			if err != nil {
				return err
			}

			names := make([]string, 0, len(doc.Profiles))
			for name := range doc.Profiles {
				names = append(names, name)
			}
			sort.Strings(names)

			type profileRow struct {
				Name       string `json:"name"`
				Connection string `json:"connectionName,omitempty"`
				AuthFlow   string `json:"authFlow,omitempty"`
				Extends    string `json:"extends,omitempty"`
				Base       bool   `json:"base,omitempty"`
				Default    bool   `json:"default,omitempty"`
			}
			list := make([]profileRow, 0, len(names))
			for _, name := range names {
				p := doc.Profiles[name]
				list = append(list, profileRow{
					Name:       name,
					Connection: p.ConnectionName,
					AuthFlow:   string(p.AuthFlow),
					Extends:    p.Extends,
					Base:       domain.IsBaseProfile(name),
					Default:    name == doc.DefaultProfile,
				})
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{
					"defaultProfile": doc.DefaultProfile,
					"profiles":       list,
				})
			}

			rows := make([][]string, 0, len(list))
			for _, row := range list {
				marker := ""
				if row.Default {
					marker = "*"
				}
				kind := ""
				if row.Base {
					kind = "base"
				}
				rows = append(rows, []string{marker, row.Name, row.Connection, row.AuthFlow, row.Extends, kind})
			}
			printTable(os.Stdout, []string{" ", "name", "connection", "flow", "extends", "kind"}, rows)
			return nil
		},
	}
}

func newProfileShowCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a profile as stored, before inheritance and expansion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := a.Services.Config.Load()
			if err != nil {
				return err
			}
			name := args[0]
			p, ok := doc.Profiles[name]
			if !ok {
				return domain.ErrProfileNotFound("profile %q not found in configuration document", name)
			}
			p.ClientSecret = maskSecret(p.ClientSecret)

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]interface{}{"name": name, "profile": p})
			}
			printDetail(os.Stdout, [][2]string{
				{"name", name},
				{"connection", p.ConnectionName},
				{"tenant", p.TenantID},
				{"auth flow", string(p.AuthFlow)},
				{"client id", p.ClientID},
				{"client secret", p.ClientSecret},
				{"app id", p.ApplicationInsightsAppID},
				{"cluster", p.KustoClusterURL},
				{"extends", p.Extends},
				{"queries folder", p.QueriesFolder},
				{"cache enabled", formatOptionalBool(p.CacheEnabled)},
				{"cache ttl", formatOptionalInt(p.CacheTTLSeconds)},
				{"remove pii", formatOptionalBool(p.RemovePII)},
				{"references", strings.Join(p.References, ", ")},
			})
			return nil
		},
	}
}

func newProfileResolveCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [name]",
		Short: "Show a profile after inheritance, defaults, and placeholder expansion",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			name := state.cfg.Profile
			if len(args) == 1 {
				name = args[0]
			}
			rc, err := a.Services.Config.ResolveProfile(name)
			if err != nil {
				return err
			}
			masked := *rc
			masked.ClientSecret = maskSecret(masked.ClientSecret)

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, resolvedView(&masked))
			}
			printDetail(os.Stdout, [][2]string{
				{"profile", masked.ProfileName},
				{"connection", masked.ConnectionName},
				{"tenant", masked.TenantID},
				{"auth flow", string(masked.AuthFlow)},
				{"client id", masked.ClientID},
				{"client secret", masked.ClientSecret},
				{"app id", masked.ApplicationInsightsAppID},
				{"cluster", masked.KustoClusterURL},
				{"cache enabled", strconv.FormatBool(masked.CacheEnabled)},
				{"cache ttl", strconv.Itoa(masked.CacheTTLSeconds)},
				{"remove pii", strconv.FormatBool(masked.RemovePII)},
				{"queries folder", masked.QueriesFolder},
				{"references", strings.Join(masked.References, ", ")},
				{"configured", strconv.FormatBool(masked.IsConfigured())},
			})
			if len(masked.UnresolvedPlaceholders) > 0 {
				fmt.Fprintf(os.Stderr, "Warning: unresolved placeholders: %s\n", strings.Join(masked.UnresolvedPlaceholders, ", "))
			}
			return nil
		},
	}
}

func newProfileCreateCmd(state *appState) *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Add a profile to the workspace document",
		Example: `  # Production profile authenticated through the Azure CLI
  bctb profile create prod --tenant 11111111-2222-3333-4444-555555555555 \
    --app-id aaaa-bbbb --cluster https://api.applicationinsights.io --auth-flow azure_cli

  # Sandbox inheriting shared settings from a base profile
  bctb profile create sandbox --extends _shared --connection "BC Sandbox"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			var p domain.Profile
			flags.apply(cmd, &p)
			if err := a.Services.Config.CreateProfile(args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Profile %q created in %s\n", args[0], a.Services.Config.Path())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfileUpdateCmd(state *appState) *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Change fields on an existing profile",
		Long:  "Apply the given flags to an existing profile. Fields without a flag keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := a.Services.Config.Load()
			if err != nil {
				return err
			}
			name := args[0]
			p, ok := doc.Profiles[name]
			if !ok {
				return domain.ErrProfileNotFound("profile %q not found in configuration document", name)
			}
			flags.apply(cmd, &p)
			if err := a.Services.Config.UpdateProfile(name, p); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Profile %q updated\n", name)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newProfileDeleteCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a profile from the workspace document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Services.Config.DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Profile %q deleted\n", args[0])
			return nil
		},
	}
}

func newProfileUseCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the document default profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := state.App(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Services.Config.SetDefaultProfile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Default profile set to %q\n", args[0])
			return nil
		},
	}
}

// resolvedView shapes a ResolvedConfig for JSON output with camelCase keys
// matching the document format.
func resolvedView(rc *domain.ResolvedConfig) map[string]interface{} {
	return map[string]interface{}{
		"profileName":              rc.ProfileName,
		"connectionName":           rc.ConnectionName,
		"tenantId":                 rc.TenantID,
		"authFlow":                 string(rc.AuthFlow),
		"clientId":                 rc.ClientID,
		"clientSecret":             rc.ClientSecret,
		"applicationInsightsAppId": rc.ApplicationInsightsAppID,
		"kustoClusterUrl":          rc.KustoClusterURL,
		"cacheEnabled":             rc.CacheEnabled,
		"cacheTTLSeconds":          rc.CacheTTLSeconds,
		"removePII":                rc.RemovePII,
		"queriesFolder":            rc.QueriesFolder,
		"references":               rc.References,
		"configured":               rc.IsConfigured(),
		"unresolvedPlaceholders":   rc.UnresolvedPlaceholders,
	}
}

func formatOptionalBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
