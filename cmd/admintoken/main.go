// Command admintoken mints a bearer token for the admin API, signed with
// the service's configured secret.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	infraconfig "github.com/jonesrussell/north-cloud/search-admin/infrastructure/config"
	"github.com/jonesrussell/north-cloud/search-admin/infrastructure/jwt"
	"github.com/jonesrussell/north-cloud/search-admin/internal/config"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	subject    string
	role       string
	ttl        time.Duration
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "admintoken",
		Short: "Mint a bearer token for the search-admin API",
		Long: `Mint an HS256 bearer token carrying a subject and a role.
The signing secret and the default role are read from the service config.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}
	cmd.SetOut(out)

	cmd.Flags().StringVar(&opts.configPath, "config", infraconfig.GetConfigPath("config.yml"), "path to the service config file")
	cmd.Flags().StringVar(&opts.subject, "subject", "admin", "token subject")
	cmd.Flags().StringVar(&opts.role, "role", "", "token role (default: auth.admin_role from config)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime, 0 for no expiry")

	return cmd
}

func run(out io.Writer, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err = infraconfig.ValidateRequired("auth.jwt_secret", cfg.Auth.JWTSecret); err != nil {
		return err
	}

	role := opts.role
	if role == "" {
		role = cfg.Auth.AdminRole
	}

	token, err := jwt.NewManager(cfg.Auth.JWTSecret, opts.ttl).GenerateToken(opts.subject, role)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
