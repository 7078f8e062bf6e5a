package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/devicehub/internal/auth"
)

func newTokenCmd(out io.Writer) *cobra.Command {
	var (
		subject string
		role    string
		secret  string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the server's JWT secret",
		Long: `Token signs an access token locally. The secret must match the
server's security.jwt.secret and defaults to $DEVICEHUB_JWT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			r := auth.Role(role)
			if !auth.IsValidRole(r) {
				return fmt.Errorf("unknown role %q (valid: %v)", role, auth.ValidRoles)
			}
			if secret == "" {
				return fmt.Errorf("--secret or DEVICEHUB_JWT_SECRET is required")
			}

			token, err := auth.GenerateAccessToken(subject, r, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "devicectl", "token subject")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleViewer), "role: viewer or admin")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("DEVICEHUB_JWT_SECRET"), "HMAC signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
