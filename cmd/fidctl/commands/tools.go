package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"funcid/internal/config"
	"funcid/internal/core/idcodec"
	"funcid/internal/domain/auth"
)

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <encoded>",
		Short: "Print the sequence number behind an encoded suffix (prefix removed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := idcodec.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		user  string
		email string
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the API using JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadEnv(opts.envFile)
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
			jwtConfig.Issuer = cfg.JWTIssuer
			jwtConfig.AccessTokenTTL = cfg.JWTTTL

			token, expiresAt, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(user, email, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Subject user id")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleAdmin}, "Roles to grant")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
