package main

import (
	"fmt"
	"time"

	"github.com/pascaldekloe/jwt"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt secret is not configured")
			}

			token, err := issueToken(subject, []byte(cfg.JWT.Secret), cfg.JWT.Issuer, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(token))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func issueToken(subject string, secret []byte, issuer string, ttl time.Duration, now time.Time) ([]byte, error) {
	var claims jwt.Claims
	claims.Subject = subject
	claims.Issuer = issuer
	claims.Issued = jwt.NewNumericTime(now.Truncate(time.Second))
	claims.NotBefore = jwt.NewNumericTime(now.Truncate(time.Second))
	claims.Expires = jwt.NewNumericTime(now.Add(ttl).Round(time.Second))

	token, err := claims.HMACSign(jwt.HS256, secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
