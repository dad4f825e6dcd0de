package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/roadmatch/internal/server"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP service",
	Long:  `Sign a token with server.jwt_secret. The service only checks tokens when the secret is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := server.IssueToken([]byte(cfg.Server.JWTSecret), tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "roadmatch", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
