package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-curator/internal/config"
	"github.com/jonathan/content-curator/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue a bearer token for the HTTP API",
	Long:  `Sign a token with CURATOR_API_TOKEN. Lifetime comes from CURATOR_TOKEN_HOURS (default 24).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		jwtCfg, err := config.NewJWTConfig()
		if err != nil {
			return err
		}
		if jwtCfg == nil {
			return errors.New("CURATOR_API_TOKEN is not set")
		}
		token, err := server.NewTokenService(jwtCfg).GenerateToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
