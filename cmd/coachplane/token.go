package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coachkit/coachplane/internal/auth"
	"github.com/coachkit/coachplane/internal/config"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
	tokenName    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed user token with COACHPLANE_TOKEN_SECRET",
	RunE:  runToken,
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenSubject, "subject", "", "subject, the coach id for coaches")
	f.StringVar(&tokenRole, "role", string(models.RoleCoach), "ADMIN, COACH or CLIENT")
	f.StringVar(&tokenName, "name", "", "display name")
	f.DurationVar(&tokenTTL, "ttl", 24*time.Hour, "lifetime, 0 for no expiry")
	tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := config.Load().Auth.TokenSecret
	if secret == "" {
		return errors.New("COACHPLANE_TOKEN_SECRET is not set")
	}

	role := models.Role(strings.ToUpper(tokenRole))
	switch role {
	case models.RoleAdmin, models.RoleCoach, models.RoleClient:
	default:
		return fmt.Errorf("unknown role %q", tokenRole)
	}

	token, err := auth.MintToken([]byte(secret), tokenSubject, role, tokenName, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
