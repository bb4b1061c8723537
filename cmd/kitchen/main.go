package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"dinein-system/config"
	"dinein-system/internal/health"
	"dinein-system/internal/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "kitchen",
		Short:   "Kitchen display for incoming orders",
		Version: Version,
	}

	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(probeCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func probeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the gateway reports itself as serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			service, _ := cmd.Flags().GetString("service")

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			if err := health.Probe(ctx, addr, service); err != nil {
				return err
			}
			fmt.Printf("%s at %s: SERVING\n", service, addr)
			return nil
		},
	}

	cmd.Flags().String("addr", "localhost:50051", "gRPC health address of the gateway")
	cmd.Flags().String("service", health.ServiceName, "Health service name")

	return cmd
}

// tokenCmd mints a staff token from the shared secret for local setups.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a staff token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			restaurant, _ := cmd.Flags().GetString("restaurant")
			restaurantID, err := uuid.Parse(restaurant)
			if err != nil {
				return fmt.Errorf("invalid --restaurant: %w", err)
			}
			role, _ := cmd.Flags().GetString("role")
			if role != utils.RoleStaff && role != utils.RoleOwner {
				return fmt.Errorf("--role must be %s or %s", utils.RoleStaff, utils.RoleOwner)
			}
			user, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			tok, exp, err := utils.GenerateToken([]byte(cfg.Auth.JWTSecret), user, restaurantID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			fmt.Fprintf(os.Stderr, "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringP("restaurant", "r", "", "Restaurant id")
	cmd.Flags().String("role", utils.RoleStaff, "Role (staff, owner)")
	cmd.Flags().StringP("user", "u", "kitchen", "User id recorded as the actor")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("restaurant")

	return cmd
}
