// Package main provides the interactive login CLI. It runs the email
// challenge flow against the upstream and writes the credential file the API
// server reads.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nettalco/invoice-extractor/internal/auth"
	"github.com/nettalco/invoice-extractor/internal/config"
	"github.com/nettalco/invoice-extractor/internal/observability"
)

var (
	cfgFile string
	email   string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "invoice-login",
	Short: "Log in to claude.ai and save session cookies",
	Long: `invoice-login runs the email login flow: it requests a one-time code,
prompts for it, and writes the resulting session cookies to the credential
file used by the invoice API server.`,
	RunE: runLogin,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted if omitted)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	if noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Keep CLI output clean: the structured logger only surfaces errors.
	logger := observability.NewLogger(observability.LogConfig{
		Level:       "error",
		Format:      "console",
		ServiceName: "invoice-login",
	})

	reader := bufio.NewReader(os.Stdin)

	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	client, err := auth.NewLoginClient(cfg.Session.BaseURL, cfg.Session.CookieFile, cfg.Session.Locale, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Requesting login code for %s...\n", email)
	if err := client.SendCode(cmd.Context(), email); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		return err
	}
	color.New(color.FgGreen).Printf("✓ Code sent, check your inbox\n")

	fmt.Print("6-digit code: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read code: %w", err)
	}
	code := strings.TrimSpace(line)

	count, err := client.VerifyCode(cmd.Context(), email, code)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		return err
	}

	color.New(color.FgGreen).Printf("✓ Logged in, %d cookies saved to %s\n", count, cfg.Session.CookieFile)
	fmt.Println("Restart the API server or POST /auth/reload-session to pick them up.")
	return nil
}
