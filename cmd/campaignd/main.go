package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MarkoPoloResearchLab/campaigns/internal/auth"
	"github.com/MarkoPoloResearchLab/campaigns/internal/campaignd"
	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagDatabaseURL      = "database-url"
	flagStoreBackend     = "store-backend"
	flagListenAddr       = "listen-addr"
	flagOwnerAddress     = "owner-address"
	flagJWTSigningKey    = "jwt-signing-key"
	flagJWTIssuer        = "jwt-issuer"
	flagStrictValidation = "strict-validation"
	flagNATSURL          = "nats-url"
	flagPayoutMode       = "payout-mode"
	flagPayoutSubject    = "payout-subject"
	flagPayoutTimeout    = "payout-timeout"
	flagSubject          = "subject"
	flagTTL              = "ttl"
	envPrefix            = "CAMPAIGND"
	defaultTokenTTL      = 24 * time.Hour
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "campaignd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	cfg := campaignd.Config{}
	runServe := func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return campaignd.Run(ctx, cfg)
	}
	loadServe := func(cmd *cobra.Command, args []string) error {
		return loadServeConfig(cmd, v, &cfg)
	}

	rootCmd := &cobra.Command{
		Use:           "campaignd",
		Short:         "Charitable campaign ledger gRPC server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       loadServe,
		RunE:          runServe,
	}
	rootCmd.PersistentFlags().String(flagJWTSigningKey, "", "HMAC key for caller tokens (required)")
	rootCmd.PersistentFlags().String(flagJWTIssuer, "", "caller token issuer (default campaignd)")
	addServeFlags(rootCmd)

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the gRPC server",
		PreRunE: loadServe,
		RunE:    runServe,
	}
	addServeFlags(serveCmd)

	rootCmd.AddCommand(serveCmd, newTokenCommand(v))
	return rootCmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagDatabaseURL, "", "postgres:// or sqlite:// url, or a SQLite file path")
	cmd.Flags().String(flagStoreBackend, "", "store backend: gorm or pgx")
	cmd.Flags().String(flagListenAddr, "", "gRPC listen address")
	cmd.Flags().String(flagOwnerAddress, "", "ledger owner address (required)")
	cmd.Flags().Bool(flagStrictValidation, false, "enforce capacity, price and consumption bounds")
	cmd.Flags().String(flagNATSURL, "", "NATS url for event notifications and payout requests")
	cmd.Flags().String(flagPayoutMode, "", "payout mode: manual or nats")
	cmd.Flags().String(flagPayoutSubject, "", "NATS subject for payout requests")
	cmd.Flags().Duration(flagPayoutTimeout, 0, "payout request timeout")
}

func newTokenCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a caller token for an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, v, flagJWTSigningKey, flagJWTIssuer, flagSubject, flagTTL); err != nil {
				return err
			}
			signingKey := v.GetString(flagJWTSigningKey)
			issuerName := strings.TrimSpace(v.GetString(flagJWTIssuer))
			if issuerName == "" {
				issuerName = "campaignd"
			}
			subject, err := ledger.NewAddress(v.GetString(flagSubject))
			if err != nil {
				return fmt.Errorf("%s: %w", flagSubject, err)
			}
			ttl := v.GetDuration(flagTTL)
			if ttl <= 0 {
				ttl = defaultTokenTTL
			}
			issuer, err := auth.NewIssuer([]byte(signingKey), issuerName)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(subject, time.Now(), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().String(flagSubject, "", "caller address carried by the token (required)")
	cmd.Flags().Duration(flagTTL, defaultTokenTTL, "token lifetime")
	return cmd
}

func loadServeConfig(cmd *cobra.Command, v *viper.Viper, cfg *campaignd.Config) error {
	if err := bindFlags(cmd, v,
		flagDatabaseURL, flagStoreBackend, flagListenAddr, flagOwnerAddress, flagJWTSigningKey, flagJWTIssuer,
		flagStrictValidation, flagNATSURL, flagPayoutMode, flagPayoutSubject, flagPayoutTimeout,
	); err != nil {
		return err
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.StoreBackend = strings.TrimSpace(v.GetString(flagStoreBackend))
	cfg.ListenAddr = strings.TrimSpace(v.GetString(flagListenAddr))
	cfg.OwnerAddress = strings.TrimSpace(v.GetString(flagOwnerAddress))
	cfg.JWTSigningKey = v.GetString(flagJWTSigningKey)
	cfg.JWTIssuer = strings.TrimSpace(v.GetString(flagJWTIssuer))
	cfg.StrictValidation = v.GetBool(flagStrictValidation)
	cfg.NATSURL = strings.TrimSpace(v.GetString(flagNATSURL))
	cfg.PayoutMode = strings.TrimSpace(v.GetString(flagPayoutMode))
	cfg.PayoutSubject = strings.TrimSpace(v.GetString(flagPayoutSubject))
	cfg.PayoutTimeout = v.GetDuration(flagPayoutTimeout)

	return cfg.Validate()
}

func bindFlags(cmd *cobra.Command, v *viper.Viper, names ...string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range names {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(name, flag); err != nil {
			return err
		}
	}
	return nil
}
