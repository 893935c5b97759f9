package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codedeck/mailer/internal/campaign"
	"github.com/codedeck/mailer/internal/config"
	"github.com/codedeck/mailer/internal/email"
	"github.com/codedeck/mailer/internal/logger"
	"github.com/codedeck/mailer/internal/progress"
	"github.com/codedeck/mailer/internal/source"
	"github.com/codedeck/mailer/internal/template"
)

var (
	flagConfig string
	flagDryRun bool
	flagLimit  int
	flagReset  bool
	flagTo     string
)

var rootCmd = &cobra.Command{
	Use:           "mailer",
	Short:         "Send a personalized email campaign through the Gmail API",
	Long:          "Sends a personalized, rate-limited email campaign: recipients come from MongoDB and/or a local JSON file, messages are expanded from a spintax template, and progress is saved after every send so the campaign can be paused and resumed.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to the config file")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be sent without actually sending")
	rootCmd.Flags().IntVar(&flagLimit, "limit", 0, "send only N emails this run")
	rootCmd.Flags().BoolVar(&flagReset, "reset", false, "clear progress and start fresh")
	rootCmd.Flags().StringVar(&flagTo, "to", "", "send a test email to a specific address, bypassing the sources")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	store, err := progress.Open(cfg.Files.Progress, log)
	if err != nil {
		return err
	}

	if flagReset {
		if err := store.Reset(); err != nil {
			return err
		}
		// Reset is a complete action; only --dry-run or --limit continues
		// the campaign on the fresh ledger
		if !flagDryRun && flagLimit == 0 {
			return nil
		}
	}

	tmpl, err := template.Load(cfg.Files.Template)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sender email.Sender
	if !flagDryRun {
		sender, err = newSender(ctx, cfg)
		if err != nil {
			return err
		}
		log.Info().Str("from", cfg.Sender.Address).Msg("gmail sender ready")
	}

	var sources []source.Source
	if cfg.MongoDB.Enabled {
		sources = append(sources, source.NewMongoSource(cfg.MongoDB))
	}
	sources = append(sources, source.NewFileSource(cfg.Files.Recipients))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	expander := template.NewRandomExpander(rng)

	driver := campaign.New(cfg.Sender.Name, cfg.Rate, tmpl, expander, store, sender, sources, rng, log)

	sum, err := driver.Run(ctx, campaign.Options{
		DryRun:      flagDryRun,
		Limit:       flagLimit,
		TestAddress: flagTo,
	})
	if err != nil {
		// An interrupt mid-send can surface as a wrapped provider error, so
		// treat any failure after the signal fired as a pause
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Paused! Progress has been saved.")
			fmt.Fprintln(cmd.OutOrStdout(), "Run the mailer again to resume from where you left off.")
			return nil
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Campaign summary")
	fmt.Fprintf(cmd.OutOrStdout(), "  Sent this run: %d\n", sum.SentThisRun)
	fmt.Fprintf(cmd.OutOrStdout(), "  Total sent:    %d\n", sum.TotalSent)
	fmt.Fprintf(cmd.OutOrStdout(), "  Total failed:  %d\n", sum.TotalFailed)
	fmt.Fprintf(cmd.OutOrStdout(), "  Remaining:     %d\n", sum.Remaining)
	return nil
}

// newSender builds the Gmail sender from whichever credential set is
// configured, preferring the service account path.
func newSender(ctx context.Context, cfg *config.Config) (email.Sender, error) {
	if !cfg.Gmail.Configured() {
		return nil, fmt.Errorf("gmail credentials are not configured: set gmail.credentials_json, or gmail.client_id, gmail.client_secret and gmail.refresh_token in config.yaml")
	}
	if cfg.Gmail.CredentialsJSON != "" {
		return email.NewGmailSender(ctx, email.GmailConfig{
			CredentialsJSON: cfg.Gmail.CredentialsJSON,
			SenderAddress:   cfg.Sender.Address,
			SenderName:      cfg.Sender.Name,
		})
	}
	return email.NewGmailSenderWithToken(ctx,
		cfg.Gmail.ClientID,
		cfg.Gmail.ClientSecret,
		cfg.Gmail.RefreshToken,
		cfg.Sender.Address,
		cfg.Sender.Name,
	)
}
