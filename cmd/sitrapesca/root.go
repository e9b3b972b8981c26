package main

import (
	"context"
	"fmt"
	"time"

	"github.com/koizuka/sitrapesca"
	"github.com/spf13/cobra"
)

type runFunc func(ctx context.Context, cfg sitrapesca.Config, accounts []sitrapesca.Account) error

func newRootCommand(run runFunc) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:   "sitrapesca",
		Short: "Downloads the SITRAPESCA voyages and hauls report of every configured company.",
		Long: `sitrapesca logs into the PRODUCE portal with each configured account,
opens the SITRAPESCA application and downloads the "Faenas y Calas" report
for the requested date range into the output directory.

Accounts are read from the config file. A secret left out of the file is
taken from SITRAPESCA_SECRET_<NAME>.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				v.SetConfigFile(path)
			}
			if err := readConfigFile(v); err != nil {
				return err
			}
			cfg, accounts, err := loadSettings(v, time.Now())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, accounts)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "config file (default ./sitrapesca.yaml or ~/.config/sitrapesca/sitrapesca.yaml)")
	flags.String("start", "", fmt.Sprintf("start of the range, %q (default %q)", sitrapesca.DateLayout, sitrapesca.DefaultStart))
	flags.String("end", "", fmt.Sprintf("end of the range, %q (default now)", sitrapesca.DateLayout))
	flags.String("output", sitrapesca.DefaultOutputDir, "directory receiving the downloads")
	flags.Bool("headless", true, "run Chrome without a window")
	flags.String("click", "script", "click style: script or direct")
	flags.String("typing", "perchar", "typing style for the date fields: perchar or bulk")
	flags.Duration("keystroke-delay", sitrapesca.DefaultKeystrokeDelay, "pause between keys with --typing=perchar")
	flags.Duration("dwell", sitrapesca.DefaultDwell, "time left to the browser to save the report")
	flags.String("portal-url", sitrapesca.DefaultPortalURL, "portal landing page")
	flags.String("locale", sitrapesca.DefaultLocale, "browser locale")
	flags.BoolP("verbose", "v", false, "log DevTools protocol traffic")

	for _, name := range []string{"start", "end", "output", "headless", "click", "typing", "keystroke-delay", "dwell", "portal-url", "locale", "verbose"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	return cmd
}

func runAccounts(ctx context.Context, cfg sitrapesca.Config, accounts []sitrapesca.Account) error {
	log := sitrapesca.ConsoleLogger{Timestamps: true}
	runner, err := sitrapesca.NewRunner(cfg, log)
	if err != nil {
		return err
	}
	return runner.Run(ctx, accounts)
}
