package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/contactkeval/option-premium/internal/config"
	"github.com/contactkeval/option-premium/internal/data"
	"github.com/contactkeval/option-premium/internal/estimator"
	"github.com/contactkeval/option-premium/internal/logger"
	"github.com/contactkeval/option-premium/internal/report"
	"github.com/contactkeval/option-premium/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		report.WriteError(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg config.Config
	est *estimator.Estimator
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbosity  int
	)

	root := &cobra.Command{
		Use:           "option-premium",
		Short:         "Estimate European option premiums with Black-Scholes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config")
	root.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", -1, "0=errors,1=info,2=debug,3=trace (overrides config)")

	setup := func(cmd *cobra.Command) (*app, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("verbosity") {
			cfg.Verbosity = verbosity
		}
		logger.SetVerbosity(cfg.Verbosity)

		prov, err := data.New(cfg.ProviderOptions())
		if err != nil {
			return nil, err
		}
		logger.Debugf("%s data provider enabled", prov.Name())

		return &app{cfg: cfg, est: estimator.New(prov, estimator.SystemClock{}, cfg.RiskFreeRate)}, nil
	}

	root.AddCommand(newEstimateCmd(setup), newServeCmd(setup))
	return root
}

func newEstimateCmd(setup func(*cobra.Command) (*app, error)) *cobra.Command {
	var (
		form   estimator.Form
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the premium of one option contract",
		Example: "  option-premium estimate --ticker AAPL --spot 223 --strike 222.5 --side call --year 2025 --month 12 --day 19\n" +
			"  option-premium estimate --spot 223 --strike 222.5 --side put --year 2025 --month 12 --day 19 --iv 25",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}

			res, err := run(cmd.Context(), a.est, form, a.cfg.ExpiryHour, loc)
			if err != nil {
				return err
			}
			if asJSON {
				return report.WriteJSON(cmd.OutOrStdout(), res)
			}
			return report.WriteText(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.Ticker, "ticker", "AAPL", "underlying ticker")
	f.Float64Var(&form.Spot, "spot", 223.0, "underlying spot price")
	f.Float64Var(&form.Strike, "strike", 222.5, "strike price")
	f.StringVar(&form.Side, "side", "call", "call or put")
	f.IntVar(&form.Year, "year", 0, "expiration year")
	f.IntVar(&form.Month, "month", 0, "expiration month (1-12)")
	f.IntVar(&form.Day, "day", 0, "expiration day")
	f.StringVar(&form.IV, "iv", "", "volatility in percent; blank looks it up from market data")
	f.BoolVar(&asJSON, "json", false, "print JSON instead of text")
	for _, name := range []string{"year", "month", "day"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func run(ctx context.Context, est *estimator.Estimator, form estimator.Form, hour int, loc *time.Location) (*estimator.Result, error) {
	req, err := form.Request(hour, loc)
	if err != nil {
		return nil, err
	}
	return est.Estimate(ctx, req)
}

func newServeCmd(setup func(*cobra.Command) (*app, error)) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve estimates over HTTP (GET /estimate, GET /health)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = a.cfg.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(a.est, a.cfg.ExpiryHour, loc).ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
