package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
)

type rootOptions struct {
	cataloguePath string
	timezone      string
	verbose       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "parkctl",
		Short:   "Price and rank parking spots from a catalogue file.",
		Version: Version,
		Long: `parkctl runs the parkwise cost engine against a local JSON catalogue.

The catalogue is a JSON array of spots in the same shape the worker imports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cataloguePath, "catalogue", "c", "catalogue.json", "path to the JSON spot catalogue")
	cmd.PersistentFlags().StringVar(&opts.timezone, "timezone", parking.DefaultTimezone, "zone tariffs are defined in")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log catalogue loading to stderr")

	cmd.AddCommand(newCostCmd(opts), newRankCmd(opts), newTokenCmd())
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// rankingService loads the catalogue file into memory and wraps it in a
// ranking service without a geocoder. Records that fail to decode or
// validate are logged and left out.
func (o *rootOptions) rankingService(ctx context.Context, cmd *cobra.Command) (*ranking.Service, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", o.timezone, err)
	}

	f, err := os.Open(o.cataloguePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	spots, rejected, err := spot.ReadCatalogue(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.cataloguePath, err)
	}

	log := o.logger(cmd)
	for _, re := range rejected {
		log.Warn().Int("index", re.Index).Int64("spot_id", re.SpotID).Err(re.Err).Msg("skipping malformed spot")
	}

	catalogue := spot.NewService(spot.NewInMemoryRepository(), log)
	loaded := 0
	for _, sp := range spots {
		if _, err := catalogue.Upsert(ctx, sp); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Int64("spot_id", sp.ID).Err(describe(err)).Msg("skipping invalid spot")
			continue
		}
		loaded++
	}
	log.Debug().Int("spots", loaded).Str("path", o.cataloguePath).Msg("catalogue loaded")

	return ranking.NewService(ranking.Config{
		Calculator: parking.NewCalculator(parking.Config{Location: loc}),
		Catalogue:  catalogue,
		Logger:     log,
	}), nil
}

// sessionFlags are shared by cost and rank.
type sessionFlags struct {
	start      string
	duration   int
	vehicle    string
	promotions []string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "session start, RFC 3339 (default now)")
	cmd.Flags().IntVarP(&f.duration, "duration", "d", ranking.DefaultDurationMinutes, "session length in minutes")
	cmd.Flags().StringVar(&f.vehicle, "vehicle", string(parking.VehicleStandard), "vehicle class: standard or ev")
	cmd.Flags().StringSliceVarP(&f.promotions, "promotion", "p", nil, "eligible promotion key (repeatable)")
}

func (f *sessionFlags) startTime() (time.Time, error) {
	if f.start == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, f.start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	return t, nil
}

func (f *sessionFlags) validate() error {
	if f.duration <= 0 {
		return errors.New("--duration must be positive")
	}
	switch parking.Vehicle(f.vehicle) {
	case parking.VehicleStandard, parking.VehicleEV:
		return nil
	default:
		return fmt.Errorf("--vehicle must be %q or %q", parking.VehicleStandard, parking.VehicleEV)
	}
}

// describe flattens catalogue validation errors into one line.
func describe(err error) error {
	var ve *spot.ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) == 0 {
		return err
	}
	return fmt.Errorf("%s: %s", ve.Errors[0].Field, ve.Errors[0].Message)
}
