package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
)

func newRankCmd(root *rootOptions) *cobra.Command {
	var (
		session       sessionFlags
		lat, lon      float64
		limit         int
		priceWeight   float64
		walkingWeight float64
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank catalogue spots by price and walking distance.",
		Example: `  parkctl rank -c oslo.json --duration 120 --lat 59.9127 --lon 10.7461
  parkctl rank -c oslo.json --start 2025-03-03T08:00:00+01:00 --vehicle ev --limit 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := session.validate(); err != nil {
				return err
			}
			start, err := session.startTime()
			if err != nil {
				return err
			}

			q := ranking.Query{
				Start:           start,
				DurationMinutes: session.duration,
				Vehicle:         parking.Vehicle(session.vehicle),
				Limit:           limit,
				PromotionKeys:   session.promotions,
			}

			latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
			if latSet != lonSet {
				return errors.New("--lat and --lon must be given together")
			}
			if latSet {
				dest := parking.Coordinate{Lat: lat, Lon: lon}
				if err := parking.ValidateCoordinate(dest); err != nil {
					return err
				}
				q.Destination = &dest
			}
			if cmd.Flags().Changed("price-weight") || cmd.Flags().Changed("walking-weight") {
				q.Weights = &parking.Weights{Price: priceWeight, Walking: walkingWeight}
			}

			svc, err := root.rankingService(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			result, err := svc.Rank(cmd.Context(), q)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rankOutput(result))
			}
			printRanking(cmd.OutOrStdout(), result)
			return nil
		},
	}

	session.register(cmd)
	cmd.Flags().Float64Var(&lat, "lat", 0, "destination latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "destination longitude")
	cmd.Flags().IntVarP(&limit, "limit", "n", ranking.DefaultLimit, fmt.Sprintf("number of results (1-%d)", ranking.MaxLimit))
	cmd.Flags().Float64Var(&priceWeight, "price-weight", parking.DefaultWeights.Price, "relative weight of price")
	cmd.Flags().Float64Var(&walkingWeight, "walking-weight", parking.DefaultWeights.Walking, "relative weight of walking time")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

type rankedJSON struct {
	Rank    int             `json:"rank"`
	ID      int64           `json:"id"`
	Slug    string          `json:"slug"`
	Name    string          `json:"name"`
	Score   float64         `json:"score"`
	Summary parking.Summary `json:"summary"`
}

func rankOutput(r *ranking.Result) []rankedJSON {
	out := make([]rankedJSON, 0, len(r.Items))
	for i, it := range r.Items {
		out = append(out, rankedJSON{
			Rank:    i + 1,
			ID:      it.Spot.ID,
			Slug:    spot.Slug(it.Spot),
			Name:    it.Spot.Name,
			Score:   it.Result.Score,
			Summary: it.Summary,
		})
	}
	return out
}

func printRanking(w io.Writer, r *ranking.Result) {
	fmt.Fprintf(w, "%d of %d spots, %s for %s\n",
		len(r.Items), r.Meta.Candidates, r.Meta.Start.Format("Mon 02 Jan 15:04"), parking.FormatMinutes(r.Meta.DurationMinutes))
	for i, it := range r.Items {
		walk := "-"
		if it.Summary.WalkingMinutes != nil {
			walk = fmt.Sprintf("%d min walk", *it.Summary.WalkingMinutes)
		}
		fmt.Fprintf(w, "%2d. %-32s %6d %s  %s\n", i+1, it.Spot.Name, it.Summary.Price, r.Currency, walk)
	}
	for _, warning := range r.Meta.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}
