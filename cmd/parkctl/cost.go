package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/parkwise/parkwise/internal/parking"
	"github.com/parkwise/parkwise/internal/ranking"
	"github.com/parkwise/parkwise/internal/spot"
)

func newCostCmd(root *rootOptions) *cobra.Command {
	var (
		session sessionFlags
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "cost <spot-id|slug>",
		Short: "Print the itemised cost of one session at one spot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.validate(); err != nil {
				return err
			}
			start, err := session.startTime()
			if err != nil {
				return err
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				var ok bool
				if id, ok = spot.IDFromSlug(args[0]); !ok {
					return fmt.Errorf("%q is neither a spot id nor a slug", args[0])
				}
			}

			svc, err := root.rankingService(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			result, err := svc.Cost(cmd.Context(), id, ranking.CostQuery{
				Start:           start,
				DurationMinutes: session.duration,
				Vehicle:         parking.Vehicle(session.vehicle),
				PromotionKeys:   session.promotions,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result.Breakdown)
			}
			printCost(cmd.OutOrStdout(), result)
			return nil
		},
	}

	session.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the breakdown as JSON")
	return cmd
}

func printCost(w io.Writer, r *ranking.CostResult) {
	b := r.Breakdown
	fmt.Fprintf(w, "%s (%s)\n", r.Spot.Name, spot.Slug(r.Spot))
	fmt.Fprintf(w, "%s - %s, %s\n", r.Start.Format("Mon 02 Jan 15:04"), r.End.Format("Mon 02 Jan 15:04"), r.Vehicle)
	for _, it := range b.Items {
		fmt.Fprintf(w, "  %s-%s  rule %d  %4d min  %8.2f\n",
			it.Start.Format("15:04"), it.End.Format("15:04"), it.RuleIndex, it.Minutes, it.Subtotal)
	}
	for _, p := range b.AppliedPromotions {
		fmt.Fprintf(w, "  promotion %s: %d free min\n", p.Key, p.MinutesUsed)
	}
	if b.CapReduction > 0 {
		fmt.Fprintf(w, "  cap reduction %.2f\n", b.CapReduction)
	}
	fmt.Fprintf(w, "total %.2f %s\n", b.Total, b.Currency)
}
