package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igcrawl/pkg/models"
	"igcrawl/pkg/ui"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent crawl runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), runsLimit)
		if err != nil {
			return err
		}

		if runsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(ui.Out, "No crawl runs recorded")
			return nil
		}
		for _, r := range runs {
			printRun(r)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored accounts per order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.CountAccountsByOrder(context.Background())
		if err != nil {
			return err
		}

		total := 0
		for o := models.OrderInfluencer; o <= models.MaxOrder; o++ {
			ui.PrintInfo(fmt.Sprintf("Order %d (%s)", o, o), fmt.Sprint(counts[o]))
			total += counts[o]
		}
		ui.PrintInfo("Total", fmt.Sprint(total))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(statsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print as JSON")
}

func printRun(r models.CrawlRun) {
	status := r.Status
	switch r.Status {
	case models.RunCompleted:
		status = ui.Green(status)
	case models.RunFailed:
		status = ui.Red(status)
	default:
		status = ui.Yellow(status)
	}

	seed := r.SeedID
	if r.SeedHandle != "" {
		seed = "@" + r.SeedHandle
		if r.SeedID != "" {
			seed += " (" + r.SeedID + ")"
		}
	}

	took := "-"
	if r.FinishedAt != nil {
		took = ui.FormatDuration(r.FinishedAt.Sub(r.StartedAt))
	}

	fmt.Fprintf(ui.Out, "%s  %s  %-9s %s\n", ui.Dim(r.StartedAt.Local().Format("2006-01-02 15:04")), shortID(r.ID), status, seed)
	fmt.Fprintf(ui.Out, "    %d pulled, %d private, %d failed, took %s\n", r.Pulled, r.Private, r.Failures, took)
	if r.Error != "" {
		fmt.Fprintf(ui.Out, "    %s\n", ui.Red(r.Error))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
