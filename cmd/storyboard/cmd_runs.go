package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"storyboard/internal/store"

	"github.com/spf13/cobra"
)

var runsLimit int

// runsCmd inspects the run ledger.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := store.Open(ledgerPath())
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.ListRuns(runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tDURATION\tSCENES\tFAILED\tREVERSED\tPANELS FAILED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\t%d\t%d\n",
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
				r.ScenesTotal, r.ScenesFailed, r.PanelsReversed, r.PanelsFailed)
		}
		return w.Flush()
	},
}

// runsShowCmd dumps one run with its scene results.
var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one run's scene results as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := store.Open(ledgerPath())
		if err != nil {
			return err
		}
		defer ledger.Close()

		run, scenes, err := ledger.GetRun(args[0])
		if err != nil {
			return err
		}

		doc := struct {
			Run    *store.RunRecord    `json:"run"`
			Scenes []store.SceneRecord `json:"scenes"`
		}{run, scenes}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
	runsCmd.AddCommand(runsShowCmd)
}
