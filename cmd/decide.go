package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/jobagent/config"
	"github.com/mohammad-safakhou/jobagent/internal/boards"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
	"github.com/mohammad-safakhou/jobagent/internal/planner"
	"github.com/mohammad-safakhou/jobagent/internal/telemetry"
	"github.com/mohammad-safakhou/jobagent/provider"
)

func decideCMD() *cobra.Command {
	var title, company, location string
	decide := &cobra.Command{
		Use:   "decide [description...]",
		Short: "One-shot relevance check of a posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			prov, err := provider.NewProvider(cfg.LLM)
			if err != nil {
				return err
			}

			pl := planner.New(prov, cfg.Profile, cfg.Search, telemetry.NewLogger("PLANNER"))

			timeout := cfg.General.DefaultTimeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			postings := []jobs.Posting{{
				Title:       title,
				Company:     company,
				Location:    location,
				Description: strings.Join(args, " "),
			}}
			if title == "" && len(args) == 0 {
				// Nothing given: exercise the decision over the sample feed.
				postings = boards.SampleSearch(cfg.Search.Terms, cfg.Search.Location)
			}
			for _, p := range postings {
				d := pl.ShouldApply(ctx, p)
				verdict := "skip"
				if d.Apply {
					verdict = "apply"
				}
				name := p.Title
				if p.Company != "" {
					name += " @ " + p.Company
				}
				fmt.Printf("%-40s %s (score %.2f): %s\n", name, verdict, d.Score, d.Reason)
			}
			return nil
		},
	}
	decide.Flags().StringVar(&title, "title", "", "posting title")
	decide.Flags().StringVar(&company, "company", "", "posting company")
	decide.Flags().StringVar(&location, "location", "", "posting location")
	return decide
}
