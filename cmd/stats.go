package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/jobagent/config"
	"github.com/mohammad-safakhou/jobagent/internal/store"
)

func statsCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate application counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.Storage.SQLitePath)
			if err != nil {
				return err
			}
			defer st.Close()

			counts, err := st.Counts(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%-12s %d\n", k, counts[k])
			}
			return nil
		},
	}
}
