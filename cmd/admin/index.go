package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fieldops.ai/internal/persistence/indexdb"
)

var (
	indexDB   string
	turnsFrom int
	turnsTo   int
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Query the sqlite read model",
}

var indexTurnsCmd = &cobra.Command{
	Use:   "turns",
	Short: "List indexed turns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(idx *indexdb.SQLiteIndex) error {
			rows, err := idx.Turns(cmd.Context(), turnsFrom, turnsTo)
			if err != nil {
				return err
			}
			for _, r := range rows {
				printJSON(cmd.OutOrStdout(), r)
			}
			return nil
		})
	},
}

var indexTeamCmd = &cobra.Command{
	Use:   "team <team-id>",
	Short: "Show the event history of one team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad team id %q", args[0])
		}
		return withIndex(func(idx *indexdb.SQLiteIndex) error {
			rows, err := idx.TeamHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, r := range rows {
				printJSON(cmd.OutOrStdout(), r)
			}
			return nil
		})
	},
}

var indexNodeCmd = &cobra.Command{
	Use:   "node <node-id>",
	Short: "Show every team event at one node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad node id %q", args[0])
		}
		return withIndex(func(idx *indexdb.SQLiteIndex) error {
			rows, err := idx.NodeHistory(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, r := range rows {
				printJSON(cmd.OutOrStdout(), r)
			}
			return nil
		})
	},
}

var indexSnapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshot metadata recorded by the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(idx *indexdb.SQLiteIndex) error {
			rows, err := idx.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rows {
				printJSON(cmd.OutOrStdout(), r)
			}
			d, err := idx.CatalogDigest(cmd.Context(), "arcs")
			if err == nil && d != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "arcs digest=%s\n", d)
			}
			return nil
		})
	},
}

var indexLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List closed turn log files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIndex(func(idx *indexdb.SQLiteIndex) error {
			rows, err := idx.LogFiles(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rows {
				printJSON(cmd.OutOrStdout(), r)
			}
			return nil
		})
	},
}

func init() {
	indexCmd.PersistentFlags().StringVar(&indexDB, "db", "", "sqlite db path (default: <campaign>/index/campaign.sqlite)")
	indexTurnsCmd.Flags().IntVar(&turnsFrom, "from", 1, "first turn")
	indexTurnsCmd.Flags().IntVar(&turnsTo, "to", 1<<30, "last turn")

	indexCmd.AddCommand(indexTurnsCmd)
	indexCmd.AddCommand(indexTeamCmd)
	indexCmd.AddCommand(indexNodeCmd)
	indexCmd.AddCommand(indexSnapshotsCmd)
	indexCmd.AddCommand(indexLogsCmd)
}

func withIndex(fn func(idx *indexdb.SQLiteIndex) error) error {
	path := strings.TrimSpace(indexDB)
	if path == "" {
		path = filepath.Join(campaignDir(), "index", "campaign.sqlite")
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()
	return fn(idx)
}
