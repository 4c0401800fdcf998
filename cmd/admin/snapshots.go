package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fieldops.ai/internal/persistence/snapshot"
)

var (
	dumpSnapshot string
	dumpJSON     bool
	verifyPath   string
	verifyAll    bool
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List snapshot headers for the campaign",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := snapshotPaths()
		if err != nil {
			return err
		}
		for _, p := range paths {
			h, err := snapshot.ReadHeader(p)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", filepath.Base(p), err)
				continue
			}
			printJSON(cmd.OutOrStdout(), struct {
				Path string `json:"path"`
				snapshot.Header
			}{p, h})
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the team table from a snapshot",
	Long:  `Restores a snapshot (the campaign's latest unless --snapshot is given) and prints the inventory, holdings and team rows.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, path, err := restore(dumpSnapshot)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dumpJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(r.Dump())
		}
		fmt.Fprintf(out, "snapshot=%s\n", filepath.Base(path))
		return r.WriteDump(out)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Restore snapshots and check every team invariant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths := []string{verifyPath}
		if verifyAll {
			var err error
			if paths, err = snapshotPaths(); err != nil {
				return err
			}
		}
		failed := 0
		for _, p := range paths {
			r, path, err := restore(p)
			if err == nil {
				err = r.Verify()
			}
			if err != nil {
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", filepath.Base(path), err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %s turn=%d digest=%s\n", filepath.Base(path), r.CurrentTurn()-1, r.Dump().Digest)
		}
		if failed > 0 {
			return fmt.Errorf("%d snapshot(s) failed verification", failed)
		}
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpSnapshot, "snapshot", "", "snapshot path (default: latest)")
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "output JSON")
	verifyCmd.Flags().StringVar(&verifyPath, "snapshot", "", "snapshot path (default: latest)")
	verifyCmd.Flags().BoolVar(&verifyAll, "all", false, "verify every snapshot of the campaign")
}

func snapshotPaths() ([]string, error) {
	dir := filepath.Join(campaignDir(), "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	type entry struct {
		turn int
		path string
	}
	var found []entry
	for _, e := range ents {
		base, ok := strings.CutSuffix(e.Name(), ".snap.zst")
		if e.IsDir() || !ok {
			continue
		}
		turn, err := strconv.Atoi(base)
		if err != nil {
			continue
		}
		found = append(found, entry{turn, filepath.Join(dir, e.Name())})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].turn < found[j].turn })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.path
	}
	return out, nil
}
