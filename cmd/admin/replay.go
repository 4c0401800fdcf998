package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	persistlog "fieldops.ai/internal/persistence/log"
)

var (
	replaySnapshot string
	replayTo       int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-play logged turns from a snapshot and compare digests",
	Long: `Restores a snapshot, then steps the campaign forward once per TURN entry in
the event log that follows it and checks the resulting team digest against the
logged one. The configs must be the ones the campaign ran with.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, path, err := restore(replaySnapshot)
		if err != nil {
			return err
		}
		start := r.CurrentTurn()

		files, err := persistlog.Files(campaignDir())
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no turn logs in %s", campaignDir())
		}

		checked := 0
		for _, f := range files {
			msgs, err := persistlog.ReadTurns(f)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(f), err)
			}
			for _, m := range msgs {
				if replayTo > 0 && m.Turn > replayTo {
					break
				}
				// Earlier turns, and entries a resumed server logged twice.
				if m.Turn < r.CurrentTurn() {
					continue
				}
				if m.Turn > r.CurrentTurn() {
					return fmt.Errorf("turn log gap: expected turn %d, found %d", r.CurrentTurn(), m.Turn)
				}
				res := r.StepOnce()
				if res.Digest != m.Digest {
					return fmt.Errorf("digest mismatch at turn %d: replay=%s log=%s", m.Turn, res.Digest, m.Digest)
				}
				checked++
			}
		}
		if err := r.Verify(); err != nil {
			return fmt.Errorf("verify after replay: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "replay ok: checked=%d turns (from %s, turn=%d)\n", checked, filepath.Base(path), start-1)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replaySnapshot, "snapshot", "", "snapshot to start from (default: latest)")
	replayCmd.Flags().IntVar(&replayTo, "to", 0, "stop after this turn (0 replays the whole log)")
}
