package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	persistlog "fieldops.ai/internal/persistence/log"
)

var (
	logEvents bool
	logKind   string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Replay the turn event log",
	Long:  `Reads every events-*.jsonl.zst file of the campaign in order and prints one line per turn, or one line per event with --events.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := persistlog.Files(campaignDir())
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no turn logs in %s", campaignDir())
		}
		out := cmd.OutOrStdout()
		for _, f := range files {
			msgs, err := persistlog.ReadTurns(f)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(f), err)
			}
			for _, m := range msgs {
				if !logEvents {
					deployed := 0
					for _, a := range m.Inventory {
						deployed += a.Deployed
					}
					fmt.Fprintf(out, "turn=%d events=%d outcomes=%d deployed=%d digest=%s\n",
						m.Turn, len(m.Events), len(m.Outcomes), deployed, m.Digest)
					continue
				}
				for _, ev := range m.Events {
					if logKind != "" && ev.Kind != logKind {
						continue
					}
					printJSON(out, ev)
				}
			}
		}
		return nil
	},
}

func init() {
	logCmd.Flags().BoolVar(&logEvents, "events", false, "print individual events")
	logCmd.Flags().StringVar(&logKind, "kind", "", "only events of this kind (with --events)")
}
