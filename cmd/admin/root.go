package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fieldops.ai/internal/persistence/snapshot"
	"fieldops.ai/internal/sim/campaign"
	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/tuning"
	"fieldops.ai/internal/sim/world"
)

var (
	dataDir    string
	configDir  string
	campaignID string
)

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Offline tooling for fieldops campaigns",
	Long: `admin inspects campaign data written by the server: snapshots, the turn
event log and the sqlite index. It never writes to a running campaign except
through the loopback admin endpoints.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "./data", "runtime data directory")
	rootCmd.PersistentFlags().StringVar(&configDir, "configs", "./configs", "config directory")
	rootCmd.PersistentFlags().StringVar(&campaignID, "campaign", "default", "campaign id")

	rootCmd.AddCommand(campaignsCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(snapshotNowCmd)
}

func campaignDir() string {
	return filepath.Join(dataDir, "campaigns", campaignID)
}

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List campaigns under the data directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := os.ReadDir(filepath.Join(dataDir, "campaigns"))
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				fmt.Fprintln(cmd.OutOrStdout(), e.Name())
			}
		}
		return nil
	},
}

// restore rebuilds a campaign from path, or from the latest snapshot of the
// selected campaign when path is empty.
func restore(path string) (*campaign.Runner, string, error) {
	if strings.TrimSpace(path) == "" {
		path = snapshot.Latest(campaignDir())
		if path == "" {
			return nil, "", fmt.Errorf("no snapshots in %s", campaignDir())
		}
	}
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, path, fmt.Errorf("read snapshot: %w", err)
	}
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return nil, path, fmt.Errorf("load catalogs: %w", err)
	}
	tune, err := tuning.Load(filepath.Join(configDir, "tuning.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, path, fmt.Errorf("load tuning: %w", err)
		}
		tune = tuning.Defaults()
	}
	// The snapshot carries the values that shaped the team table.
	tune.DeployDuration = snap.DeployDuration
	tune.MaxTeamsPerNode = snap.MaxTeamsPerNode
	wcfg, err := world.LoadConfig(filepath.Join(configDir, "world.yaml"))
	if err != nil {
		return nil, path, fmt.Errorf("load world: %w", err)
	}
	r, err := campaign.Restore(campaign.Options{
		CampaignID: snap.Header.CampaignID,
		Tuning:     tune,
		Catalogs:   cats,
		World:      wcfg,
	}, snap)
	if err != nil {
		return nil, path, err
	}
	return r, path, nil
}

func printJSON(w io.Writer, v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(w, string(b))
}
