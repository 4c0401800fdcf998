package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fieldops.ai/internal/persistence/indexdb"
	"fieldops.ai/internal/persistence/snapshot"
	"fieldops.ai/internal/protocol"
	"fieldops.ai/internal/sim/catalogs"
	"fieldops.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	WriteTurn(msg protocol.TurnMsg) error
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	RecordLogFile(path string)
	Stats() indexdb.Stats
}

func indexPath(campaignDir string) string {
	return filepath.Join(campaignDir, "index", "campaign.sqlite")
}

func openRuntimeIndex(campaignDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("FIELDOPS_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(indexPath(campaignDir))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported FIELDOPS_INDEX_BACKEND: %s", backend)
	}
}
