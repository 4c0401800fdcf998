package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Fetch live campaign state from a running server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminRequest(cmd.OutOrStdout(), http.MethodGet, "/admin/v1/state", 5*time.Second)
	},
}

var snapshotNowCmd = &cobra.Command{
	Use:   "snapshot-now",
	Short: "Ask a running server to write a snapshot immediately",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return adminRequest(cmd.OutOrStdout(), http.MethodPost, "/admin/v1/snapshot", 10*time.Second)
	},
}

func init() {
	for _, c := range []*cobra.Command{stateCmd, snapshotNowCmd} {
		c.Flags().StringVar(&serverURL, "url", "http://127.0.0.1:8080", "server base url")
	}
}

func adminRequest(out io.Writer, method, path string, timeout time.Duration) error {
	u := strings.TrimRight(strings.TrimSpace(serverURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Fprintln(out, strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
