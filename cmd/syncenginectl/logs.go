package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/syncengine/pkg/runlog"
	"github.com/user/syncengine/pkg/syncmodel"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs <jobID>",
	Short: "read the most recent run's log entries for a job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fetchLogs(args[0])
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsLimit, "limit", 200, "maximum number of log entries to read")
	rootCmd.AddCommand(logsCmd)
}

func fetchLogs(jobID string) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, _ := http.NewRequest(http.MethodGet, apiEndpoint(fmt.Sprintf("/api/logs/%s?limit=%d", jobID, logsLimit)), nil)
	setAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("error connecting to sync engine: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Exists bool                   `json:"exists"`
		Runs   []runlog.RunIndexEntry `json:"runs"`
		Logs   []syncmodel.LogEntry   `json:"logs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("error parsing log response: %v\n", err)
		return
	}

	if !result.Exists {
		fmt.Println("no runs recorded for this job")
		return
	}

	for _, entry := range result.Logs {
		color := "\033[0m"
		switch entry.Level {
		case "ERROR":
			color = "\033[31m"
		case "WARNING":
			color = "\033[33m"
		case "INFO":
			color = "\033[32m"
		}
		fmt.Printf("[%s] %s%s\033[0m %s\n", entry.Timestamp.Format("15:04:05"), color, entry.Level, entry.Message)
	}
}
