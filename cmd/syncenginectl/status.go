package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/syncengine/pkg/syncmodel"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "list configured jobs and their last run status",
	Run: func(cmd *cobra.Command, args []string) {
		fetchStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func fetchStatus() {
	client := &http.Client{Timeout: 5 * time.Second}
	req, _ := http.NewRequest(http.MethodGet, apiEndpoint("/api/configs"), nil)
	setAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("error connecting to sync engine: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var jobs []syncmodel.Job
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		fmt.Printf("error parsing job list: %v\n", err)
		return
	}

	if len(jobs) == 0 {
		fmt.Println("no jobs configured")
		return
	}

	fmt.Printf("%-36s %-24s %-18s %-8s %s\n", "ID", "NAME", "TYPE", "ENABLED", "LAST STATUS")
	for _, job := range jobs {
		fmt.Printf("%-36s %-24s %-18s %-8t %s\n", job.ID, job.DisplayName, job.Type, job.Enabled, job.LastStatus)
		if job.LastError != "" {
			fmt.Printf("  last error: %s\n", job.LastError)
		}
	}
}
