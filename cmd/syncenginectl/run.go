package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run <jobID>",
	Short: "run a job to completion, resuming batches until hasMore is false",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runJob(args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runJob(jobID string) {
	client := &http.Client{Timeout: 5 * time.Minute}
	runID := ""
	batch := 1

	for {
		body, _ := json.Marshal(map[string]any{"runId": runID, "batchNumber": batch})
		req, _ := http.NewRequest(http.MethodPost, apiEndpoint(fmt.Sprintf("/api/sync/%s", jobID)), bytes.NewReader(body))
		setAuth(req)

		resp, err := client.Do(req)
		if err != nil {
			fmt.Printf("request failed: %v\n", err)
			return
		}

		var result struct {
			Success       bool   `json:"success"`
			Error         string `json:"error"`
			RunID         string `json:"runId"`
			HasMore       bool   `json:"hasMore"`
			NextBatch     int    `json:"nextBatch"`
			RowsProcessed int    `json:"rowsProcessed"`
			RowsDeleted   int    `json:"rowsDeleted"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			fmt.Printf("decode response: %v\n", err)
			return
		}
		resp.Body.Close()

		if !result.Success {
			fmt.Printf("batch %d failed: %s\n", batch, result.Error)
			return
		}

		runID = result.RunID
		fmt.Printf("batch %d: %d upserted, %d deleted\n", batch, result.RowsProcessed, result.RowsDeleted)

		if !result.HasMore {
			fmt.Println("run complete")
			return
		}
		batch = result.NextBatch
	}
}

func apiEndpoint(path string) string {
	return viper.GetString("url") + path
}

func setAuth(req *http.Request) {
	if key := viper.GetString("key"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}
