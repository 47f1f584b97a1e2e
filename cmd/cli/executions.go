package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newExecutionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executions",
		Short: "Inspect execution history",
	}

	cmd.AddCommand(newExecutionsListCmd())
	cmd.AddCommand(newExecutionsGetCmd())
	cmd.AddCommand(newExecutionsSummaryCmd())
	cmd.AddCommand(newExecutionsArtifactCmd())
	return cmd
}

func executionRows(items []ExecutionResponse) [][]string {
	var rows [][]string
	for _, e := range items {
		rows = append(rows, []string{
			e.ExecutionID,
			e.CaseID,
			e.Status,
			fmt.Sprintf("%dms", e.DurationMS),
			truncate(e.Message, 50),
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

func newExecutionsListCmd() *cobra.Command {
	var caseID, projectID string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions for a test case or a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (caseID == "") == (projectID == "") {
				return fmt.Errorf("exactly one of --case-id or --project-id is required")
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			path := fmt.Sprintf("/api/v1/cases/%s/executions", caseID)
			if projectID != "" {
				path = fmt.Sprintf("/api/v1/projects/%s/executions", projectID)
			}

			body, err := client.Get(path, query)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var resp PaginatedResponse[ExecutionResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"EXECUTION ID", "CASE ID", "STATUS", "DURATION", "MESSAGE", "CREATED AT"}
			printTable(headers, executionRows(resp.Items))
			printMessage(fmt.Sprintf("\nShowing %d executions", len(resp.Items)))
			return nil
		},
	}

	cmd.Flags().StringVar(&caseID, "case-id", "", "Case ID, e.g. TC0001")
	cmd.Flags().StringVar(&projectID, "project-id", "", "Project ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	return cmd
}

func newExecutionsGetCmd() *cobra.Command {
	var executionID string
	var showOutput bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get an execution record by execution ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/executions/%s", executionID), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var e ExecutionResponse
			if err := json.Unmarshal(body, &e); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"FIELD", "VALUE"}
			rows := [][]string{
				{"Execution ID", e.ExecutionID},
				{"Case ID", e.CaseID},
				{"Project ID", e.ProjectID.String()},
				{"Script Type", e.ScriptType},
				{"Status", e.Status},
				{"Message", e.Message},
				{"Duration", fmt.Sprintf("%dms", e.DurationMS)},
				{"Executed By", e.ExecutedBy.String()},
				{"Created At", e.CreatedAt.Format("2006-01-02 15:04:05")},
			}
			printTable(headers, rows)

			if showOutput && e.Output != "" {
				printMessage("\nOutput:")
				printMessage(e.Output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&executionID, "id", "", "Execution ID, e.g. EX0001 (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().BoolVar(&showOutput, "output", false, "Print the captured script output")
	return cmd
}

func newExecutionsSummaryCmd() *cobra.Command {
	var projectID string
	var recent int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize a project's execution history",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			query := url.Values{}
			if recent > 0 {
				query.Set("recent", strconv.Itoa(recent))
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/projects/%s/executions/summary", projectID), query)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var s ExecutionSummaryResponse
			if err := json.Unmarshal(body, &s); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Total:        %d", s.Total))
			printMessage(fmt.Sprintf("Success:      %d", s.SuccessCount))
			printMessage(fmt.Sprintf("Failed:       %d", s.FailedCount))
			printMessage(fmt.Sprintf("Timeout:      %d", s.TimeoutCount))
			printMessage(fmt.Sprintf("Success rate: %.1f%%", s.SuccessRate*100))

			if len(s.Recent) > 0 {
				printMessage("\nRecent executions:")
				headers := []string{"EXECUTION ID", "CASE ID", "STATUS", "DURATION", "MESSAGE", "CREATED AT"}
				printTable(headers, executionRows(s.Recent))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "Project ID (required)")
	cmd.MarkFlagRequired("project-id")
	cmd.Flags().IntVar(&recent, "recent", 0, "Number of recent executions to include")
	return cmd
}

func newExecutionsArtifactCmd() *cobra.Command {
	var executionID string

	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Resolve the output artifact URL for an execution",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/executions/%s/artifact", executionID), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var resp struct {
				ExecutionID string `json:"execution_id"`
				URL         string `json:"url"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(resp.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&executionID, "id", "", "Execution ID, e.g. EX0001 (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}
