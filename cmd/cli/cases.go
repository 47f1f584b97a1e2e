package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newCasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cases",
		Short: "Manage test cases",
	}

	cmd.AddCommand(newCasesListCmd())
	cmd.AddCommand(newCasesCreateCmd())
	cmd.AddCommand(newCasesGetCmd())
	cmd.AddCommand(newCasesUpdateCmd())
	cmd.AddCommand(newCasesDeleteCmd())
	return cmd
}

// loadSteps reads a JSON array of BDD steps from a file.
func loadSteps(path string) ([]StepJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read steps file: %w", err)
	}

	var steps []StepJSON
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("failed to parse steps file: %w", err)
	}
	return steps, nil
}

func newCasesListCmd() *cobra.Command {
	var projectID string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List test cases for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			body, err := client.Get(fmt.Sprintf("/api/v1/projects/%s/cases", projectID), query)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var resp PaginatedResponse[TestCaseResponse]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"CASE ID", "NAME", "STEPS", "PREREQ", "CREATED AT"}
			var rows [][]string
			for _, tc := range resp.Items {
				prereq := tc.PrereqCaseID
				if prereq == "" {
					prereq = "-"
				}
				rows = append(rows, []string{
					tc.CaseID,
					truncate(tc.Name, 40),
					strconv.Itoa(len(tc.Steps)),
					prereq,
					tc.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d test cases", len(resp.Items), resp.Total))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "Project ID (required)")
	cmd.MarkFlagRequired("project-id")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	return cmd
}

func newCasesCreateCmd() *cobra.Command {
	var projectID, name, description, stepsFile, prereq string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new test case",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := loadSteps(stepsFile)
			if err != nil {
				return err
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			req := CreateTestCaseRequest{
				Name:         name,
				Description:  description,
				Steps:        steps,
				PrereqCaseID: prereq,
			}

			body, err := client.Post(fmt.Sprintf("/api/v1/projects/%s/cases", projectID), req)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var tc TestCaseResponse
			if err := json.Unmarshal(body, &tc); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Test case created: %s (%s)", tc.CaseID, tc.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "Project ID (required)")
	cmd.MarkFlagRequired("project-id")
	cmd.Flags().StringVar(&name, "name", "", "Test case name (required)")
	cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&description, "description", "", "Test case description")
	cmd.Flags().StringVar(&stepsFile, "steps-file", "", "Path to a JSON file with the BDD steps (required)")
	cmd.MarkFlagRequired("steps-file")
	cmd.Flags().StringVar(&prereq, "prereq", "", "Prerequisite case ID (TCnnnn)")
	return cmd
}

func newCasesGetCmd() *cobra.Command {
	var caseID string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a test case by case ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get(fmt.Sprintf("/api/v1/cases/%s", caseID), nil)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var tc TestCaseResponse
			if err := json.Unmarshal(body, &tc); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"FIELD", "VALUE"}
			rows := [][]string{
				{"Case ID", tc.CaseID},
				{"Name", tc.Name},
				{"Description", tc.Description},
				{"Project ID", tc.ProjectID.String()},
				{"Prereq", tc.PrereqCaseID},
				{"Created At", tc.CreatedAt.Format("2006-01-02 15:04:05")},
			}
			printTable(headers, rows)

			printMessage("\nSteps:")
			for i, s := range tc.Steps {
				if s.Arg != "" {
					printMessage(fmt.Sprintf("  %d. %s [%s]", i+1, s.Text, s.Arg))
				} else {
					printMessage(fmt.Sprintf("  %d. %s", i+1, s.Text))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&caseID, "case-id", "", "Case ID, e.g. TC0001 (required)")
	cmd.MarkFlagRequired("case-id")
	return cmd
}

func newCasesUpdateCmd() *cobra.Command {
	var caseID, name, description, stepsFile, prereq string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a test case",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			req := UpdateTestCaseRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("prereq") {
				req.PrereqCaseID = &prereq
			}
			if cmd.Flags().Changed("steps-file") {
				steps, err := loadSteps(stepsFile)
				if err != nil {
					return err
				}
				req.Steps = &steps
			}

			body, err := client.Put(fmt.Sprintf("/api/v1/cases/%s", caseID), req)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var tc TestCaseResponse
			if err := json.Unmarshal(body, &tc); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Test case updated: %s (%s)", tc.CaseID, tc.Name))
			return nil
		},
	}

	cmd.Flags().StringVar(&caseID, "case-id", "", "Case ID, e.g. TC0001 (required)")
	cmd.MarkFlagRequired("case-id")
	cmd.Flags().StringVar(&name, "name", "", "New test case name")
	cmd.Flags().StringVar(&description, "description", "", "New test case description")
	cmd.Flags().StringVar(&stepsFile, "steps-file", "", "Path to a JSON file with the BDD steps")
	cmd.Flags().StringVar(&prereq, "prereq", "", "New prerequisite case ID (empty to clear)")
	return cmd
}

func newCasesDeleteCmd() *cobra.Command {
	var caseID string
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a test case",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction(fmt.Sprintf("Delete test case %s?", caseID), yes) {
				printMessage("Aborted.")
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			_, err = client.Delete(fmt.Sprintf("/api/v1/cases/%s", caseID))
			if err != nil {
				return err
			}

			printMessage("Test case deleted successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&caseID, "case-id", "", "Case ID, e.g. TC0001 (required)")
	cmd.MarkFlagRequired("case-id")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation")
	return cmd
}
