package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage API tokens",
	}

	cmd.AddCommand(
		newTokensListCmd(),
		newTokensCreateCmd(),
		newTokensRevokeCmd(),
	)
	return cmd
}

func newTokensListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List API tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/tokens", nil)
			if err != nil {
				return err
			}
			if flagJSON {
				printRaw(body)
				return nil
			}

			var resp TokenListResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			rows := make([][]string, 0, len(resp.Tokens))
			for _, t := range resp.Tokens {
				rows = append(rows, []string{
					t.ID,
					t.Name,
					t.Scope,
					strconv.FormatBool(t.IsActive),
					t.ExpiresAt,
					t.CreatedAt,
				})
			}
			printTable([]string{"ID", "NAME", "SCOPE", "ACTIVE", "EXPIRES AT", "CREATED AT"}, rows)
			printMessage(fmt.Sprintf("\nTotal: %d tokens", resp.Total))
			return nil
		},
	}
}

func newTokensCreateCmd() *cobra.Command {
	var name, scope string
	var expiresInHours int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post("/api/v1/tokens", CreateTokenRequest{
				Name:           name,
				Scope:          scope,
				ExpiresInHours: expiresInHours,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				printRaw(body)
				return nil
			}

			var resp CreateTokenResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage("Token created successfully!")
			printMessage(fmt.Sprintf("  ID:         %s", resp.ID))
			printMessage(fmt.Sprintf("  Name:       %s", resp.Name))
			printMessage(fmt.Sprintf("  Scope:      %s", resp.Scope))
			printMessage(fmt.Sprintf("  Expires At: %s", resp.ExpiresAt))
			printMessage("")
			printMessage(fmt.Sprintf("  Token: %s", resp.Token))
			printMessage("")
			printMessage("WARNING: This token will not be shown again. Save it now!")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Token name (required)")
	cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&scope, "scope", "read_only", "Token scope: read_only or read_write")
	cmd.Flags().IntVar(&expiresInHours, "expires-in-hours", 0, "Token expiry in hours (0 for default)")
	return cmd
}

func newTokensRevokeCmd() *cobra.Command {
	var id string
	var yes bool

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction(fmt.Sprintf("Revoke token %s?", id), yes) {
				printMessage("Aborted.")
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			if _, err := client.Delete(fmt.Sprintf("/api/v1/tokens/%s", id)); err != nil {
				return err
			}
			printMessage("Token revoked successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Token ID (required)")
	cmd.MarkFlagRequired("id")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation")
	return cmd
}
