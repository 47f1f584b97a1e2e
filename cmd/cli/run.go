package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// wsURL converts the configured base URL to its websocket equivalent.
func wsURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}

func newRunCmd() *cobra.Command {
	var caseID, scriptType string
	var selected []string
	var skipMethods bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a test case and stream its output",
		Long:  "Runs a test case through the execution pipeline, streaming status updates and script output as they happen. The generated plan is accepted as-is; reusable method candidates are confirmed automatically unless --select or --skip-methods is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := getConfigToken()
			if token == "" {
				return fmt.Errorf("API token is required. Set it via --token flag, FLUX_TOKEN env var, or ~/.fluxctl.yaml")
			}

			path := fmt.Sprintf("/api/v1/cases/%s/execute", caseID)
			target, err := wsURL(getConfigURL(), path)
			if err != nil {
				return err
			}
			if scriptType != "" {
				target += "?script_type=" + url.QueryEscape(scriptType)
			}

			header := http.Header{}
			header.Set("Authorization", "Bearer "+token)

			conn, _, err := websocket.DefaultDialer.Dial(target, header)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer conn.Close()

			for {
				var ev ExecutionEvent
				if err := conn.ReadJSON(&ev); err != nil {
					return fmt.Errorf("connection lost: %w", err)
				}

				switch ev.Status {
				case "PLAN_READY":
					printMessage("Plan ready, accepting as-is.")
					if err := conn.WriteJSON(ClientMessage{Action: "skip_edit"}); err != nil {
						return fmt.Errorf("failed to send response: %w", err)
					}

				case "METHODS_FOUND":
					printMessage(fmt.Sprintf("Found %d reusable method candidates:", len(ev.Methods)))
					for _, m := range ev.Methods {
						printMessage(fmt.Sprintf("  %s.%s (%.2f) %s", m.ClassName, m.MethodName, m.Score, m.Intent))
					}
					msg := ClientMessage{Action: "confirm_selection", Selected: selected}
					if skipMethods {
						msg = ClientMessage{Action: "skip_methods"}
					}
					if err := conn.WriteJSON(msg); err != nil {
						return fmt.Errorf("failed to send response: %w", err)
					}

				case "RUNNING":
					fmt.Println(ev.Log)

				case "COMPLETED":
					printMessage(fmt.Sprintf("\nExecution %s finished: %s", ev.ExecutionID, ev.FinalStatus))
					return nil

				case "FAILED":
					return fmt.Errorf("execution failed: %s", ev.Error)

				default:
					if flagDebug {
						printMessage(fmt.Sprintf("[%s] %s", ev.Status, ev.Message))
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&caseID, "case-id", "", "Case ID, e.g. TC0001 (required)")
	cmd.MarkFlagRequired("case-id")
	cmd.Flags().StringVar(&scriptType, "script-type", "", "Script type (default: server-side default)")
	cmd.Flags().StringSliceVar(&selected, "select", nil, "Reusable methods to keep, as Class.method (default: all)")
	cmd.Flags().BoolVar(&skipMethods, "skip-methods", false, "Generate without reusable methods")
	return cmd
}
