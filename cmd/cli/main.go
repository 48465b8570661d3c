package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/goreconcile/internal/infrastructure/config"
	"github.com/iho/goreconcile/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "goreconcile-cli",
		Short: "GoReconcile CLI tool",
		Long:  `A command line interface for interacting with the GoReconcile API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the GoReconcile API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(entriesCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(unreconcileCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Journal entry operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create [file]",
		Short: "Create a draft entry from a JSON file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var body io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					fail("Error reading file: %v", err)
				}
				defer f.Close()
				body = f
			}
			doRequest(http.MethodPost, "/api/v1/entries", body)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show an entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doRequest(http.MethodGet, "/api/v1/entries/"+args[0], nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "post <id>",
		Short: "Post a draft entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doRequest(http.MethodPost, "/api/v1/entries/"+args[0]+"/post", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <id>",
		Short: "Reset a posted entry to draft",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doRequest(http.MethodPost, "/api/v1/entries/"+args[0]+"/cancel", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reverse <id>",
		Short: "Create and post the reversal of an entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doRequest(http.MethodPost, "/api/v1/entries/"+args[0]+"/reverse", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a draft entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doRequest(http.MethodDelete, "/api/v1/entries/"+args[0], nil)
		},
	})

	return cmd
}

func reconcileCmd() *cobra.Command {
	var writeOffJournal, writeOffAccount, writeOffLabel string

	cmd := &cobra.Command{
		Use:   "reconcile <line-id>...",
		Short: "Reconcile a set of open lines",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			payload := map[string]any{"line_ids": args}
			if writeOffAccount != "" {
				payload["write_off"] = map[string]string{
					"journal_id": writeOffJournal,
					"account_id": writeOffAccount,
					"label":      writeOffLabel,
				}
			}
			doRequest(http.MethodPost, "/api/v1/reconciliations", jsonBody(payload))
		},
	}

	cmd.Flags().StringVar(&writeOffJournal, "write-off-journal", "", "Journal for the write-off entry")
	cmd.Flags().StringVar(&writeOffAccount, "write-off-account", "", "Account taking the unmatched remainder")
	cmd.Flags().StringVar(&writeOffLabel, "write-off-label", "", "Label of the write-off lines")

	return cmd
}

func unreconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unreconcile <line-id>...",
		Short: "Undo the reconciliations touching the given lines",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doRequest(http.MethodPost, "/api/v1/reconciliations/remove", jsonBody(map[string]any{"line_ids": args}))
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fail("Error loading config: %v", err)
			}
			if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				fail("Error running migrations: %v", err)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				fail("Error loading config: %v", err)
			}
			if err := postgres.RunMigrationsDown(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
				fail("Error rolling back migration: %v", err)
			}
		},
	})

	return cmd
}

func jsonBody(payload any) io.Reader {
	data, _ := json.Marshal(payload)
	return bytes.NewReader(data)
}

func doRequest(method, path string, body io.Reader) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		fail("Error building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fail("Error making request: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		fail("Request failed (Status: %d)\nResponse: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		fmt.Println("OK")
		return
	}

	printJSON(data)
}

func printJSON(data []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}

func fail(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
