package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	baseURL   string
	timeout   time.Duration
	authToken string
)

// swapped out in tests
var bcryptGenerate = bcrypt.GenerateFromPassword

func main() {
	rootCmd := &cobra.Command{
		Use:   "chainledger-cli",
		Short: "ChainLedger CLI tool",
		Long:  `A command line interface for interacting with the ChainLedger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the ChainLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "JWT bearer token")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Chain verification",
	}
	verifyCmd.AddCommand(verifyChainCmd(), verifyEntryCmd())
	rootCmd.AddCommand(verifyCmd)

	entryCmd := &cobra.Command{
		Use:   "entry",
		Short: "Journal entry operations",
	}
	entryCmd.AddCommand(entryShowCmd(), entryAuditCmd())
	rootCmd.AddCommand(entryCmd)

	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func verifyChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Verify the full hash chain",
		Run: func(cmd *cobra.Command, args []string) {
			result, _ := getJSON("/api/v1/ledger/verify").(map[string]any)
			if result == nil {
				fmt.Println("Unexpected response shape")
				os.Exit(1)
			}

			valid, _ := result["valid"].(bool)
			checked, _ := result["entries_checked"].(float64)
			if valid {
				fmt.Printf("Chain verification PASSED (%d entries checked)\n", int64(checked))
				return
			}

			fmt.Printf("Chain verification FAILED (%d entries checked)\n", int64(checked))
			if discrepancies, ok := result["discrepancies"].([]any); ok {
				for _, d := range discrepancies {
					entry, _ := d.(map[string]any)
					fmt.Printf("  position %v entry %v: %v - %v\n",
						entry["position"], entry["entry_number"], entry["kind"], truncate(fmt.Sprint(entry["detail"]), 80))
				}
			}
			os.Exit(1)
		},
	}
}

func verifyEntryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entry <entry-number>",
		Short: "Verify a single entry's hashes",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(getJSON("/api/v1/entries/" + args[0] + "/verify"))
		},
	}
}

func entryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-number>",
		Short: "Show a journal entry",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(getJSON("/api/v1/entries/" + args[0]))
		},
	}
}

func entryAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <entry-number>",
		Short: "Show an entry's audit log",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(getJSON("/api/v1/entries/" + args[0] + "/audit"))
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Hash a password for user provisioning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Println(string(hashed))
			return nil
		},
	}
}

func getJSON(path string) any {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		fmt.Printf("Error building request: %v\n", err)
		os.Exit(1)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}
	return result
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to render response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
