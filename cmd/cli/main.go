package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iho/cardledger/internal/adapter/http/middleware"
	"github.com/iho/cardledger/internal/infrastructure/auth"
	"github.com/iho/cardledger/internal/infrastructure/logger"
	"github.com/iho/cardledger/internal/infrastructure/postgres"
)

// apiClient talks to the cardledger HTTP API.
type apiClient struct {
	baseURL string
	token   string
	owner   string
	http    *http.Client
}

var (
	baseURL string
	token   string
	owner   string
	timeout time.Duration
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cardledger-cli",
		Short:         "CardLedger CLI tool",
		Long:          `A command line interface for the CardLedger API: issue cards, move money and inspect summaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the CardLedger API")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("CARDLEDGER_TOKEN"), "Bearer token")
	root.PersistentFlags().StringVar(&owner, "owner", "", "Owner ID sent as "+middleware.OwnerHeader+" when auth is disabled")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	root.AddCommand(cardsCmd(), transactionsCmd(), summaryCmd(), tokenCmd(), migrateCmd())

	return root
}

func newClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		owner:   owner,
		http:    &http.Client{Timeout: timeout},
	}
}

// do sends a request and decodes the JSON response into out. Non-2xx
// responses are returned as errors carrying the server message.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.owner != "" {
		req.Header.Set(middleware.OwnerHeader, c.owner)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string  `json:"error"`
			Message string  `json:"message"`
			Balance *string `json:"balance"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg := fmt.Sprintf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
			if apiErr.Balance != nil {
				msg += ", balance " + *apiErr.Balance
			}
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(data, out)
}

func cardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Card operations",
	}

	var (
		holder  string
		balance string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a new card",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"holder_name": holder}
			if balance != "" {
				body["initial_balance"] = balance
			}

			var card map[string]any
			if err := newClient().do(cmd.Context(), http.MethodPost, "/api/v1/cards", body, &card); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), card)
		},
	}
	create.Flags().StringVar(&holder, "holder", "", "Card holder name")
	create.Flags().StringVar(&balance, "balance", "", "Initial balance, e.g. 100.00")
	_ = create.MarkFlagRequired("holder")

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List your cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/cards"
			if status != "" {
				path += "?status=" + status
			}

			var resp struct {
				Cards []struct {
					ID         string `json:"id"`
					Masked     string `json:"masked_card_number"`
					HolderName string `json:"holder_name"`
					Balance    string `json:"balance"`
					Status     string `json:"status"`
					ExpiryDate string `json:"expiry_date"`
				} `json:"cards"`
			}
			if err := newClient().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tHOLDER\tBALANCE\tSTATUS\tEXPIRES")
			for _, c := range resp.Cards {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					c.ID, c.Masked, truncate(c.HolderName, 24), c.Balance, c.Status, c.ExpiryDate)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&status, "status", "", "Filter by status (ACTIVE, BLOCKED, EXPIRED)")

	cmd.AddCommand(
		create,
		list,
		cardActionCmd("get", "Show a card", http.MethodGet, ""),
		cardActionCmd("block", "Block a card", http.MethodPost, "/block"),
		cardActionCmd("unblock", "Unblock a card", http.MethodPost, "/unblock"),
	)

	return cmd
}

func cardActionCmd(use, short, method, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <card-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var card map[string]any
			if err := newClient().do(cmd.Context(), method, "/api/v1/cards/"+args[0]+suffix, nil, &card); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), card)
		},
	}
}

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transaction operations",
	}

	var (
		cardID      string
		txType      string
		amount      string
		description string
	)
	process := &cobra.Command{
		Use:   "process",
		Short: "Credit or debit a card",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"card_id":     cardID,
				"type":        strings.ToUpper(txType),
				"amount":      amount,
				"description": description,
			}

			var txn map[string]any
			if err := newClient().do(cmd.Context(), http.MethodPost, "/api/v1/transactions", body, &txn); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), txn)
		},
	}
	process.Flags().StringVar(&cardID, "card", "", "Card ID")
	process.Flags().StringVar(&txType, "type", "", "CREDIT or DEBIT")
	process.Flags().StringVar(&amount, "amount", "", "Amount, e.g. 25.00")
	process.Flags().StringVar(&description, "description", "", "Description")
	for _, name := range []string{"card", "type", "amount", "description"} {
		_ = process.MarkFlagRequired(name)
	}

	var (
		listCard   string
		listStatus string
		limit      int
		offset     int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/transactions?limit=%d&offset=%d", limit, offset)
			if listCard != "" {
				path += "&card_id=" + listCard
			}
			if listStatus != "" {
				path += "&status=" + listStatus
			}

			var resp map[string]any
			if err := newClient().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	list.Flags().StringVar(&listCard, "card", "", "Only transactions of this card")
	list.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(process, list)

	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Account summary operations",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show your account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			var summary map[string]any
			if err := newClient().do(cmd.Context(), http.MethodGet, "/api/v1/summary", nil, &summary); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute your account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			var summary map[string]any
			if err := newClient().do(cmd.Context(), http.MethodPost, "/api/v1/summary/refresh", nil, &summary); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Check your balances against the transaction log",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report map[string]any
			if err := newClient().do(cmd.Context(), http.MethodGet, "/api/v1/reconciliation", nil, &report); err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}

			if consistent, _ := report["consistent"].(bool); !consistent {
				return fmt.Errorf("reconciliation found discrepancies")
			}
			return nil
		},
	}

	cmd.AddCommand(get, refresh, reconcile)

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		secret string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <owner-id>",
		Short: "Mint a bearer token for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or JWT_SECRET)")
			}

			signed, err := auth.NewJWTManager(secret, ttl).Generate(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret (defaults to JWT_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL    string
		migrationsPath string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "file://migrations", "Migrations source")

	run := func(apply func(*postgres.Migrator) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("a database URL is required (--database-url or DATABASE_URL)")
			}

			log := logger.New(logger.Config{Level: "info", Format: "console", Output: cmd.ErrOrStderr()})

			mg, err := postgres.NewMigrator(databaseURL, migrationsPath, log)
			if err != nil {
				return err
			}
			defer mg.Close()

			return apply(mg)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE:  run((*postgres.Migrator).Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE:  run((*postgres.Migrator).Down),
		},
	)

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
