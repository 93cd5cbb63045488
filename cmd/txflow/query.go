package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gagliardetto/solana-go"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/solana-txflow/internal/lpcache"
	"github.com/rovshanmuradov/solana-txflow/internal/wallet"
)

const queryTimeout = 30 * time.Second

type balanceOutput struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
	SOL      string `json:"sol"`
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the SOL balance of a wallet or address",
		ArgsUsage: "[address]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "wallet",
				Usage: "Wallet name from the wallets file, used when no address is given",
			},
		},
		Action: func(c *cli.Context) error {
			r, err := newRunner(c, c.Bool("json"))
			if err != nil {
				return err
			}
			defer r.close()

			var address solana.PublicKey
			if c.Args().Present() {
				address, err = solana.PublicKeyFromBase58(c.Args().First())
				if err != nil {
					return fmt.Errorf("invalid address: %w", err)
				}
			} else {
				w, err := r.loadWallet(c.String("wallet"))
				if err != nil {
					return err
				}
				address = w.PublicKey()
			}

			ctx, cancel := context.WithTimeout(c.Context, queryTimeout)
			defer cancel()

			lamports, err := r.client.GetBalance(ctx, address, r.cfg.CommitmentType())
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			out := balanceOutput{
				Address:  address.String(),
				Lamports: lamports,
				SOL:      formatSOL(lamports),
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, out, nil)
			}
			fmt.Fprintf(c.App.Writer, "%s: %s SOL (%s lamports)\n",
				out.Address, out.SOL, humanize.Comma(int64(lamports)))
			return nil
		},
	}
}

type positionOutput struct {
	Account   string    `json:"account"`
	Amount    string    `json:"amount"`
	Decimals  uint8     `json:"decimals"`
	UiAmount  string    `json:"ui_amount"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

func positionCommand() *cli.Command {
	return &cli.Command{
		Name:      "position",
		Usage:     "Show token balances of LP or token accounts",
		ArgsUsage: "[account...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Maximum parallel RPC reads",
				Value: lpcache.DefaultPrefetchConcurrency,
			},
			&cli.StringSliceFlag{
				Name:  "mint",
				Usage: "Token mint; reads the associated token account of --wallet",
			},
			&cli.StringFlag{
				Name:  "wallet",
				Usage: "Wallet name used with --mint",
			},
		},
		Action: func(c *cli.Context) error {
			mints := c.StringSlice("mint")
			if !c.Args().Present() && len(mints) == 0 {
				return fmt.Errorf("at least one account or --mint is required")
			}
			accounts := make([]solana.PublicKey, 0, c.Args().Len()+len(mints))
			for _, arg := range c.Args().Slice() {
				account, err := solana.PublicKeyFromBase58(arg)
				if err != nil {
					return fmt.Errorf("invalid account %q: %w", arg, err)
				}
				accounts = append(accounts, account)
			}

			r, err := newRunner(c, c.Bool("json"))
			if err != nil {
				return err
			}
			defer r.close()

			if len(mints) > 0 {
				w, err := r.loadWallet(c.String("wallet"))
				if err != nil {
					return err
				}
				owned, err := tokenAccounts(w, mints)
				if err != nil {
					return err
				}
				accounts = append(accounts, owned...)
			}

			cache, err := lpcache.NewCache[lpcache.Position](r.cfg.CacheSize, r.cfg.CacheTTL(), time.Now)
			if err != nil {
				return err
			}
			reader := lpcache.NewReader(cache, lpcache.NewMemoryStore(), r.client, r.cfg.CacheTTL(), time.Now, r.logger)

			ctx, cancel := context.WithTimeout(c.Context, queryTimeout)
			defer cancel()

			if err := reader.Prefetch(ctx, accounts, c.Int("concurrency")); err != nil {
				return err
			}

			out := make([]positionOutput, 0, len(accounts))
			for _, account := range accounts {
				p, src, err := reader.Get(ctx, account)
				if err != nil {
					return err
				}
				out = append(out, positionOutput{
					Account:   p.Account.String(),
					Amount:    p.Amount,
					Decimals:  p.Decimals,
					UiAmount:  p.UiAmount,
					Source:    string(src),
					UpdatedAt: p.UpdatedAt,
				})
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, out, nil)
			}
			renderPositions(c.App.Writer, out)
			return nil
		},
	}
}

// tokenAccounts resolves the associated token accounts of w for mints.
func tokenAccounts(w *wallet.Wallet, mints []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(mints))
	for _, m := range mints {
		mint, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			return nil, fmt.Errorf("invalid mint %q: %w", m, err)
		}
		ata, err := w.ATA(mint)
		if err != nil {
			return nil, fmt.Errorf("associated token account for %s: %w", mint, err)
		}
		out = append(out, ata)
	}
	return out, nil
}

func renderPositions(w io.Writer, positions []positionOutput) {
	table := newTable(w, []string{"Account", "Amount", "Decimals", "Source"})
	for _, p := range positions {
		table.Append([]string{p.Account, p.UiAmount, fmt.Sprintf("%d", p.Decimals), p.Source})
	}
	table.Render()
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the confirmation status of a transaction",
		ArgsUsage: "<signature>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to the JSON output (implies --json)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one signature")
			}
			sig, err := solana.SignatureFromBase58(c.Args().First())
			if err != nil {
				return fmt.Errorf("invalid signature: %w", err)
			}
			code, err := compileFilter(c.String("jq"))
			if err != nil {
				return err
			}
			jsonOutput := c.Bool("json") || code != nil

			r, err := newRunner(c, jsonOutput)
			if err != nil {
				return err
			}
			defer r.close()

			ctx, cancel := context.WithTimeout(c.Context, queryTimeout)
			defer cancel()

			status, err := r.client.Status(ctx, sig)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			if jsonOutput {
				return writeJSON(c.App.Writer, status, code)
			}
			fmt.Fprintf(c.App.Writer, "Signature:     %s\n", status.Signature)
			fmt.Fprintf(c.App.Writer, "Status:        %s\n", status.Status)
			if status.Slot > 0 {
				fmt.Fprintf(c.App.Writer, "Slot:          %d\n", status.Slot)
				fmt.Fprintf(c.App.Writer, "Confirmations: %d\n", status.Confirmations)
			}
			if status.Error != "" {
				fmt.Fprintf(c.App.Writer, "Error:         %s\n", status.Error)
			}
			return nil
		},
	}
}

type nodeOutput struct {
	URL          string `json:"url"`
	Healthy      bool   `json:"healthy"`
	Active       bool   `json:"active"`
	SuccessCount uint64 `json:"success_count"`
	ErrorCount   uint64 `json:"error_count"`
	LatencyMs    int64  `json:"latency_ms"`
}

func nodesCommand() *cli.Command {
	return &cli.Command{
		Name:  "nodes",
		Usage: "Probe every configured RPC node",
		Action: func(c *cli.Context) error {
			r, err := newRunner(c, c.Bool("json"))
			if err != nil {
				return err
			}
			defer r.close()

			ctx, cancel := context.WithTimeout(c.Context, queryTimeout)
			defer cancel()

			pool := r.client.Pool()
			healthy := make(map[string]bool)
			for _, url := range pool.CheckHealth(ctx) {
				healthy[url] = true
			}

			stats := pool.Stats()
			out := make([]nodeOutput, 0, len(stats))
			for _, s := range stats {
				out = append(out, nodeOutput{
					URL:          s.URL,
					Healthy:      healthy[s.URL],
					Active:       s.Active,
					SuccessCount: s.SuccessCount,
					ErrorCount:   s.ErrorCount,
					LatencyMs:    s.Latency.Milliseconds(),
				})
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, out, nil)
			}
			table := newTable(c.App.Writer, []string{"URL", "Health", "Latency"})
			for _, n := range out {
				health := "ok"
				if !n.Healthy {
					health = "down"
				}
				table.Append([]string{n.URL, health, fmt.Sprintf("%dms", n.LatencyMs)})
			}
			table.Render()
			if len(healthy) == 0 {
				return cli.Exit("no healthy RPC nodes", 1)
			}
			return nil
		},
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}
