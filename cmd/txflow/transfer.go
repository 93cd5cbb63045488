package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txflow/internal/events"
	"github.com/rovshanmuradov/solana-txflow/internal/logger"
	"github.com/rovshanmuradov/solana-txflow/internal/transaction"
	"github.com/rovshanmuradov/solana-txflow/internal/ui"
	"github.com/rovshanmuradov/solana-txflow/internal/wallet"
)

const eventBufferSize = 64

type transferOutput struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Lamports  uint64 `json:"lamports"`
	Signature string `json:"signature,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Send SOL and wait for confirmation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Recipient address",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "Amount in SOL, e.g. 0.05",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "wallet",
				Usage: "Wallet name from the wallets file (default: default_wallet)",
			},
			&cli.StringFlag{
				Name:  "priority",
				Usage: "Priority fee level: none, low, medium, high, extreme (default: config priority)",
			},
			&cli.StringFlag{
				Name:  "label",
				Usage: "Label attached to logs and events",
				Value: "transfer",
			},
			&cli.BoolFlag{
				Name:  "confirm",
				Usage: "Ask before signing",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show live progress",
			},
		},
		Action: func(c *cli.Context) error {
			useTUI := c.Bool("tui")
			jsonOutput := c.Bool("json")
			if useTUI && c.Bool("confirm") {
				return errors.New("--confirm cannot be combined with --tui")
			}

			to, err := solana.PublicKeyFromBase58(c.String("to"))
			if err != nil {
				return fmt.Errorf("invalid recipient: %w", err)
			}
			lamports, err := parseSOL(c.String("amount"))
			if err != nil {
				return err
			}

			r, err := newRunner(c, useTUI || jsonOutput)
			if err != nil {
				return err
			}
			defer r.close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := r.validateLicense(ctx); err != nil {
				return err
			}

			w, err := r.loadWallet(c.String("wallet"))
			if err != nil {
				return err
			}
			var signer wallet.Signer = w
			if c.Bool("confirm") {
				signer = wallet.NewConfirmingSigner(w, nil)
			}

			level := r.cfg.Priority
			if c.IsSet("priority") {
				level = c.String("priority")
			}
			priority, err := transaction.PriorityFor(level)
			if err != nil {
				return err
			}

			req, err := transaction.NewRequest(signer, c.String("label"),
				system.NewTransferInstruction(lamports, w.PublicKey(), to).Build())
			if err != nil {
				return err
			}
			req.Priority = priority

			bus := events.NewBus(r.logger, eventBufferSize)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = bus.Shutdown(shutdownCtx)
			}()

			opLog, done := logger.TrackPerformance(r.logger, "transfer")
			defer done()

			sender := transaction.NewSender(r.client,
				transaction.WithName(w.String()),
				transaction.WithSendAttempts(r.cfg.SendMaxAttempts),
				transaction.WithBlockhashPolicy(r.cfg.BlockhashRetry.Policy()),
				transaction.WithConfirmPolicy(r.cfg.ConfirmRetry.Policy()),
				transaction.WithCommitment(r.cfg.CommitmentType()),
				transaction.WithSkipPreflight(r.cfg.SkipPreflight),
				transaction.WithLogger(opLog),
				transaction.WithMetrics(transaction.NewMetrics(r.registry)),
				transaction.WithPublisher(bus),
			)

			opLog.Info("Submitting transfer",
				zap.String("from", w.String()),
				zap.String("to", to.String()),
				zap.Uint64("lamports", lamports),
				zap.String("priority", level))

			var res transaction.Result
			err = r.run(ctx, func(ctx context.Context) error {
				if useTUI {
					title := fmt.Sprintf("Transfer %s SOL to %s", formatSOL(lamports), to)
					var err error
					res, err = runTransferTUI(ctx, r, bus, title, func(ctx context.Context) transaction.Result {
						return sender.SendTx(ctx, req)
					})
					return err
				}
				res = sender.SendTx(ctx, req)
				return nil
			})
			if err != nil {
				return err
			}

			out := transferOutput{
				From:     w.String(),
				To:       to.String(),
				Lamports: lamports,
			}
			if res.OK() {
				out.Signature = res.Signature.String()
				logger.WithTransaction(opLog, out.Signature).Info("Transfer confirmed")
			} else {
				out.Code = string(res.Err.Code)
				out.Message = res.Err.Message
				opLog.Warn("Transfer failed", zap.String("code", out.Code), zap.Error(res.Err.Unwrap()))
			}

			if jsonOutput {
				if err := writeJSON(c.App.Writer, out, nil); err != nil {
					return err
				}
			} else if !useTUI {
				if res.OK() {
					fmt.Fprintf(c.App.Writer, "Confirmed: %s\n", out.Signature)
				} else {
					fmt.Fprintf(c.App.ErrWriter, "%s: %s\n", out.Code, out.Message)
				}
			}
			if !res.OK() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// runTransferTUI runs send under the progress view. Sender events reach the
// view through the bus.
func runTransferTUI(
	ctx context.Context,
	r *runner,
	bus *events.Bus,
	title string,
	send func(ctx context.Context) transaction.Result,
) (transaction.Result, error) {
	updates := ui.NewUpdateSender(eventBufferSize, r.logger)
	defer updates.Close()

	subs := ui.BridgeEvents(bus, updates)
	defer func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}()

	sendCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewTransferModel(title, updates, r.ring, func() transaction.Result {
		return send(sendCtx)
	}, cancel)

	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return transaction.Result{}, fmt.Errorf("progress view: %w", err)
	}
	res, ok := final.(*ui.TransferModel).Result()
	if !ok {
		return transaction.Result{}, errors.New("transfer interrupted before completion")
	}
	return res, nil
}
