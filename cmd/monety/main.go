package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	cl "monety/internal/cli"
	"monety/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "monety",
		Short:        "Monety investment client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "API base URL")

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newMeCmd(&apiBase),
		newProductsCmd(&apiBase),
		newInvestCmd(&apiBase),
		newInvestmentsCmd(&apiBase),
		newCheckinCmd(&apiBase),
		newSpinCmd(&apiBase),
		newDepositCmd(&apiBase),
		newWithdrawCmd(&apiBase),
		newTeamCmd(&apiBase),
		newTxCmd(&apiBase),
		newStatsCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

func saveAuth(auth cl.AuthResponse) error {
	return cl.SaveSession(cl.Session{
		AccessToken: auth.AccessToken,
		Email:       auth.User.Email,
		UserID:      auth.User.ID,
		InviteCode:  auth.User.InviteCode,
		ExpiresAt:   time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second),
	})
}

func newSignupCmd(apiBase *string) *cobra.Command {
	var invite string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a Monety account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			if invite == "" {
				invite, err = promptOptional("Invite code (optional)")
				if err != nil {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			auth, err := newClient(apiBase).Register(ctx, email, password, strings.ToUpper(strings.TrimSpace(invite)))
			if err != nil {
				return err
			}
			if err := saveAuth(auth); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			printInfo("Your invite code: " + accent.Sprint(auth.User.InviteCode))
			return nil
		},
	}
	cmd.Flags().StringVar(&invite, "invite", "", "invite code of the member who referred you")
	return cmd
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Monety",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			auth, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := saveAuth(auth); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newMeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show your balance and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			profile, err := client.Me(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			checkin, err := client.CheckinStatus(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			roulette, err := client.RouletteStatus(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderProfile(profile, checkin, roulette)
			return nil
		},
	}
}

func newProductsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List investment products",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			products, err := newClient(apiBase).Products(ctx)
			if err != nil {
				return err
			}
			renderProducts(products)
			return nil
		},
	}
}

func newInvestCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "invest [product-id]",
		Short: "Buy an investment product with your balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			productID, err := argOrPrompt(args, 0, "Product id")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Invest(ctx, sess.AccessToken, productID, idem)
			if err != nil {
				return queueOnNetworkError(err, cl.Pending{
					Method:         "POST",
					Path:           "/v1/investments",
					Body:           map[string]any{"product_id": productID},
					IdempotencyKey: idem,
				})
			}
			renderPurchase(out)
			return nil
		},
	}
}

func newInvestmentsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "investments",
		Short: "List your active investments",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			list, err := newClient(apiBase).Investments(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderInvestments(list)
			return nil
		},
	}
}

func newCheckinCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Claim today's check-in reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Checkin(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderCheckin(out)
			return nil
		},
	}
}

func newSpinCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "spin",
		Short: "Spin today's roulette",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := runSpin(ctx, newClient(apiBase), sess.AccessToken)
			if err != nil {
				return err
			}
			renderSpin(out)
			return nil
		},
	}
}

func newDepositCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit [amount]",
		Short: "Simulate a PIX deposit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			amount, err := amountFromArgOrPrompt(args, 0, "Amount (min 30)")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Deposit(ctx, sess.AccessToken, amount, idem)
			if err != nil {
				return queueOnNetworkError(err, cl.Pending{
					Method:         "POST",
					Path:           "/v1/deposits/simulate",
					Body:           map[string]any{"amount": amount.String()},
					IdempotencyKey: idem,
				})
			}
			renderDeposit(out)
			return nil
		},
	}
}

func newWithdrawCmd(apiBase *string) *cobra.Command {
	var keyType string
	cmd := &cobra.Command{
		Use:   "withdraw [amount]",
		Short: "Request a PIX withdrawal (09:00-17:00 UTC-3, 10% fee)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			amount, err := amountFromArgOrPrompt(args, 0, "Amount (min 35)")
			if err != nil {
				return err
			}
			if keyType == "" {
				keyType, err = promptChoice("PIX key type", []string{"cpf", "cnpj", "email", "phone", "random"}, "email")
				if err != nil {
					return err
				}
			}
			key, err := promptRequired("PIX key")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Withdraw(ctx, sess.AccessToken, amount, key, keyType, idem)
			if err != nil {
				return queueOnNetworkError(err, cl.Pending{
					Method:         "POST",
					Path:           "/v1/withdrawals",
					Body:           map[string]any{"amount": amount.String(), "pix_key": key, "pix_key_type": keyType},
					IdempotencyKey: idem,
				})
			}
			renderWithdrawal(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyType, "key-type", "", "cpf, cnpj, email, phone or random")
	return cmd
}

func newTeamCmd(apiBase *string) *cobra.Command {
	var members bool
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Show your referral team by level",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			team, err := newClient(apiBase).Team(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderTeam(team, sess.InviteCode, members)
			return nil
		},
	}
	cmd.Flags().BoolVar(&members, "members", false, "list members of each level")
	return cmd
}

func newTxCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tx",
		Short: "Show your latest transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			txs, err := newClient(apiBase).Transactions(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderTransactions(txs)
			return nil
		},
	}
}

func newStatsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show today's earnings and new invites",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			stats, err := newClient(apiBase).TodayStats(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			renderStats(stats)
			return nil
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Resend requests that failed to reach the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			queue, err := cl.LoadOutbox()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Outbox is empty.")
				return nil
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			res := cl.Replay(ctx, newClient(apiBase), sess.AccessToken, queue)
			for _, err := range res.Rejected {
				printError("Rejected: " + err.Error())
			}
			if err := cl.SaveOutbox(res.Remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: sent=%d already_applied=%d rejected=%d remaining=%d",
				res.Sent, res.Duplicate, len(res.Rejected), len(res.Remaining)))
			return nil
		},
	}
}

// queueOnNetworkError saves requests that never reached the server so that
// `monety sync` can resend them under the same idempotency key.
func queueOnNetworkError(err error, p cl.Pending) error {
	if err == nil {
		return nil
	}
	var apiErr *cl.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if qerr := cl.Enqueue(p); qerr != nil {
		return fmt.Errorf("request failed and could not be queued: %v (%w)", qerr, err)
	}
	printWarn("Server unreachable. Request queued; run `monety sync` later.")
	return nil
}
