package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"monety/internal/invest"

	"github.com/fatih/color"
	"github.com/mdp/qrterminal/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// promptPassword reads without echo on a terminal and falls back to a
// plain line read when stdin is piped.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptAmount(label string) (decimal.Decimal, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return decimal.Zero, err
		}
		v, err := parseAmount(text)
		if err != nil {
			printWarn(err.Error())
			continue
		}
		return v, nil
	}
}

func parseAmount(text string) (decimal.Decimal, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("enter a valid amount")
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be > 0")
	}
	return v, nil
}

func argOrPrompt(args []string, idx int, label string) (string, error) {
	if len(args) > idx {
		return strings.TrimSpace(args[idx]), nil
	}
	return promptRequired(label)
}

func amountFromArgOrPrompt(args []string, idx int, label string) (decimal.Decimal, error) {
	if len(args) > idx {
		return parseAmount(args[idx])
	}
	return promptAmount(label)
}

func money(v decimal.Decimal) string {
	return "R$ " + v.StringFixed(2)
}

func colorizeMoney(v decimal.Decimal) string {
	text := money(v)
	switch {
	case v.IsPositive():
		return success.Sprint("+" + text)
	case v.IsNegative():
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func renderProfile(p invest.Profile, checkin invest.CheckinStatus, roulette invest.RouletteStatus) {
	accent.Println(p.Email)
	fmt.Printf("  Balance:          %s\n", success.Sprint(money(p.Balance)))
	fmt.Printf("  Total earned:     %s\n", money(p.TotalEarned))
	fmt.Printf("  Total withdrawn:  %s\n", money(p.TotalWithdrawn))
	fmt.Printf("  Invite code:      %s\n", accent.Sprint(p.InviteCode))
	if checkin.CheckedInToday {
		fmt.Printf("  Check-in:         day %d done\n", checkin.CurrentDay)
	} else {
		fmt.Printf("  Check-in:         %s\n", warn.Sprintf("day %d available", invest.NextCheckinDay(checkin.CurrentDay)))
	}
	if roulette.CanSpin {
		fmt.Printf("  Roulette:         %s\n", warn.Sprint("spin available"))
	} else {
		fmt.Printf("  Roulette:         used today\n")
	}
}

func renderProducts(products []invest.Product) {
	if len(products) == 0 {
		printInfo("No products available.")
		return
	}
	fmt.Printf("%-22s %-22s %12s %12s %6s %14s\n", "ID", "NAME", "PRICE", "DAILY", "DAYS", "TOTAL")
	for _, p := range products {
		fmt.Printf("%-22s %-22s %12s %12s %6d %14s\n",
			truncate(p.ID, 22), truncate(p.Name, 22), money(p.Price), money(p.DailyReturn), p.DurationDays, success.Sprint(money(p.TotalReturn)))
	}
}

func renderPurchase(out invest.PurchaseResult) {
	printSuccess(fmt.Sprintf("Invested %s in %s.", money(out.Investment.Amount), out.Investment.ProductName))
	fmt.Printf("  Daily return: %s for %d days\n", money(out.Investment.DailyReturn), out.Investment.DurationDays)
	fmt.Printf("  Balance:      %s\n", money(out.Balance))
}

func renderInvestments(list []invest.Investment) {
	if len(list) == 0 {
		printInfo("No active investments.")
		return
	}
	fmt.Printf("%-22s %12s %12s %10s\n", "PRODUCT", "AMOUNT", "DAILY", "DAYS LEFT")
	for _, inv := range list {
		fmt.Printf("%-22s %12s %12s %10d\n", truncate(inv.ProductName, 22), money(inv.Amount), money(inv.DailyReturn), inv.DaysRemaining)
	}
}

func renderCheckin(out invest.CheckinResult) {
	printSuccess(fmt.Sprintf("Check-in day %d: %s", out.DayNumber, colorizeMoney(out.Reward)))
	fmt.Printf("  Balance: %s\n", money(out.Balance))
}

func renderSpin(out invest.SpinResult) {
	printSuccess("Roulette prize: " + colorizeMoney(out.Prize))
	fmt.Printf("  Balance: %s\n", money(out.Balance))
}

func renderDeposit(out invest.DepositResult) {
	printSuccess(fmt.Sprintf("Deposit of %s credited.", money(out.Amount)))
	fmt.Printf("  Balance: %s\n", money(out.Balance))
	if out.PixCode == "" {
		return
	}
	fmt.Println()
	if term.IsTerminal(int(os.Stdout.Fd())) {
		qrterminal.GenerateHalfBlock(out.PixCode, qrterminal.M, os.Stdout)
	}
	fmt.Println("PIX copia e cola:")
	neutral.Println(out.PixCode)
}

func renderWithdrawal(out invest.WithdrawalResult) {
	printSuccess(fmt.Sprintf("Withdrawal of %s requested (%s).", money(out.Amount), out.Status))
	fmt.Printf("  Fee:     %s\n", money(out.Fee))
	fmt.Printf("  Debited: %s\n", money(out.Total))
	fmt.Printf("  Balance: %s\n", money(out.Balance))
}

func renderTeam(team invest.Team, inviteCode string, members bool) {
	if inviteCode != "" {
		fmt.Printf("Invite code: %s\n", accent.Sprint(inviteCode))
	}
	levels := []invest.TeamLevel{team.Level1, team.Level2, team.Level3}
	for i, lvl := range levels {
		rate := invest.CommissionRates[i].Percent
		fmt.Printf("Level %d (%s%%): %d members, earned %s\n", i+1, rate.String(), lvl.Count, success.Sprint(money(lvl.TotalEarned)))
		if !members {
			continue
		}
		for _, m := range lvl.Members {
			fmt.Printf("    %s  joined %s\n", truncate(m.Email, 32), invest.CivilTime(m.CreatedAt).Format("2006-01-02"))
		}
	}
}

func renderTransactions(txs []invest.Transaction) {
	if len(txs) == 0 {
		printInfo("No transactions yet.")
		return
	}
	for _, t := range txs {
		amount := t.Amount
		if t.Type == invest.TxWithdrawal || t.Type == invest.TxInvestment {
			amount = amount.Neg()
		}
		fmt.Printf("%s  %-12s %-10s %14s  %s\n",
			invest.CivilTime(t.CreatedAt).Format("2006-01-02 15:04"),
			string(t.Type), string(t.Status), colorizeMoney(amount), truncate(t.Description, 40))
	}
}

func renderStats(s invest.TodayStats) {
	fmt.Printf("Today's earnings: %s\n", success.Sprint(money(s.TodayEarnings)))
	fmt.Printf("New invites:      %d\n", s.NewInvites)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
