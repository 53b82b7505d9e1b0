package invest_test

import (
	"context"
	"testing"
	"time"

	"monety/internal/invest"
)

func TestTeamLevels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := h.register(t, "root@example.com", "")
	b1 := h.register(t, "b1@example.com", root.InviteCode)
	h.register(t, "b2@example.com", root.InviteCode)
	c1 := h.register(t, "c1@example.com", b1.InviteCode)
	d1 := h.register(t, "d1@example.com", c1.InviteCode)
	h.register(t, "e1@example.com", d1.InviteCode)

	h.fund(t, d1.ID, dec("100"))
	if _, err := h.svc.Purchase(ctx, invest.PurchaseInput{UserID: d1.ID, ProductID: "minerador-ouro"}); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	team, err := h.svc.Team(ctx, root.ID)
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	if team.Level1.Count != 2 || team.Level2.Count != 1 || team.Level3.Count != 1 {
		t.Fatalf("unexpected counts %d/%d/%d", team.Level1.Count, team.Level2.Count, team.Level3.Count)
	}
	if team.Level3.Members[0].ID != d1.ID {
		t.Fatalf("level 3 member got %s want %s", team.Level3.Members[0].ID, d1.ID)
	}
	assertMoney(t, "level 3 earned", team.Level3.TotalEarned, "1")
	assertMoney(t, "level 1 earned", team.Level1.TotalEarned, "0")

	direct, err := h.svc.DirectInvitees(ctx, root.ID)
	if err != nil {
		t.Fatalf("direct: %v", err)
	}
	if len(direct) != 2 {
		t.Fatalf("expected 2 direct invitees, got %d", len(direct))
	}
}

func TestTodayStats(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	root := h.register(t, "stats@example.com", "")

	if _, err := h.svc.Checkin(ctx, root.ID); err != nil {
		t.Fatalf("checkin yesterday: %v", err)
	}
	h.clock.Advance(24 * time.Hour)

	child := h.register(t, "child@example.com", root.InviteCode)
	h.fund(t, child.ID, dec("100"))
	if _, err := h.svc.Purchase(ctx, invest.PurchaseInput{UserID: child.ID, ProductID: "minerador-ouro"}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := h.svc.Checkin(ctx, root.ID); err != nil {
		t.Fatalf("checkin today: %v", err)
	}
	h.fund(t, root.ID, dec("500"))

	stats, err := h.svc.TodayStats(ctx, root.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// commission 20 + day-2 check-in 2; deposits and yesterday's check-in excluded
	assertMoney(t, "today earnings", stats.TodayEarnings, "22")
	if stats.NewInvites != 1 {
		t.Fatalf("new invites got %d want 1", stats.NewInvites)
	}

	txs, err := h.svc.ListTransactions(ctx, root.ID)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 4 || txs[0].Type != invest.TxDeposit {
		t.Fatalf("expected newest first, got %+v", txs)
	}
}
