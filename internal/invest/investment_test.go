package invest_test

import (
	"context"
	"errors"
	"testing"

	"monety/internal/invest"
)

func TestPurchaseSnapshotsProduct(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "eva@example.com", "")
	h.fund(t, u.ID, dec("150"))

	res, err := h.svc.Purchase(context.Background(), invest.PurchaseInput{UserID: u.ID, ProductID: "minerador-ouro"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	inv := res.Investment
	assertMoney(t, "amount", inv.Amount, "100")
	assertMoney(t, "daily return", inv.DailyReturn, "20")
	assertMoney(t, "total return", inv.TotalReturn, "1200")
	if inv.DurationDays != 60 || inv.DaysRemaining != 60 {
		t.Fatalf("unexpected duration %d/%d", inv.DaysRemaining, inv.DurationDays)
	}
	if inv.Status != invest.InvestmentActive || inv.ProductName != "Minerador Ouro" {
		t.Fatalf("unexpected investment %+v", inv)
	}
	assertMoney(t, "balance", res.Balance, "50")

	txs := h.store.Transactions(u.ID)
	last := txs[len(txs)-1]
	if last.Type != invest.TxInvestment || last.Status != invest.StatusCompleted || last.Description != "Investimento em Minerador Ouro" {
		t.Fatalf("unexpected transaction %+v", last)
	}
	assertMoney(t, "txn amount", last.Amount, "100")

	list, err := h.svc.ListInvestments(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != inv.ID {
		t.Fatalf("unexpected investments %+v", list)
	}
	assertBalanceReconstructs(t, h, u.ID)
}

func TestPurchaseInsufficientFundsHasNoEffect(t *testing.T) {
	h := newHarness(t)
	inviter := h.register(t, "ref@example.com", "")
	u := h.register(t, "fay@example.com", inviter.InviteCode)
	h.fund(t, u.ID, dec("50"))

	_, err := h.svc.Purchase(context.Background(), invest.PurchaseInput{UserID: u.ID, ProductID: "minerador-ouro"})
	if !errors.Is(err, invest.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	assertMoney(t, "balance", h.user(t, u.ID).Balance, "50")
	if n := len(h.store.Transactions(u.ID)); n != 1 {
		t.Fatalf("expected only the funding transaction, got %d", n)
	}
	list, _ := h.svc.ListInvestments(context.Background(), u.ID)
	if len(list) != 0 {
		t.Fatalf("expected no investments, got %d", len(list))
	}
	if len(h.store.Commissions()) != 0 {
		t.Fatalf("expected no commissions")
	}
	assertMoney(t, "inviter balance", h.user(t, inviter.ID).Balance, "0")
}

func TestPurchaseUnknownProduct(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "gil@example.com", "")
	h.fund(t, u.ID, dec("100"))

	_, err := h.svc.Purchase(context.Background(), invest.PurchaseInput{UserID: u.ID, ProductID: "nope"})
	if !errors.Is(err, invest.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if invest.KindOf(err) != invest.KindNotFound {
		t.Fatalf("got kind %s", invest.KindOf(err))
	}
	_, err = h.svc.Purchase(context.Background(), invest.PurchaseInput{UserID: u.ID})
	if invest.KindOf(err) != invest.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPurchaseIdempotencyReplay(t *testing.T) {
	h := newHarness(t)
	u := h.register(t, "hugo@example.com", "")
	h.fund(t, u.ID, dec("100"))
	ctx := context.Background()
	in := invest.PurchaseInput{UserID: u.ID, ProductID: "minerador-bronze", IdempotencyKey: "k-1"}

	if _, err := h.svc.Purchase(ctx, in); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := h.svc.Purchase(ctx, in); !errors.Is(err, invest.ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
	assertMoney(t, "balance", h.user(t, u.ID).Balance, "70")
}

func TestListProductsOrderedByPrice(t *testing.T) {
	h := newHarness(t)
	products, err := h.svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 7 {
		t.Fatalf("expected 7 products, got %d", len(products))
	}
	for i := 1; i < len(products); i++ {
		if products[i].Price.LessThan(products[i-1].Price) {
			t.Fatalf("products not ordered by price at %d", i)
		}
	}
	if err := h.svc.SeedProducts(context.Background()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	again, _ := h.svc.ListProducts(context.Background())
	if len(again) != 7 {
		t.Fatalf("seeding twice duplicated products: %d", len(again))
	}
}
