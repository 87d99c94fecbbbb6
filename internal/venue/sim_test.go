package venue

import (
	"context"
	"errors"
	"testing"
)

func TestSimClient_QuoteUsesRateTable(t *testing.T) {
	c := NewSimClient(false)
	c.SetRate("USDC", "SOL", 0.01)

	quote, err := c.Quote(context.Background(), QuoteRequest{
		InAsset: "USDC", OutAsset: "SOL", Amount: 1_000, SlippageBps: 50,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.OutAmount != 10 {
		t.Errorf("out amount = %v, want 10", quote.OutAmount)
	}
	if quote.SlippageBps != 50 {
		t.Errorf("slippage = %v, want 50", quote.SlippageBps)
	}

	// Unknown pairs quote 1:1.
	quote, err = c.Quote(context.Background(), QuoteRequest{InAsset: "A", OutAsset: "B", Amount: 7})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.OutAmount != 7 {
		t.Errorf("unknown pair out amount = %v, want 7", quote.OutAmount)
	}
}

func TestSimClient_SignaturesAreDeterministic(t *testing.T) {
	ctx := context.Background()
	quote := &Quote{InAsset: "USDC", OutAsset: "SOL", InAmount: 1_000, OutAmount: 10}

	run := func() []string {
		c := NewSimClient(true)
		var sigs []string
		for i := 0; i < 3; i++ {
			res, err := c.SwapFromQuote(ctx, quote, "")
			if err != nil {
				t.Fatalf("swap: %v", err)
			}
			if !res.Simulated {
				t.Fatal("sim swaps must report Simulated")
			}
			sigs = append(sigs, res.TxSignature)
		}
		return sigs
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("signature %d differs across identical runs", i)
		}
	}
	if a[0] == a[1] || a[1] == a[2] {
		t.Error("successive swaps must produce distinct signatures")
	}
}

func TestSimClient_ErrorInjection(t *testing.T) {
	ctx := context.Background()
	c := NewSimClient(true)

	quoteErr := errors.New("quote down")
	c.QuoteErr = quoteErr
	if _, err := c.Quote(ctx, QuoteRequest{InAsset: "A", OutAsset: "B", Amount: 1}); !errors.Is(err, quoteErr) {
		t.Errorf("quote err = %v, want injected error", err)
	}

	c.QuoteErr = nil
	swapErr := errors.New("swap down")
	c.SwapErr = swapErr
	if _, err := c.SwapFromQuote(ctx, &Quote{}, ""); !errors.Is(err, swapErr) {
		t.Errorf("swap err = %v, want injected error", err)
	}
}

func TestSimClient_Readiness(t *testing.T) {
	if NewSimClient(false).IsReadyForLive() {
		t.Error("not-ready sim reported ready")
	}
	if !NewSimClient(true).IsReadyForLive() {
		t.Error("ready sim reported not ready")
	}
}
