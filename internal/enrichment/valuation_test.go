package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/medfata/inkscore-sub000/internal/models"
)

func TestWeiToEth(t *testing.T) {
	eth, ok := weiToEth("1000000000000000000")
	if !ok {
		t.Fatal("expected ok")
	}
	if eth != 1.0 {
		t.Fatalf("expected 1.0 ETH, got %v", eth)
	}

	if _, ok := weiToEth("not-a-number"); ok {
		t.Fatal("expected failure for non-numeric input")
	}
}

func TestHexDataToFloat(t *testing.T) {
	// 1000000 with 6 decimals == 1.0
	got, ok := hexDataToFloat("0xf4240", 6)
	if !ok {
		t.Fatal("expected ok")
	}
	if got != 1.0 {
		t.Fatalf("expected 1.0, got %v", got)
	}

	if _, ok := hexDataToFloat("0x", 6); ok {
		t.Fatal("expected failure for empty hex data")
	}
}

func TestValuer_StablecoinSum(t *testing.T) {
	v := NewValuer(nil)
	logs := []models.Log{
		{
			Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606EB48", // USDC
			Topics:  []string{erc20TransferTopic},
			Data:    "0xf4240", // 1_000_000 -> 1.0 at 6 decimals
		},
	}
	usd, ok := v.stablecoinSum(logs)
	if !ok {
		t.Fatal("expected stablecoin leg to be recognized")
	}
	if usd != 1.0 {
		t.Fatalf("expected 1.0 USD, got %v", usd)
	}
}

func TestValuer_RegisterStablecoin(t *testing.T) {
	v := NewValuer(nil)
	custom := "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
	v.RegisterStablecoin(custom, 18)

	logs := []models.Log{
		{Address: custom, Topics: []string{erc20TransferTopic}, Data: "0xde0b6b3a7640000"}, // 1e18
	}
	usd, ok := v.stablecoinSum(logs)
	if !ok {
		t.Fatal("expected custom-registered stablecoin to be recognized")
	}
	if usd != 1.0 {
		t.Fatalf("expected 1.0 USD, got %v", usd)
	}

	// Defaults must still be intact after registering a custom entry.
	defaultLogs := []models.Log{
		{Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Topics: []string{erc20TransferTopic}, Data: "0xf4240"},
	}
	if _, ok := v.stablecoinSum(defaultLogs); !ok {
		t.Fatal("expected default USDT entry to still be recognized")
	}
}

func TestValuer_Value_ZeroEthNoOracleCall(t *testing.T) {
	v := NewValuer(nil) // nil oracle would panic if dereferenced
	d := models.TransactionDetail{EthValue: "0", BlockTimestamp: time.Now()}
	usd, eth := v.Value(context.Background(), d, nil)
	if usd == nil || *usd != 0 {
		t.Fatalf("expected zero usd, got %v", usd)
	}
	if eth == nil || *eth != 0 {
		t.Fatalf("expected zero eth, got %v", eth)
	}
}
