package aggregation

import (
	"testing"

	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestMatches_FunctionNameFilter(t *testing.T) {
	p := models.MetricPredicate{FunctionNames: []string{"swap", "deposit"}}

	tx := repository.EnrichedTx{FunctionName: strPtr("Swap")}
	if !matches(tx, "0xwallet", p) {
		t.Fatal("expected case-insensitive function name match")
	}

	tx = repository.EnrichedTx{FunctionName: strPtr("withdraw")}
	if matches(tx, "0xwallet", p) {
		t.Fatal("expected no match for function not in whitelist")
	}

	tx = repository.EnrichedTx{FunctionName: nil}
	if matches(tx, "0xwallet", p) {
		t.Fatal("expected no match when function name is unresolved")
	}
}

func TestMatches_EventSigFilter(t *testing.T) {
	p := models.MetricPredicate{EventSigs: []string{"0xTransferSig"}}

	tx := repository.EnrichedTx{Logs: []models.Log{{Topics: []string{"0xtransfersig"}}}}
	if !matches(tx, "0xwallet", p) {
		t.Fatal("expected case-insensitive event sig match")
	}

	tx = repository.EnrichedTx{Logs: []models.Log{{Topics: []string{"0xOtherSig"}}}}
	if matches(tx, "0xwallet", p) {
		t.Fatal("expected no match for absent event sig")
	}
}

func TestMatches_SenderRole(t *testing.T) {
	p := models.MetricPredicate{SenderRole: true}

	tx := repository.EnrichedTx{WalletAddress: "0xAbC"}
	if !matches(tx, "0xabc", p) {
		t.Fatal("expected case-insensitive sender match")
	}

	tx = repository.EnrichedTx{WalletAddress: "0xdef"}
	if matches(tx, "0xabc", p) {
		t.Fatal("expected no match when wallet isn't the sender")
	}
}

func TestMatches_RecipientRole(t *testing.T) {
	wallet := "0x1111111111111111111111111111111111111111"
	padded := padAddressTopic(wallet)
	p := models.MetricPredicate{RecipientRole: true}

	tx := repository.EnrichedTx{Logs: []models.Log{{Topics: []string{"0xSig", padded}}}}
	if !matches(tx, wallet, p) {
		t.Fatal("expected recipient match via indexed topic")
	}

	tx = repository.EnrichedTx{Logs: []models.Log{{Topics: []string{"0xSig", "0xdeadbeef"}}}}
	if matches(tx, wallet, p) {
		t.Fatal("expected no recipient match for unrelated topic")
	}
}

func TestPadAddressTopic(t *testing.T) {
	got := padAddressTopic("0x1111111111111111111111111111111111111111")
	want := "0x" + "000000000000000000000000" + "1111111111111111111111111111111111111111"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}

	if padAddressTopic("not-an-address") != "" {
		t.Fatal("expected empty string for malformed address")
	}
}

func TestMatches_NoPredicateAlwaysMatches(t *testing.T) {
	tx := repository.EnrichedTx{WalletAddress: "0xabc"}
	if !matches(tx, "0xdef", models.MetricPredicate{}) {
		t.Fatal("expected empty predicate to match everything")
	}
}
