package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalog_MissingFileReturnsEmpty(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cat == nil {
		t.Fatal("expected non-nil empty catalog")
	}
	if len(cat.Contracts) != 0 || len(cat.Platforms) != 0 {
		t.Fatalf("expected empty catalog, got %+v", cat)
	}
}

func TestLoadCatalog_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	body := `
platforms:
  - slug: uniswap
    name: Uniswap
contracts:
  - address: "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"
    name: Router
    deploy_block: 100
    kind: volume
    indexing_enabled: true
    platforms: [uniswap]
metrics:
  - slug: swap-volume
    name: Swap Volume
    currency: USD
    aggregation_type: sum_usd
    contracts: ["0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"]
stablecoins:
  - address: "0xStable"
    decimals: 6
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat.Platforms) != 1 || cat.Platforms[0].Slug != "uniswap" {
		t.Fatalf("expected one uniswap platform, got %+v", cat.Platforms)
	}
	if len(cat.Contracts) != 1 || cat.Contracts[0].DeployBlock != 100 {
		t.Fatalf("expected one contract with deploy_block 100, got %+v", cat.Contracts)
	}
	if len(cat.Metrics) != 1 || cat.Metrics[0].Slug != "swap-volume" {
		t.Fatalf("expected one swap-volume metric, got %+v", cat.Metrics)
	}
	if len(cat.Stablecoins) != 1 || cat.Stablecoins[0].Decimals != 6 {
		t.Fatalf("expected one stablecoin with 6 decimals, got %+v", cat.Stablecoins)
	}
}
