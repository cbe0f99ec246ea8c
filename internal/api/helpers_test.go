package api

import (
	"net/http/httptest"
	"testing"
)

func TestParseLimitOffset_Defaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/x", nil)
	limit, page := parseLimitOffset(req, 50, 200)
	if limit != 50 || page != 1 {
		t.Fatalf("expected defaults 50/1, got %d/%d", limit, page)
	}
}

func TestParseLimitOffset_RespectsQueryAndCeiling(t *testing.T) {
	req := httptest.NewRequest("GET", "/x?limit=999&page=3", nil)
	limit, page := parseLimitOffset(req, 50, 200)
	if limit != 200 {
		t.Fatalf("expected limit capped at 200, got %d", limit)
	}
	if page != 3 {
		t.Fatalf("expected page 3, got %d", page)
	}
}

func TestParseLimitOffset_IgnoresInvalidValues(t *testing.T) {
	req := httptest.NewRequest("GET", "/x?limit=-5&page=abc", nil)
	limit, page := parseLimitOffset(req, 50, 200)
	if limit != 50 || page != 1 {
		t.Fatalf("expected fall back to defaults, got %d/%d", limit, page)
	}
}

func TestNormalizeWalletParam(t *testing.T) {
	addr, ok := normalizeWalletParam("0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa")
	if !ok {
		t.Fatal("expected valid address to normalize")
	}
	if addr != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("expected lowercase normalized address, got %s", addr)
	}

	if _, ok := normalizeWalletParam("not-an-address"); ok {
		t.Fatal("expected invalid address to fail normalization")
	}
}
