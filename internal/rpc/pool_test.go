package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPool_BlockNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "eth_blockNumber" {
			t.Errorf("unexpected method %s", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x64"}`))
	}))
	defer srv.Close()

	pool, err := NewPool([]string{srv.URL}, 100, 5*time.Second)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	client := NewClient(pool)

	n, err := client.BlockNumber(context.Background())
	if err != nil {
		t.Fatalf("BlockNumber: %v", err)
	}
	if n != 100 {
		t.Errorf("expected 100, got %d", n)
	}
}

func TestPool_RoundRobin(t *testing.T) {
	var hits [2]int
	mk := func(idx int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits[idx]++
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
		}))
	}
	s0 := mk(0)
	defer s0.Close()
	s1 := mk(1)
	defer s1.Close()

	pool, err := NewPool([]string{s0.URL, s1.URL}, 100, 5*time.Second)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	client := NewClient(pool)

	for i := 0; i < 10; i++ {
		if _, err := client.BlockNumber(context.Background()); err != nil {
			t.Fatalf("BlockNumber: %v", err)
		}
	}

	if hits[0] == 0 || hits[1] == 0 {
		t.Errorf("expected both endpoints to receive traffic, got %v", hits)
	}
}

func TestPool_MarksEndpointDegradedAfterRepeatedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	pool, err := NewPool([]string{srv.URL}, 100, 2*time.Second)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	client := NewClient(pool)

	for i := 0; i < 5; i++ {
		client.BlockNumber(context.Background())
	}

	if rate := pool.ErrorRate(); rate == 0 {
		t.Error("expected the sole endpoint to be marked degraded after repeated 429s")
	}
}

func TestDecodeHexUint(t *testing.T) {
	cases := map[string]uint64{
		`"0x0"`:  0,
		`"0x64"`: 100,
		`"0x"`:   0,
	}
	for in, want := range cases {
		got, err := decodeHexUint(json.RawMessage(in))
		if err != nil {
			t.Fatalf("decodeHexUint(%s): %v", in, err)
		}
		if got != want {
			t.Errorf("decodeHexUint(%s) = %d, want %d", in, got, want)
		}
	}
}
