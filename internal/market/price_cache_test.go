package market

import (
	"testing"
	"time"
)

func TestPriceCache_PutAndGet(t *testing.T) {
	c := NewPriceCache()
	hour := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c.Put("0xTOKEN", hour, 3.5)

	got, ok := c.Get("0xtoken", hour)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != 3.5 {
		t.Errorf("expected 3.5, got %v", got)
	}
}

func TestPriceCache_GetMissOnDifferentHour(t *testing.T) {
	c := NewPriceCache()
	hour := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.Put("0xtoken", hour, 3.5)

	_, ok := c.Get("0xtoken", hour.Add(time.Hour))
	if ok {
		t.Error("expected cache miss for different hour bucket")
	}
}

func TestPriceCache_Nearest(t *testing.T) {
	c := NewPriceCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Put("0xtoken", base, 1.0)
	c.Put("0xtoken", base.Add(10*time.Hour), 2.0)

	got, ok := c.Nearest("0xtoken", base.Add(9*time.Hour))
	if !ok {
		t.Fatal("expected a nearest match")
	}
	if got != 2.0 {
		t.Errorf("expected nearest sample 2.0, got %v", got)
	}
}

func TestPriceCache_NearestBeyondWindow(t *testing.T) {
	c := NewPriceCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Put("0xtoken", base, 1.0)

	_, ok := c.Nearest("0xtoken", base.Add(72*time.Hour))
	if ok {
		t.Error("expected no match beyond the 48h window")
	}
}

func TestPriceCache_LatestPrice(t *testing.T) {
	c := NewPriceCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Put("0xtoken", base, 1.0)
	c.Put("0xtoken", base.Add(time.Hour), 2.0)

	got, ok := c.LatestPrice("0xtoken")
	if !ok || got != 2.0 {
		t.Errorf("expected latest price 2.0, got %v (ok=%v)", got, ok)
	}
}
