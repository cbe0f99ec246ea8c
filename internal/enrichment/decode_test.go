package enrichment

import "testing"

const testABI = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}]}
]`

func TestSelectorDecoder_RegisterAndResolve(t *testing.T) {
	d := NewSelectorDecoder()
	addr := "0xAbCabcabcabcabcabcabcabcabcabcabcabcabca"
	d.RegisterABI(addr, []byte(testABI))

	transferSelector := "0xa9059cbb" // transfer(address,uint256)
	if name := d.FunctionName(addr, transferSelector); name != "transfer" {
		t.Fatalf("expected transfer, got %q", name)
	}

	// Case/prefix-insensitive on the selector.
	if name := d.FunctionName(addr, "A9059CBB"); name != "transfer" {
		t.Fatalf("expected transfer for uppercase selector, got %q", name)
	}

	if name := d.FunctionName(addr, "0xdeadbeef"); name != "" {
		t.Fatalf("expected empty string for unknown selector, got %q", name)
	}
}

func TestSelectorDecoder_UnregisteredContract(t *testing.T) {
	d := NewSelectorDecoder()
	if name := d.FunctionName("0xnotregistered", "0xa9059cbb"); name != "" {
		t.Fatalf("expected empty string for unregistered contract, got %q", name)
	}
}

func TestSelectorDecoder_MalformedABISwallowed(t *testing.T) {
	d := NewSelectorDecoder()
	addr := "0xAbCabcabcabcabcabcabcabcabcabcabcabcabca"
	d.RegisterABI(addr, []byte("not json"))

	if name := d.FunctionName(addr, "0xa9059cbb"); name != "" {
		t.Fatalf("expected no resolution after malformed ABI, got %q", name)
	}
}

func TestSelectorDecoder_EmptyABINoop(t *testing.T) {
	d := NewSelectorDecoder()
	d.RegisterABI("0xaddr", nil)
	if name := d.FunctionName("0xaddr", "0xa9059cbb"); name != "" {
		t.Fatalf("expected empty string, got %q", name)
	}
}
