package enrichment

import (
	"encoding/hex"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// SelectorDecoder resolves a 4-byte function selector to its human-readable
// name for contracts that carry an ABI fragment, caching one parsed ABI per
// contract address so repeated enrichment passes don't re-parse JSON.
type SelectorDecoder struct {
	mu    sync.RWMutex
	byAddr map[string]map[string]string // contract address -> selector (8 hex, no 0x prefix) -> method name
}

// NewSelectorDecoder builds an empty decoder; contracts are registered via RegisterABI.
func NewSelectorDecoder() *SelectorDecoder {
	return &SelectorDecoder{byAddr: make(map[string]map[string]string)}
}

// RegisterABI parses a contract's ABI JSON and indexes its methods by
// selector. A parse failure is swallowed (function names simply stay
// unresolved for that contract) since a malformed ABI fragment should not
// block enrichment of other transactions.
func (d *SelectorDecoder) RegisterABI(contractAddress string, abiJSON []byte) {
	if len(abiJSON) == 0 {
		return
	}
	parsed, err := abi.JSON(strings.NewReader(string(abiJSON)))
	if err != nil {
		return
	}

	selectors := make(map[string]string, len(parsed.Methods))
	for name, m := range parsed.Methods {
		selectors[hex.EncodeToString(m.ID)] = name
	}

	d.mu.Lock()
	d.byAddr[strings.ToLower(contractAddress)] = selectors
	d.mu.Unlock()
}

// FunctionName returns the decoded method name for the given 0x-prefixed
// calldata selector, or "" if the contract has no registered ABI or the
// selector is unknown.
func (d *SelectorDecoder) FunctionName(contractAddress, selector string) string {
	selector = strings.TrimPrefix(strings.ToLower(selector), "0x")
	if len(selector) != 8 {
		return ""
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	methods, ok := d.byAddr[strings.ToLower(contractAddress)]
	if !ok {
		return ""
	}
	return methods[selector]
}
