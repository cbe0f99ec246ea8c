// Package aggregation turns raw discovered-and-enriched transaction rows
// into per-wallet platform metrics, bridge/lending breakdowns, and
// admin-configurable dashboard card rollups.
package aggregation

import (
	"strings"

	"github.com/medfata/inkscore-sub000/internal/chainutil"
	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/repository"
)

// matches reports whether an enriched transaction row satisfies a metric's
// predicate: an implicit conjunction over contract membership (already
// applied by the caller's contract filter), function-name whitelist,
// event-signature whitelist, and sender/recipient role.
func matches(tx repository.EnrichedTx, wallet string, p models.MetricPredicate) bool {
	if len(p.FunctionNames) > 0 {
		if tx.FunctionName == nil || !containsFold(p.FunctionNames, *tx.FunctionName) {
			return false
		}
	}

	if len(p.EventSigs) > 0 && !hasMatchingEventSig(tx.Logs, p.EventSigs) {
		return false
	}

	if p.SenderRole && !strings.EqualFold(tx.WalletAddress, wallet) {
		return false
	}

	if p.RecipientRole && !hasMatchingRecipient(tx.Logs, wallet) {
		return false
	}

	return true
}

// hasMatchingRecipient reports whether wallet appears as an indexed topic
// address in any log, the recipient-side convention for events like
// Transfer(address indexed from, address indexed to, uint256 value) where
// the address is left-padded to 32 bytes.
func hasMatchingRecipient(logs []models.Log, wallet string) bool {
	padded := padAddressTopic(wallet)
	if padded == "" {
		return false
	}
	for _, l := range logs {
		for i, t := range l.Topics {
			if i == 0 {
				continue // topic[0] is the event signature, never an address
			}
			if strings.EqualFold(t, padded) {
				return true
			}
		}
	}
	return false
}

// padAddressTopic left-pads a 20-byte address into the 32-byte topic form
// logs encode indexed address parameters in.
func padAddressTopic(addr string) string {
	return chainutil.PadAddressTopic(addr)
}

func containsFold(list []string, needle string) bool {
	for _, v := range list {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

func hasMatchingEventSig(logs []models.Log, sigs []string) bool {
	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		if containsFold(sigs, l.Topics[0]) {
			return true
		}
	}
	return false
}
