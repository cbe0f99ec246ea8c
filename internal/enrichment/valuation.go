package enrichment

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/medfata/inkscore-sub000/internal/market"
	"github.com/medfata/inkscore-sub000/internal/models"
)

// erc20TransferTopic is keccak256("Transfer(address,address,uint256)").
const erc20TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// defaultStablecoins maps known stablecoin addresses to their assumed 1:1 USD
// peg and ERC-20 decimals, used for the fast-path valuation rule.
var defaultStablecoins = map[string]int{
	"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": 6, // USDC
	"0xdac17f958d2ee523a2206206994597c13d831ec7": 6, // USDT
}

// weiPerEth is 10^18, used to convert wei to whole ETH for USD conversion.
var weiPerEth = new(big.Float).SetFloat64(1e18)

// Valuer computes usd_value and eth_value_derived for one transaction,
// following the ordered rule: stablecoin transfer sum, else token-out legs
// valued via the oracle, else eth_value × eth_price.
type Valuer struct {
	oracle      *market.Oracle
	stablecoins map[string]int
}

func NewValuer(oracle *market.Oracle) *Valuer {
	stablecoins := make(map[string]int, len(defaultStablecoins))
	for addr, decimals := range defaultStablecoins {
		stablecoins[addr] = decimals
	}
	return &Valuer{oracle: oracle, stablecoins: stablecoins}
}

// RegisterStablecoin adds an operator-supplied stablecoin to the recognized
// set, layered on top of the built-in defaults. Safe to call before the
// valuer processes any transactions; not safe for concurrent use with Value.
func (v *Valuer) RegisterStablecoin(address string, decimals int) {
	v.stablecoins[strings.ToLower(address)] = decimals
}

// Value returns (usdValue, ethValueDerived); either may be nil if no
// confident value could be computed: both are nil when the ETH value cannot
// be parsed, usdValue is nil when the oracle has no native price for a
// nonzero ETH value, and ethValueDerived is nil when a stablecoin or
// oracle-valued token leg priced the transaction. A zero ETH value yields
// (0, 0) without consulting the oracle.
func (v *Valuer) Value(ctx context.Context, d models.TransactionDetail, logs []models.Log) (*float64, *float64) {
	if usd, ok := v.stablecoinSum(logs); ok {
		return &usd, nil
	}

	if usd, ok := v.oracleValuedLegs(ctx, logs, d.BlockTimestamp); ok {
		return &usd, nil
	}

	ethVal, ok := weiToEth(d.EthValue)
	if !ok {
		return nil, nil
	}
	if ethVal == 0 {
		zero := 0.0
		return &zero, &ethVal
	}

	price, err := v.oracle.PriceOf(ctx, nativeTokenSentinel, d.BlockTimestamp)
	if err != nil {
		return nil, &ethVal
	}
	usd := ethVal * price
	return &usd, &ethVal
}

// nativeTokenSentinel is the pseudo-address the price oracle uses for the
// chain's native asset (no ERC-20 contract backs it).
const nativeTokenSentinel = "0x0000000000000000000000000000000000000000"

func (v *Valuer) stablecoinSum(logs []models.Log) (float64, bool) {
	var total float64
	var found bool
	for _, l := range logs {
		if len(l.Topics) == 0 || strings.ToLower(l.Topics[0]) != erc20TransferTopic {
			continue
		}
		decimals, ok := v.stablecoins[strings.ToLower(l.Address)]
		if !ok {
			continue
		}
		amount, ok := hexDataToFloat(l.Data, decimals)
		if !ok {
			continue
		}
		total += amount
		found = true
	}
	return total, found
}

func (v *Valuer) oracleValuedLegs(ctx context.Context, logs []models.Log, at time.Time) (float64, bool) {
	var total float64
	var found bool
	for _, l := range logs {
		if len(l.Topics) == 0 || strings.ToLower(l.Topics[0]) != erc20TransferTopic {
			continue
		}
		amount, ok := hexDataToFloat(l.Data, 18)
		if !ok {
			continue
		}
		price, err := v.oracle.PriceOf(ctx, strings.ToLower(l.Address), at)
		if err != nil {
			continue
		}
		total += amount * price
		found = true
	}
	return total, found
}

func weiToEth(wei string) (float64, bool) {
	n, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return 0, false
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(n), weiPerEth)
	eth, _ := f.Float64()
	return eth, true
}

func hexDataToFloat(data string, decimals int) (float64, bool) {
	data = strings.TrimPrefix(data, "0x")
	if data == "" {
		return 0, false
	}
	n, ok := new(big.Int).SetString(data, 16)
	if !ok {
		return 0, false
	}
	divisor := new(big.Float).SetFloat64(1)
	ten := big.NewFloat(10)
	for i := 0; i < decimals; i++ {
		divisor.Mul(divisor, ten)
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(n), divisor)
	out, _ := f.Float64()
	return out, true
}
