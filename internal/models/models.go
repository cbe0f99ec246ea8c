package models

import (
	"encoding/json"
	"time"
)

// ContractKind classifies how a contract is aggregated: a simple activity
// counter, or a value-bearing contract whose transfers carry volume.
type ContractKind string

const (
	ContractKindCount  ContractKind = "count"
	ContractKindVolume ContractKind = "volume"
)

// Contract is a curated on-chain address targeted for indexing.
type Contract struct {
	ID                  int64           `json:"id"`
	Address             string          `json:"address"` // lowercase, 0x-prefixed, 40 hex chars
	Name                string          `json:"name"`
	DeployBlock         uint64          `json:"deploy_block"`
	Kind                ContractKind    `json:"kind"`
	IndexingEnabled     bool            `json:"indexing_enabled"`
	FetchTransactions   bool            `json:"fetch_transactions"` // true = full-tx/scanner mode, false = event-mode
	CreationDate        time.Time       `json:"creation_date"`
	ABI                 json.RawMessage `json:"abi,omitempty"` // optional; used to decode function names
	IndexedThroughBlock uint64          `json:"indexed_through_block"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Platform is a human-visible grouping of one or more contracts.
type Platform struct {
	ID         int64     `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	LogoURL    string    `json:"logo_url,omitempty"`
	WebsiteURL string    `json:"website_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MetricCurrency is the unit a metric is expressed in.
type MetricCurrency string

const (
	CurrencyUSD   MetricCurrency = "USD"
	CurrencyETH   MetricCurrency = "ETH"
	CurrencyCOUNT MetricCurrency = "COUNT"
)

// AggregationType is the tagged-union kind for a metric's aggregation rule.
type AggregationType string

const (
	AggSumETH          AggregationType = "sum_eth"
	AggSumUSD          AggregationType = "sum_usd"
	AggCount           AggregationType = "count"
	AggCountDistinctTx AggregationType = "count_distinct_tx"
)

// MetricPredicate narrows the rows a metric aggregates over: a function-name
// whitelist, an event-signature whitelist, and sender/recipient role flags.
// A nil/empty field means "no restriction on that axis".
type MetricPredicate struct {
	FunctionNames []string `json:"function_names,omitempty"`
	EventSigs     []string `json:"event_sigs,omitempty"`
	SenderRole    bool     `json:"sender_role,omitempty"`    // wallet must be the tx sender
	RecipientRole bool     `json:"recipient_role,omitempty"` // wallet must be the contract counterpart
}

// Metric is a named aggregation rule: a pure view over enriched transaction data.
type Metric struct {
	ID          int64           `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Currency    MetricCurrency  `json:"currency"`
	Aggregation AggregationType `json:"aggregation_type"`
	Predicate   MetricPredicate `json:"predicate"`
	ContractIDs []int64         `json:"contract_ids"` // resolved from metric_contracts
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionDetail is the raw per-transaction fact row, written once by
// discovery and never mutated except to correct Status on reconfirmation.
type TransactionDetail struct {
	TxHash          string    `json:"tx_hash"`
	ContractAddress string    `json:"contract_address"`
	WalletAddress   string    `json:"wallet_address"` // tx sender, lowercased
	BlockNumber     uint64    `json:"block_number"`
	BlockTimestamp  time.Time `json:"block_timestamp"`
	Status          int16     `json:"status"` // 0 = reverted, 1 = success
	EthValue        string    `json:"eth_value"` // wei, decimal string
	InputSelector   string    `json:"input_selector,omitempty"` // first 4 bytes of calldata, 0x-prefixed
	GasUsed         uint64    `json:"gas_used"`
	CreatedAt       time.Time `json:"created_at"`
}

// Log is one structured event-log entry captured during enrichment.
type Log struct {
	Index   uint     `json:"index"`
	Address string   `json:"address"`
	Topics  []string `json:"topics"` // length 0..4
	Data    string   `json:"data"`
}

// TransactionEnrichment is written exactly once per tx by the enrichment
// worker; later writes are idempotent upserts.
type TransactionEnrichment struct {
	TxHash          string     `json:"tx_hash"`
	FunctionName    *string    `json:"function_name,omitempty"` // nil when the selector is unknown
	Logs            []Log      `json:"logs"`
	USDValue        *float64   `json:"usd_value,omitempty"`
	EthValueDerived *float64   `json:"eth_value_derived,omitempty"`
	EnrichedAt      time.Time  `json:"enriched_at"`
}

// JobType enumerates the three kinds of work the queue coordinates.
type JobType string

const (
	JobDiscover JobType = "discover"
	JobBackfill JobType = "backfill"
	JobEnrich   JobType = "enrich"
)

// JobStatus is the job state machine: pending -> processing -> (completed|failed),
// with processing -> pending (after a backoff delay) on a failed attempt while
// attempts remain; a job reaches failed once attempts are exhausted or it is
// cancelled, and failed -> pending happens only via explicit admin retry.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is one unit of queued work.
type Job struct {
	ID                 int64           `json:"id"`
	JobType            JobType         `json:"job_type"`
	ContractID         *int64          `json:"contract_id,omitempty"`
	Priority           int             `json:"priority"` // 1..10, lower = more urgent
	Status             JobStatus       `json:"status"`
	Payload            json.RawMessage `json:"payload"`
	PayloadFingerprint string          `json:"-"` // dedup key checked by JobExists/FindJobByFingerprint
	Attempts     int             `json:"attempts"`
	MaxAttempts  int             `json:"max_attempts"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	NextRetryAt  *time.Time      `json:"next_retry_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// BackfillPayload is the canonical payload shape for backfill jobs.
type BackfillPayload struct {
	ContractID int64  `json:"contractId"`
	FromBlock  uint64 `json:"fromBlock,omitempty"`
	ToBlock    uint64 `json:"toBlock,omitempty"`
	FromDate   string `json:"fromDate,omitempty"`
	ToDate     string `json:"toDate,omitempty"`
}

// DashboardRow is the UI row a card is rendered under.
type DashboardRow string

const (
	Row3 DashboardRow = "row3"
	Row4 DashboardRow = "row4"
)

// DashboardCardType distinguishes single-metric tiles from multi-platform rollups.
type DashboardCardType string

const (
	CardAggregate DashboardCardType = "aggregate"
	CardSingle    DashboardCardType = "single"
)

// DashboardCard is an admin-defined grouping of metrics and platforms rendered
// as one UI tile, with an optional byPlatform breakdown.
type DashboardCard struct {
	ID           int64             `json:"id"`
	Row          DashboardRow      `json:"row"`
	CardType     DashboardCardType `json:"card_type"`
	Title        string            `json:"title"`
	Subtitle     string            `json:"subtitle,omitempty"`
	Color        string            `json:"color,omitempty"`
	DisplayOrder int               `json:"display_order"`
	IsActive     bool              `json:"is_active"`
	MetricIDs    []int64           `json:"metric_ids"`
	PlatformIDs  []int64           `json:"platform_ids"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NFTMintRecord is produced by an external mint-authorization collaborator
// and read here purely to serve the leaderboard view.
type NFTMintRecord struct {
	WalletAddress string    `json:"wallet_address"`
	TokenID       string    `json:"token_id"`
	Score         float64   `json:"score"`
	Rank          int       `json:"rank"`
	ImageURL      string    `json:"image_url,omitempty"`
	MintedAt      time.Time `json:"minted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
