package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the static reference data seeded at startup: curated contracts,
// platforms, starter metrics, and starter dashboard cards. It is loaded once
// from YAML and upserted idempotently by the repository layer; it is never
// read again on the request path.
type Catalog struct {
	Contracts   []CatalogContract   `yaml:"contracts"`
	Platforms   []CatalogPlatform   `yaml:"platforms"`
	Metrics     []CatalogMetric     `yaml:"metrics"`
	Cards       []CatalogCard       `yaml:"cards"`
	HotWallets  []CatalogHotWallet  `yaml:"bridge_hot_wallets"`
	Stablecoins []CatalogStablecoin `yaml:"stablecoins"`
}

// CatalogHotWallet names a bridge operator address: its OFTSent-shaped logs
// represent funds bridged OUT of the chain, its OFTReceived-shaped logs
// represent funds bridged IN. SelectorPlatforms maps a 4-byte function
// selector on that wallet's triggering tx to a sub-platform label, for
// bridges that route several brands through one operator address.
type CatalogHotWallet struct {
	Address           string            `yaml:"address"`
	Platform          string            `yaml:"platform"` // platform slug
	SentTopic         string            `yaml:"sent_topic"`     // topic0 of the OFTSent-shaped event
	ReceivedTopic     string            `yaml:"received_topic"` // topic0 of the OFTReceived-shaped event
	Decimals          int               `yaml:"decimals"`       // token decimals for the amount word, default 6
	SelectorPlatforms map[string]string `yaml:"selector_platforms"`
}

// CatalogStablecoin is a known stablecoin contract used to recognize
// Transfer legs that are already USD-denominated without an oracle lookup.
type CatalogStablecoin struct {
	Address  string `yaml:"address"`
	Decimals int    `yaml:"decimals"`
}

type CatalogContract struct {
	Address           string `yaml:"address"`
	Name              string `yaml:"name"`
	DeployBlock       uint64 `yaml:"deploy_block"`
	Kind              string `yaml:"kind"` // "count" | "volume"
	IndexingEnabled   bool   `yaml:"indexing_enabled"`
	FetchTransactions bool   `yaml:"fetch_transactions"`
	Platforms         []string `yaml:"platforms"` // platform slugs
}

type CatalogPlatform struct {
	Slug       string `yaml:"slug"`
	Name       string `yaml:"name"`
	LogoURL    string `yaml:"logo_url"`
	WebsiteURL string `yaml:"website_url"`
}

type CatalogMetric struct {
	Slug        string   `yaml:"slug"`
	Name        string   `yaml:"name"`
	Currency    string   `yaml:"currency"`
	Aggregation string   `yaml:"aggregation_type"`
	Contracts   []string `yaml:"contracts"` // contract addresses
	FunctionNames []string `yaml:"function_names"`
	EventSigs     []string `yaml:"event_sigs"`
	SenderRole    bool     `yaml:"sender_role"`
	RecipientRole bool     `yaml:"recipient_role"`
}

type CatalogCard struct {
	Row          string   `yaml:"row"`
	CardType     string   `yaml:"card_type"`
	Title        string   `yaml:"title"`
	Subtitle     string   `yaml:"subtitle"`
	Color        string   `yaml:"color"`
	DisplayOrder int      `yaml:"display_order"`
	Metrics      []string `yaml:"metrics"`   // metric slugs
	Platforms    []string `yaml:"platforms"` // platform slugs
}

// LoadCatalog reads the static catalog YAML file at path. A missing file is
// not an error: the service can run with an empty catalog and have contracts
// added entirely through the admin API.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Catalog{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}
