package config

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/medfata/inkscore-sub000/internal/chainutil"
	"github.com/medfata/inkscore-sub000/internal/models"
	"github.com/medfata/inkscore-sub000/internal/repository"
)

// SeedCatalog applies a loaded Catalog into the repository: platforms and
// contracts first (so metrics/cards can resolve slugs/addresses to IDs),
// then metrics, then cards. Every step is an idempotent upsert, so this is
// safe to call on every startup.
func SeedCatalog(ctx context.Context, repo *repository.Repository, cat *Catalog) error {
	if cat == nil {
		return nil
	}

	platformIDs := make(map[string]int64, len(cat.Platforms))
	for _, p := range cat.Platforms {
		id, err := repo.UpsertPlatform(ctx, models.Platform{
			Slug:       p.Slug,
			Name:       p.Name,
			LogoURL:    p.LogoURL,
			WebsiteURL: p.WebsiteURL,
		})
		if err != nil {
			return fmt.Errorf("seed platform %s: %w", p.Slug, err)
		}
		platformIDs[p.Slug] = id
	}

	contractIDs := make(map[string]int64, len(cat.Contracts))
	for _, c := range cat.Contracts {
		address := chainutil.NormalizeAddress(c.Address)
		if !chainutil.IsValidAddress(address) {
			log.Printf("[catalog] skipping contract %q: invalid address", c.Address)
			continue
		}

		id, err := repo.UpsertContract(ctx, models.Contract{
			Address:           address,
			Name:              c.Name,
			DeployBlock:       c.DeployBlock,
			Kind:              models.ContractKind(c.Kind),
			IndexingEnabled:   c.IndexingEnabled,
			FetchTransactions: c.FetchTransactions,
		})
		if err != nil {
			return fmt.Errorf("seed contract %s: %w", address, err)
		}
		contractIDs[address] = id

		for _, slug := range c.Platforms {
			platformID, ok := platformIDs[slug]
			if !ok {
				log.Printf("[catalog] contract %s references unknown platform %q", address, slug)
				continue
			}
			if err := repo.LinkContractPlatform(ctx, id, platformID); err != nil {
				return fmt.Errorf("link contract %s to platform %s: %w", address, slug, err)
			}
		}
	}

	metricIDs := make(map[string]int64, len(cat.Metrics))
	for _, m := range cat.Metrics {
		var resolvedContracts []int64
		for _, addr := range m.Contracts {
			id, ok := contractIDs[chainutil.NormalizeAddress(addr)]
			if !ok {
				log.Printf("[catalog] metric %s references unknown contract %q", m.Slug, addr)
				continue
			}
			resolvedContracts = append(resolvedContracts, id)
		}

		id, err := repo.UpsertMetric(ctx, models.Metric{
			Slug:        m.Slug,
			Name:        m.Name,
			Currency:    models.MetricCurrency(strings.ToUpper(m.Currency)),
			Aggregation: models.AggregationType(m.Aggregation),
			Predicate: models.MetricPredicate{
				FunctionNames: m.FunctionNames,
				EventSigs:     m.EventSigs,
				SenderRole:    m.SenderRole,
				RecipientRole: m.RecipientRole,
			},
			ContractIDs: resolvedContracts,
		})
		if err != nil {
			return fmt.Errorf("seed metric %s: %w", m.Slug, err)
		}
		metricIDs[m.Slug] = id
	}

	existingCards, err := repo.ListDashboardCards(ctx, false)
	if err != nil {
		return fmt.Errorf("seed cards: list existing: %w", err)
	}
	existingTitles := make(map[string]bool, len(existingCards))
	for _, c := range existingCards {
		existingTitles[c.Title] = true
	}

	for _, card := range cat.Cards {
		if existingTitles[card.Title] {
			continue
		}
		var resolvedMetrics []int64
		for _, slug := range card.Metrics {
			if id, ok := metricIDs[slug]; ok {
				resolvedMetrics = append(resolvedMetrics, id)
			}
		}
		var resolvedPlatforms []int64
		for _, slug := range card.Platforms {
			if id, ok := platformIDs[slug]; ok {
				resolvedPlatforms = append(resolvedPlatforms, id)
			}
		}

		if _, err := repo.UpsertDashboardCard(ctx, models.DashboardCard{
			Row:          models.DashboardRow(card.Row),
			CardType:     models.DashboardCardType(card.CardType),
			Title:        card.Title,
			Subtitle:     card.Subtitle,
			Color:        card.Color,
			DisplayOrder: card.DisplayOrder,
			IsActive:     true,
			MetricIDs:    resolvedMetrics,
			PlatformIDs:  resolvedPlatforms,
		}); err != nil {
			return fmt.Errorf("seed card %q: %w", card.Title, err)
		}
	}

	log.Printf("[catalog] seeded %d platforms, %d contracts, %d metrics, %d cards",
		len(platformIDs), len(contractIDs), len(metricIDs), len(cat.Cards))
	return nil
}
