package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/wealthwave/checkout-service/internal/catalog"
	"github.com/wealthwave/checkout-service/internal/config"
	"github.com/wealthwave/checkout-service/internal/postgres"
)

// Seed catalog. Upserts are keyed by slug so re-running is safe; products
// missing from this set are deactivated, never deleted (historical orders
// reference them).
var products = []catalog.Product{
	// MONEY MASTERY
	{
		Type: catalog.TypeMisc,
		Slug: "the-prudent-investors-framework",
		Name: "The Prudent Investor's Framework",
		Description: "A systematic approach to managing risk, building diversified portfolios, " +
			"and making informed investment decisions across all asset classes. Includes risk " +
			"assessment templates and portfolio construction models.",
		PriceCents: 9700,
		Currency:   "usd",
		IsActive:   true,
	},
	{
		Type: catalog.TypeMisc,
		Slug: "cryptocurrency-clarity-risk-first",
		Name: "Cryptocurrency Clarity: A Risk-First Approach",
		Description: "Navigate crypto markets with confidence. Learn risk management, fundamental " +
			"analysis, and systematic trading strategies that prioritize capital preservation.",
		PriceCents: 6700,
		Currency:   "usd",
		IsActive:   true,
	},
	{
		Type: catalog.TypeMisc,
		Slug: "automated-income-systems",
		Name: "Automated Income Systems",
		Description: "Build passive income streams through dividend investing, REITs, and automated " +
			"trading strategies. Templates for tracking and scaling included.",
		PriceCents: 7900,
		Currency:   "usd",
		IsActive:   true,
	},

	// ONLINE BUSINESS BUILDER
	{
		Type: catalog.TypeCourse,
		Slug: "the-digital-business-launchpad",
		Name: "The Digital Business Launchpad",
		Description: "From zero to first $10k online. Covers niche selection, audience building, " +
			"offer creation, and automated sales funnels. Includes funnel templates and validation " +
			"checklists.",
		PriceCents: 14900,
		Currency:   "usd",
		IsActive:   true,
	},
	{
		Type: catalog.TypeMisc,
		Slug: "audience-first-social-growth-engine",
		Name: "Audience First: Social Growth Engine",
		Description: "Build a loyal audience before launching products. Content systems, community " +
			"building, and conversion strategies that work across all platforms.",
		PriceCents: 5700,
		Currency:   "usd",
		IsActive:   true,
	},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	repo := &catalog.Repo{DB: db}

	slugs := make([]string, 0, len(products))
	for _, p := range products {
		slugs = append(slugs, p.Slug)
	}
	retired, err := repo.DeactivateMissing(ctx, slugs)
	if err != nil {
		log.Fatalf("deactivate: %v", err)
	}
	if retired > 0 {
		log.Printf("deactivated %d product(s) not in seed set", retired)
	}

	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			log.Fatalf("upsert %s: %v", p.Slug, err)
		}
		log.Printf("seeded %s (%s, %d %s)", p.Slug, p.Type, p.PriceCents, p.Currency)
	}
}
