// Package seed fills the local development databases with demo vendors,
// categories, orders, commission rules and membership discounts. Re-running
// it leaves existing rows untouched.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ledgerline/commission/internal/commission/app"
	"github.com/ledgerline/commission/internal/commission/domain"
	"github.com/ledgerline/commission/internal/commission/storage"
	"github.com/ledgerline/commission/internal/commission/storage/sqlite"
	apperrors "github.com/ledgerline/commission/internal/platform/errors"
)

// seedActor is recorded in the audit trail for seeded rules and discounts.
const seedActor = "seed"

// Config holds commission-seed command configuration.
type Config struct {
	DBPath       string `env:"COMMISSION_DB_PATH"`
	OrdersDBPath string `env:"COMMISSION_ORDERS_DB_PATH"`
	Orders       int
	Seed         int64
}

type envConfig struct {
	DBPath       string `env:"COMMISSION_DB_PATH"`
	OrdersDBPath string `env:"COMMISSION_ORDERS_DB_PATH"`
}

// ParseConfig parses env defaults and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:       envCfg.DBPath,
		OrdersDBPath: envCfg.OrdersDBPath,
		Orders:       50,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "commission.db")
	}
	if cfg.OrdersDBPath == "" {
		cfg.OrdersDBPath = filepath.Join("data", "orders.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to commission sqlite database (default: COMMISSION_DB_PATH or data/commission.db)")
	fs.StringVar(&cfg.OrdersDBPath, "orders-db-path", cfg.OrdersDBPath, "path to orders sqlite database (default: COMMISSION_ORDERS_DB_PATH or data/orders.db)")
	fs.IntVar(&cfg.Orders, "orders", cfg.Orders, "number of demo orders to seed")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducible orders (0 = time-based)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the commission-seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Orders < 0 {
		return errors.New("-orders must be zero or positive")
	}

	rules, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rules.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close commission store: %v\n", closeErr)
		}
	}()

	orders, err := sqlite.OpenOrders(cfg.OrdersDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := orders.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close orders store: %v\n", closeErr)
		}
	}()

	engine := app.New(rules, orders, rules, app.Options{})
	return runWithDeps(ctx, cfg, engine, orders, out)
}

// runWithDeps seeds through injected dependencies. Tests drive it with
// fakes; Run wires the real stores.
func runWithDeps(ctx context.Context, cfg Config, engine ruleSeeder, orders orderSeeder, out io.Writer) error {
	newRules, err := seedRules(ctx, engine)
	if err != nil {
		return err
	}
	newDiscounts, err := seedDiscounts(ctx, engine)
	if err != nil {
		return err
	}
	if err := seedCatalog(ctx, orders); err != nil {
		return err
	}
	newOrders, err := seedOrders(ctx, cfg, orders)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Seeded %d vendors, %d categories, %d rules (%d new), %d discounts (%d new), %d orders (%d new)\n",
		len(demoVendors), len(demoCategories),
		len(demoRules), newRules,
		len(demoDiscounts), newDiscounts,
		cfg.Orders, newOrders,
	)
	return nil
}

func seedRules(ctx context.Context, engine ruleSeeder) (int, error) {
	created := 0
	for _, rule := range demoRules {
		_, err := engine.GetRule(ctx, rule.level, rule.targetID)
		if err == nil {
			continue
		}
		if !apperrors.IsCode(err, apperrors.CodeRuleNotFound) {
			return created, err
		}
		_, err = engine.UpsertRule(ctx, domain.UpsertRuleInput{
			Level:      domain.Level(rule.level),
			TargetID:   rule.targetID,
			Percentage: rule.percentage,
			Note:       rule.note,
			ActorID:    seedActor,
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func seedDiscounts(ctx context.Context, engine ruleSeeder) (int, error) {
	existing, err := engine.ListMembershipDiscounts(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, discount := range existing {
		have[discount.MembershipID] = true
	}

	created := 0
	for _, discount := range demoDiscounts {
		if have[discount.membershipID] {
			continue
		}
		_, err := engine.UpsertMembershipDiscount(ctx, domain.UpsertDiscountInput{
			MembershipID: discount.membershipID,
			Percentage:   discount.percentage,
			Note:         discount.note,
			ActorID:      seedActor,
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func seedCatalog(ctx context.Context, orders orderSeeder) error {
	for _, vendor := range demoVendors {
		if err := orders.PutVendor(ctx, storage.VendorRecord{ID: vendor.id, Name: vendor.name}); err != nil {
			return fmt.Errorf("put vendor %s: %w", vendor.id, err)
		}
	}
	for _, category := range demoCategories {
		if err := orders.PutCategory(ctx, storage.CategoryRecord{ID: category.id, Name: category.name}); err != nil {
			return fmt.Errorf("put category %s: %w", category.id, err)
		}
	}
	return nil
}

func seedOrders(ctx context.Context, cfg Config, orders orderSeeder) (int, error) {
	if cfg.Orders == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, cfg.Orders)
	for i := 1; i <= cfg.Orders; i++ {
		ids = append(ids, int64(i))
	}
	existing, err := orders.ListLineItemsByOrderIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	have := make(map[int64]bool, len(existing))
	for _, item := range existing {
		have[item.OrderID] = true
	}

	seedVal := cfg.Seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal))
	now := time.Now().UTC().Truncate(time.Hour)

	created := 0
	for _, id := range ids {
		// Generate before the existence check so a fixed -seed yields the
		// same orders no matter which ids are already present.
		order, items := generateOrder(rng, id, now)
		if have[id] {
			continue
		}
		if err := orders.PutOrder(ctx, order, items); err != nil {
			return created, fmt.Errorf("put order %d: %w", id, err)
		}
		created++
	}
	return created, nil
}
