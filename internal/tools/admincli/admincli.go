// Package admincli implements the commission-admin command: rate
// resolution, the audited rule and discount lifecycle, bulk commission
// calculation, analytics reports, configuration validation, and audit
// trail queries over the commission engine.
package admincli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ledgerline/commission/internal/commission/app"
	"github.com/ledgerline/commission/internal/commission/domain"
	"github.com/ledgerline/commission/internal/commission/storage/sqlite"
)

const dayFormat = "2006-01-02"

// Config holds commission-admin command configuration.
type Config struct {
	DBPath            string        `env:"COMMISSION_DB_PATH"`
	OrdersDBPath      string        `env:"COMMISSION_ORDERS_DB_PATH"`
	Timeout           time.Duration `env:"COMMISSION_ADMIN_TIMEOUT" envDefault:"1m"`
	HighRateThreshold float64       `env:"COMMISSION_HIGH_RATE_THRESHOLD" envDefault:"50"`

	Resolve        bool
	GetRule        bool
	ListRules      bool
	UpsertRule     bool
	DeleteRule     bool
	ListDiscounts  bool
	UpsertDiscount bool
	DeleteDiscount bool
	Bulk           bool
	Analytics      bool
	Validate       bool
	Audit          bool

	JSONOutput bool
	ActorID    string

	ProductID    string
	VendorID     string
	CategoryID   string
	MembershipID string

	Level      string
	TargetID   string
	Percentage float64
	Note       string

	OrderIDs  string
	BatchSize int

	Start string
	End   string

	Filter string
	Limit  int
}

type envConfig struct {
	DBPath            string        `env:"COMMISSION_DB_PATH"`
	OrdersDBPath      string        `env:"COMMISSION_ORDERS_DB_PATH"`
	Timeout           time.Duration `env:"COMMISSION_ADMIN_TIMEOUT" envDefault:"1m"`
	HighRateThreshold float64       `env:"COMMISSION_HIGH_RATE_THRESHOLD" envDefault:"50"`
}

// ParseConfig parses env defaults and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:            envCfg.DBPath,
		OrdersDBPath:      envCfg.OrdersDBPath,
		Timeout:           envCfg.Timeout,
		HighRateThreshold: envCfg.HighRateThreshold,
		BatchSize:         100,
		Limit:             50,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "commission.db")
	}
	if cfg.OrdersDBPath == "" {
		cfg.OrdersDBPath = filepath.Join("data", "orders.db")
	}

	fs.BoolVar(&cfg.Resolve, "resolve", false, "resolve the effective commission rate for one item context")
	fs.BoolVar(&cfg.GetRule, "get-rule", false, "show the rule stored at -level/-target")
	fs.BoolVar(&cfg.ListRules, "list-rules", false, "list every stored commission rule")
	fs.BoolVar(&cfg.UpsertRule, "upsert-rule", false, "create or update a commission rule (requires -actor)")
	fs.BoolVar(&cfg.DeleteRule, "delete-rule", false, "delete the rule at -level/-target (requires -actor)")
	fs.BoolVar(&cfg.ListDiscounts, "list-discounts", false, "list every stored membership discount")
	fs.BoolVar(&cfg.UpsertDiscount, "upsert-discount", false, "create or update a membership discount (requires -actor)")
	fs.BoolVar(&cfg.DeleteDiscount, "delete-discount", false, "delete the discount for -membership (requires -actor)")
	fs.BoolVar(&cfg.Bulk, "bulk", false, "calculate commissions for -order-ids in chunks of -batch-size")
	fs.BoolVar(&cfg.Analytics, "analytics", false, "aggregate commissions between -start and -end")
	fs.BoolVar(&cfg.Validate, "validate", false, "check the stored configuration for errors and warnings")
	fs.BoolVar(&cfg.Audit, "audit", false, "list audit trail entries matching -filter")

	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.StringVar(&cfg.ActorID, "actor", "", "admin user id recorded in the audit trail")

	fs.StringVar(&cfg.ProductID, "product", "", "product id for -resolve")
	fs.StringVar(&cfg.VendorID, "vendor", "", "vendor id for -resolve and -analytics")
	fs.StringVar(&cfg.CategoryID, "category", "", "category id for -resolve")
	fs.StringVar(&cfg.MembershipID, "membership", "", "membership tier for -resolve and discount modes")

	fs.StringVar(&cfg.Level, "level", "", "rule level: product, vendor, category, or global")
	fs.StringVar(&cfg.TargetID, "target", "", "rule target id (empty for global)")
	fs.Float64Var(&cfg.Percentage, "percentage", 0, "commission or discount percentage (0-100)")
	fs.StringVar(&cfg.Note, "note", "", "optional note stored with the rule or discount")

	fs.StringVar(&cfg.OrderIDs, "order-ids", "", "comma-separated order ids for -bulk")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "chunk size for -bulk (1-1000)")

	fs.StringVar(&cfg.Start, "start", "", "analytics window start (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&cfg.End, "end", "", "analytics window end, exclusive (RFC3339 or YYYY-MM-DD)")

	fs.StringVar(&cfg.Filter, "filter", "", "audit filter expression, e.g. actor_id = \"admin-7\" AND action = \"delete\"")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "max audit entries to return")

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to commission sqlite database (default: COMMISSION_DB_PATH or data/commission.db)")
	fs.StringVar(&cfg.OrdersDBPath, "orders-db-path", cfg.OrdersDBPath, "path to orders sqlite database (default: COMMISSION_ORDERS_DB_PATH or data/orders.db)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type mode string

const (
	modeResolve        mode = "resolve"
	modeGetRule        mode = "get-rule"
	modeListRules      mode = "list-rules"
	modeUpsertRule     mode = "upsert-rule"
	modeDeleteRule     mode = "delete-rule"
	modeListDiscounts  mode = "list-discounts"
	modeUpsertDiscount mode = "upsert-discount"
	modeDeleteDiscount mode = "delete-discount"
	modeBulk           mode = "bulk"
	modeAnalytics      mode = "analytics"
	modeValidate       mode = "validate"
	modeAudit          mode = "audit"
)

func selectMode(cfg Config) (mode, error) {
	var selected []mode
	for _, candidate := range []struct {
		enabled bool
		mode    mode
	}{
		{cfg.Resolve, modeResolve},
		{cfg.GetRule, modeGetRule},
		{cfg.ListRules, modeListRules},
		{cfg.UpsertRule, modeUpsertRule},
		{cfg.DeleteRule, modeDeleteRule},
		{cfg.ListDiscounts, modeListDiscounts},
		{cfg.UpsertDiscount, modeUpsertDiscount},
		{cfg.DeleteDiscount, modeDeleteDiscount},
		{cfg.Bulk, modeBulk},
		{cfg.Analytics, modeAnalytics},
		{cfg.Validate, modeValidate},
		{cfg.Audit, modeAudit},
	} {
		if candidate.enabled {
			selected = append(selected, candidate.mode)
		}
	}
	if len(selected) == 0 {
		return "", errors.New("one mode flag is required: -resolve, -get-rule, -list-rules, -upsert-rule, -delete-rule, -list-discounts, -upsert-discount, -delete-discount, -bulk, -analytics, -validate, or -audit")
	}
	if len(selected) > 1 {
		return "", fmt.Errorf("-%s cannot be combined with -%s", selected[0], selected[1])
	}
	return selected[0], nil
}

func (m mode) mutates() bool {
	switch m {
	case modeUpsertRule, modeDeleteRule, modeUpsertDiscount, modeDeleteDiscount:
		return true
	default:
		return false
	}
}

func (m mode) readsOrders() bool {
	return m == modeBulk || m == modeAnalytics
}

// Run executes the commission-admin command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	selected, err := selectMode(cfg)
	if err != nil {
		return err
	}
	if selected.mutates() && strings.TrimSpace(cfg.ActorID) == "" {
		return errors.New("-actor is required for mutating modes")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
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

	options := app.Options{HighRateThreshold: cfg.HighRateThreshold}
	if !selected.readsOrders() {
		engine := app.New(rules, nil, rules, options)
		return runWithEngine(ctx, selected, cfg, engine, out, errOut)
	}

	orders, err := sqlite.OpenOrders(cfg.OrdersDBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := orders.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close orders store: %v\n", closeErr)
		}
	}()

	engine := app.New(rules, orders, rules, options)
	return runWithEngine(ctx, selected, cfg, engine, out, errOut)
}

// runWithEngine dispatches one mode against an engine. Tests drive it with
// fakes; Run wires the real stores.
func runWithEngine(ctx context.Context, selected mode, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	switch selected {
	case modeResolve:
		return runResolve(ctx, cfg, engine, out, errOut)
	case modeGetRule:
		return runGetRule(ctx, cfg, engine, out, errOut)
	case modeListRules:
		return runListRules(ctx, cfg, engine, out, errOut)
	case modeUpsertRule:
		return runUpsertRule(ctx, cfg, engine, out, errOut)
	case modeDeleteRule:
		return runDeleteRule(ctx, cfg, engine, out)
	case modeListDiscounts:
		return runListDiscounts(ctx, cfg, engine, out, errOut)
	case modeUpsertDiscount:
		return runUpsertDiscount(ctx, cfg, engine, out, errOut)
	case modeDeleteDiscount:
		return runDeleteDiscount(ctx, cfg, engine, out)
	case modeBulk:
		return runBulk(ctx, cfg, engine, out, errOut)
	case modeAnalytics:
		return runAnalytics(ctx, cfg, engine, out, errOut)
	case modeValidate:
		return runValidate(ctx, cfg, engine, out, errOut)
	case modeAudit:
		return runAudit(ctx, cfg, engine, out, errOut)
	default:
		return fmt.Errorf("unknown mode %q", selected)
	}
}

var reportPrinter = message.NewPrinter(language.English)

func formatMoney(amount float64) string {
	return reportPrinter.Sprintf("%.2f", amount)
}

func formatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64)
}

type resolveReport struct {
	ProductID    string  `json:"product_id,omitempty"`
	VendorID     string  `json:"vendor_id,omitempty"`
	CategoryID   string  `json:"category_id,omitempty"`
	MembershipID string  `json:"membership_id,omitempty"`
	Rate         float64 `json:"rate"`
}

func runResolve(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	rate, err := engine.Resolve(ctx, domain.ResolveInput{
		ProductID:    cfg.ProductID,
		VendorID:     cfg.VendorID,
		CategoryID:   cfg.CategoryID,
		MembershipID: cfg.MembershipID,
	})
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		outputJSON(out, errOut, resolveReport{
			ProductID:    cfg.ProductID,
			VendorID:     cfg.VendorID,
			CategoryID:   cfg.CategoryID,
			MembershipID: cfg.MembershipID,
			Rate:         rate,
		})
		return nil
	}
	fmt.Fprintf(out, "Effective commission rate: %s%%\n", formatPercent(rate))
	return nil
}

type ruleReport struct {
	ID         string    `json:"id"`
	Level      string    `json:"level"`
	TargetID   string    `json:"target_id,omitempty"`
	Percentage float64   `json:"percentage"`
	Note       string    `json:"note,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toRuleReport(rule domain.Rule) ruleReport {
	return ruleReport{
		ID:         rule.ID,
		Level:      string(rule.Key.Level),
		TargetID:   rule.Key.TargetID,
		Percentage: rule.Percentage,
		Note:       rule.Note,
		CreatedBy:  rule.CreatedBy,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}

func printRule(out io.Writer, rule domain.Rule) {
	target := rule.Key.TargetID
	if rule.Key.Level == domain.LevelGlobal {
		target = "-"
	}
	fmt.Fprintf(out, "%-8s  %-24s  %6s%%  %s\n", rule.Key.Level, target, formatPercent(rule.Percentage), rule.Note)
}

func runGetRule(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	rule, err := engine.GetRule(ctx, cfg.Level, cfg.TargetID)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		outputJSON(out, errOut, toRuleReport(rule))
		return nil
	}
	printRule(out, rule)
	return nil
}

func runListRules(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	rules, err := engine.ListRules(ctx)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		reports := make([]ruleReport, 0, len(rules))
		for _, rule := range rules {
			reports = append(reports, toRuleReport(rule))
		}
		outputJSON(out, errOut, reports)
		return nil
	}
	if len(rules) == 0 {
		fmt.Fprintln(out, "No commission rules stored")
		return nil
	}
	for _, rule := range rules {
		printRule(out, rule)
	}
	return nil
}

func runUpsertRule(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	rule, err := engine.UpsertRule(ctx, domain.UpsertRuleInput{
		Level:      domain.Level(cfg.Level),
		TargetID:   cfg.TargetID,
		Percentage: cfg.Percentage,
		Note:       cfg.Note,
		ActorID:    cfg.ActorID,
	})
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		outputJSON(out, errOut, toRuleReport(rule))
		return nil
	}
	fmt.Fprintf(out, "Stored %s rule at %s%%\n", describeTarget(rule.Key), formatPercent(rule.Percentage))
	return nil
}

func runDeleteRule(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer) error {
	err := engine.DeleteRule(ctx, domain.DeleteRuleInput{
		Level:    domain.Level(cfg.Level),
		TargetID: cfg.TargetID,
		ActorID:  cfg.ActorID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %s rule\n", describeTarget(domain.Key{Level: domain.Level(cfg.Level), TargetID: cfg.TargetID}))
	return nil
}

func describeTarget(key domain.Key) string {
	if key.Level == domain.LevelGlobal {
		return "global"
	}
	return fmt.Sprintf("%s %s", key.Level, key.TargetID)
}

type discountReport struct {
	ID           string    `json:"id"`
	MembershipID string    `json:"membership_id"`
	Percentage   float64   `json:"percentage"`
	Note         string    `json:"note,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toDiscountReport(discount domain.MembershipDiscount) discountReport {
	return discountReport{
		ID:           discount.ID,
		MembershipID: discount.MembershipID,
		Percentage:   discount.Percentage,
		Note:         discount.Note,
		CreatedBy:    discount.CreatedBy,
		CreatedAt:    discount.CreatedAt,
		UpdatedAt:    discount.UpdatedAt,
	}
}

func runListDiscounts(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	discounts, err := engine.ListMembershipDiscounts(ctx)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		reports := make([]discountReport, 0, len(discounts))
		for _, discount := range discounts {
			reports = append(reports, toDiscountReport(discount))
		}
		outputJSON(out, errOut, reports)
		return nil
	}
	if len(discounts) == 0 {
		fmt.Fprintln(out, "No membership discounts stored")
		return nil
	}
	for _, discount := range discounts {
		fmt.Fprintf(out, "%-16s  %6s%%  %s\n", discount.MembershipID, formatPercent(discount.Percentage), discount.Note)
	}
	return nil
}

func runUpsertDiscount(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	discount, err := engine.UpsertMembershipDiscount(ctx, domain.UpsertDiscountInput{
		MembershipID: cfg.MembershipID,
		Percentage:   cfg.Percentage,
		Note:         cfg.Note,
		ActorID:      cfg.ActorID,
	})
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		outputJSON(out, errOut, toDiscountReport(discount))
		return nil
	}
	fmt.Fprintf(out, "Stored %s membership discount at %s%%\n", discount.MembershipID, formatPercent(discount.Percentage))
	return nil
}

func runDeleteDiscount(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer) error {
	err := engine.DeleteMembershipDiscount(ctx, domain.DeleteDiscountInput{
		MembershipID: cfg.MembershipID,
		ActorID:      cfg.ActorID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %s membership discount\n", cfg.MembershipID)
	return nil
}

type bulkReport struct {
	Processed        int              `json:"processed"`
	Failed           int              `json:"failed"`
	TotalCommission  float64          `json:"total_commission"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	Errors           []bulkErrorEntry `json:"errors,omitempty"`
}

type bulkErrorEntry struct {
	OrderID int64  `json:"order_id"`
	Message string `json:"message"`
}

func runBulk(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	orderIDs, err := parseOrderIDs(cfg.OrderIDs)
	if err != nil {
		return err
	}
	result, err := engine.BulkCalculate(ctx, orderIDs, cfg.BatchSize)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		report := bulkReport{
			Processed:        result.Processed,
			Failed:           result.Failed,
			TotalCommission:  result.TotalCommission,
			ProcessingTimeMs: result.ProcessingTimeMs,
		}
		for _, itemErr := range result.Errors {
			report.Errors = append(report.Errors, bulkErrorEntry{OrderID: itemErr.OrderID, Message: itemErr.Message})
		}
		outputJSON(out, errOut, report)
		return nil
	}
	fmt.Fprintf(out, "Processed: %d\n", result.Processed)
	fmt.Fprintf(out, "Failed: %d\n", result.Failed)
	fmt.Fprintf(out, "Total commission: %s\n", formatMoney(result.TotalCommission))
	fmt.Fprintf(out, "Processing time: %dms\n", result.ProcessingTimeMs)
	for _, itemErr := range result.Errors {
		fmt.Fprintf(errOut, "Error: order %d: %s\n", itemErr.OrderID, itemErr.Message)
	}
	return nil
}

func parseOrderIDs(csv string) ([]int64, error) {
	parts := strings.Split(csv, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid order id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("-order-ids is required")
	}
	return ids, nil
}

type analyticsReport struct {
	TotalCommission       float64          `json:"total_commission"`
	TotalOrders           int              `json:"total_orders"`
	AverageCommissionRate float64          `json:"average_commission_rate"`
	ByVendor              []groupReport    `json:"by_vendor"`
	ByCategory            []groupReport    `json:"by_category"`
	Daily                 []dayGroupReport `json:"daily"`
}

type groupReport struct {
	ID              string  `json:"id"`
	Name            string  `json:"name,omitempty"`
	TotalCommission float64 `json:"total_commission"`
	OrderCount      int     `json:"order_count"`
	AverageRate     float64 `json:"average_rate"`
}

type dayGroupReport struct {
	Day             string  `json:"day"`
	TotalCommission float64 `json:"total_commission"`
	OrderCount      int     `json:"order_count"`
}

func runAnalytics(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	start, err := parseWindowTime(cfg.Start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	end, err := parseWindowTime(cfg.End)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}

	result, err := engine.Analytics(ctx, domain.AnalyticsInput{
		Start:    start,
		End:      end,
		VendorID: cfg.VendorID,
	})
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		outputJSON(out, errOut, toAnalyticsReport(result))
		return nil
	}
	fmt.Fprintf(out, "Total commission: %s\n", formatMoney(result.TotalCommission))
	fmt.Fprintf(out, "Orders: %d\n", result.TotalOrders)
	fmt.Fprintf(out, "Average rate: %s%%\n", formatPercent(result.AverageCommissionRate))
	if len(result.CommissionByVendor) > 0 {
		fmt.Fprintln(out, "By vendor:")
		for _, group := range result.CommissionByVendor {
			printGroup(out, group)
		}
	}
	if len(result.CommissionByCategory) > 0 {
		fmt.Fprintln(out, "By category:")
		for _, group := range result.CommissionByCategory {
			printGroup(out, group)
		}
	}
	if len(result.DailyBreakdown) > 0 {
		fmt.Fprintln(out, "Daily:")
		for _, day := range result.DailyBreakdown {
			fmt.Fprintf(out, "  %s  %s (%d orders)\n", day.Day.Format(dayFormat), formatMoney(day.TotalCommission), day.OrderCount)
		}
	}
	return nil
}

func printGroup(out io.Writer, group domain.GroupStat) {
	label := group.ID
	if group.Name != "" {
		label = fmt.Sprintf("%s (%s)", group.Name, group.ID)
	}
	fmt.Fprintf(out, "  %-32s  %s (%d orders, avg %s%%)\n", label, formatMoney(group.TotalCommission), group.OrderCount, formatPercent(group.AverageRate))
}

func toAnalyticsReport(result domain.AnalyticsResult) analyticsReport {
	report := analyticsReport{
		TotalCommission:       result.TotalCommission,
		TotalOrders:           result.TotalOrders,
		AverageCommissionRate: result.AverageCommissionRate,
		ByVendor:              make([]groupReport, 0, len(result.CommissionByVendor)),
		ByCategory:            make([]groupReport, 0, len(result.CommissionByCategory)),
		Daily:                 make([]dayGroupReport, 0, len(result.DailyBreakdown)),
	}
	for _, group := range result.CommissionByVendor {
		report.ByVendor = append(report.ByVendor, toGroupReport(group))
	}
	for _, group := range result.CommissionByCategory {
		report.ByCategory = append(report.ByCategory, toGroupReport(group))
	}
	for _, day := range result.DailyBreakdown {
		report.Daily = append(report.Daily, dayGroupReport{
			Day:             day.Day.Format(dayFormat),
			TotalCommission: day.TotalCommission,
			OrderCount:      day.OrderCount,
		})
	}
	return report
}

func toGroupReport(group domain.GroupStat) groupReport {
	return groupReport{
		ID:              group.ID,
		Name:            group.Name,
		TotalCommission: group.TotalCommission,
		OrderCount:      group.OrderCount,
		AverageRate:     group.AverageRate,
	}
}

func parseWindowTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("value is required")
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(dayFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC3339 or YYYY-MM-DD, got %q", value)
	}
	return parsed, nil
}

type validateReport struct {
	IsValid bool          `json:"is_valid"`
	Issues  []issueReport `json:"issues"`
}

type issueReport struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Entity   string `json:"entity,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
}

func runValidate(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	result, err := engine.ValidateConfiguration(ctx)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		report := validateReport{IsValid: result.IsValid, Issues: make([]issueReport, 0, len(result.Issues))}
		for _, issue := range result.Issues {
			report.Issues = append(report.Issues, issueReport{
				Severity: string(issue.Severity),
				Message:  issue.Message,
				Entity:   string(issue.Entity),
				EntityID: issue.EntityID,
			})
		}
		outputJSON(out, errOut, report)
	} else {
		if result.IsValid {
			fmt.Fprintln(out, "Configuration valid")
		} else {
			fmt.Fprintln(out, "Configuration INVALID")
		}
		for _, issue := range result.Issues {
			fmt.Fprintf(out, "%s: %s\n", issue.Severity, issue.Message)
		}
	}
	if !result.IsValid {
		return errors.New("configuration is invalid")
	}
	return nil
}

type auditReport struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id,omitempty"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func runAudit(ctx context.Context, cfg Config, engine commissionEngine, out io.Writer, errOut io.Writer) error {
	entries, err := engine.AuditLog(ctx, app.AuditQuery{Filter: cfg.Filter, Limit: cfg.Limit})
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		reports := make([]auditReport, 0, len(entries))
		for _, entry := range entries {
			reports = append(reports, auditReport{
				ID:          entry.ID,
				ActorID:     entry.ActorID,
				Action:      string(entry.Action),
				EntityType:  string(entry.EntityType),
				EntityID:    entry.EntityID,
				Description: entry.Description,
				Timestamp:   entry.Timestamp,
			})
		}
		outputJSON(out, errOut, reports)
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audit entries match")
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintf(out, "%s  %-12s  %-6s  %-19s  %s\n",
			entry.Timestamp.UTC().Format(time.RFC3339),
			entry.ActorID,
			entry.Action,
			entry.EntityType,
			entry.Description,
		)
	}
	return nil
}

func outputJSON(out io.Writer, errOut io.Writer, report any) {
	encoded, err := json.Marshal(report)
	if err != nil {
		fmt.Fprintf(errOut, "Error: encode report: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(encoded))
}
