package domain

import (
	"fmt"
	"math"
	"strings"
)

// Scope selects which departments a rule applies to.
type Scope string

const (
	ScopeAll                 Scope = "all"
	ScopeSecurityDepartments Scope = "security"
	ScopeCustom              Scope = "custom"
)

// SecurityDepartments are the departments treated as security-sensitive:
// they receive top-tier upgrades and are exempt from top-tier downgrades.
var SecurityDepartments = []string{
	"Security",
	"Information Security",
	"InfoSec",
	"Cybersecurity",
	"Compliance",
	"Legal",
	"Risk",
	"Executive",
}

// IsSecurityDepartment reports whether dept is one of SecurityDepartments.
func IsSecurityDepartment(dept string) bool {
	return DepartmentIn(dept, SecurityDepartments)
}

// DepartmentIn compares department names case-insensitively after trimming.
func DepartmentIn(dept string, list []string) bool {
	dept = strings.TrimSpace(dept)
	if dept == "" {
		return false
	}
	for _, d := range list {
		if strings.EqualFold(dept, strings.TrimSpace(d)) {
			return true
		}
	}
	return false
}

// Rule is either a BooleanRule or a ScopedRule.
type Rule interface {
	IsEnabled() bool
	Toggle() Rule
	isRule()
}

// BooleanRule is an unscoped on/off cleanup rule.
type BooleanRule struct {
	Enabled bool `json:"enabled"`
}

func (r BooleanRule) IsEnabled() bool { return r.Enabled }

func (r BooleanRule) Toggle() Rule { return BooleanRule{Enabled: !r.Enabled} }

func (BooleanRule) isRule() {}

// ScopedRule is an upgrade or downgrade rule limited to a department scope.
// A nil Threshold falls back to the rule set's UsageThreshold.
type ScopedRule struct {
	Enabled     bool     `json:"enabled"`
	Scope       Scope    `json:"scope"`
	Departments []string `json:"departments,omitempty"`
	Threshold   *float64 `json:"threshold,omitempty"`
}

func (r ScopedRule) IsEnabled() bool { return r.Enabled }

func (r ScopedRule) Toggle() Rule {
	r.Enabled = !r.Enabled
	r.Departments = append([]string(nil), r.Departments...)
	return r
}

func (ScopedRule) isRule() {}

// Matches reports whether the rule covers dept. A custom scope with no
// departments matches nobody.
func (r ScopedRule) Matches(dept string) bool {
	switch r.Scope {
	case ScopeAll, "":
		return true
	case ScopeSecurityDepartments:
		return IsSecurityDepartment(dept)
	case ScopeCustom:
		return DepartmentIn(dept, r.Departments)
	default:
		return false
	}
}

// Applies combines the enabled flag with the scope check.
func (r ScopedRule) Applies(dept string) bool {
	return r.Enabled && r.Matches(dept)
}

// EffectiveThreshold returns the rule's own threshold or the global default.
func (r ScopedRule) EffectiveThreshold(global float64) float64 {
	if r.Threshold != nil {
		return *r.Threshold
	}
	return global
}

// Threshold returns a pointer for ScopedRule.Threshold literals.
func Threshold(v float64) *float64 {
	return &v
}

// RuleName identifies a rule inside a RuleSet.
type RuleName string

const (
	RuleUpgradeUnderprovisioned  RuleName = "upgrade_underprovisioned"
	RuleUpgradeBasicToStandard   RuleName = "upgrade_basic_to_standard"
	RuleUpgradeToTopTier         RuleName = "upgrade_to_top_tier"
	RuleUpgradeToPremium         RuleName = "upgrade_to_premium"
	RuleDowngradeTopTier         RuleName = "downgrade_top_tier"
	RuleDowngradeMidTier         RuleName = "downgrade_mid_tier"
	RuleDowngradePremium         RuleName = "downgrade_premium"
	RuleDowngradeStandardToBasic RuleName = "downgrade_standard_to_basic"
	RuleRemoveUnusedAddons       RuleName = "remove_unused_addons"
	RuleRemoveRedundantAddons    RuleName = "remove_redundant_addons"
	RuleConsolidateOverlap       RuleName = "consolidate_overlap"
	RuleAddCopilotForPowerUsers  RuleName = "add_copilot_for_power_users"
)

// RuleSet is the full configuration of one analysis pass.
type RuleSet struct {
	UpgradeUnderprovisioned  ScopedRule `json:"upgrade_underprovisioned"`
	UpgradeBasicToStandard   ScopedRule `json:"upgrade_basic_to_standard"`
	UpgradeToTopTier         ScopedRule `json:"upgrade_to_top_tier"`
	UpgradeToPremium         ScopedRule `json:"upgrade_to_premium"`
	DowngradeTopTier         ScopedRule `json:"downgrade_top_tier"`
	DowngradeMidTier         ScopedRule `json:"downgrade_mid_tier"`
	DowngradePremium         ScopedRule `json:"downgrade_premium"`
	DowngradeStandardToBasic ScopedRule `json:"downgrade_standard_to_basic"`

	RemoveUnusedAddons      BooleanRule `json:"remove_unused_addons"`
	RemoveRedundantAddons   BooleanRule `json:"remove_redundant_addons"`
	ConsolidateOverlap      BooleanRule `json:"consolidate_overlap"`
	AddCopilotForPowerUsers BooleanRule `json:"add_copilot_for_power_users"`

	// UsageThreshold is the default downgrade threshold in percent.
	UsageThreshold float64 `json:"usage_threshold"`
}

// NamedRule pairs a rule with its name for generic iteration.
type NamedRule struct {
	Name RuleName
	Rule Rule
}

// Rules lists every rule in application order.
func (rs RuleSet) Rules() []NamedRule {
	return []NamedRule{
		{RuleUpgradeUnderprovisioned, rs.UpgradeUnderprovisioned},
		{RuleUpgradeBasicToStandard, rs.UpgradeBasicToStandard},
		{RuleUpgradeToTopTier, rs.UpgradeToTopTier},
		{RuleUpgradeToPremium, rs.UpgradeToPremium},
		{RuleDowngradeTopTier, rs.DowngradeTopTier},
		{RuleDowngradeMidTier, rs.DowngradeMidTier},
		{RuleDowngradePremium, rs.DowngradePremium},
		{RuleDowngradeStandardToBasic, rs.DowngradeStandardToBasic},
		{RuleRemoveUnusedAddons, rs.RemoveUnusedAddons},
		{RuleRemoveRedundantAddons, rs.RemoveRedundantAddons},
		{RuleConsolidateOverlap, rs.ConsolidateOverlap},
		{RuleAddCopilotForPowerUsers, rs.AddCopilotForPowerUsers},
	}
}

// Toggle returns a copy of the rule set with the named rule flipped.
func (rs RuleSet) Toggle(name RuleName) (RuleSet, error) {
	switch name {
	case RuleUpgradeUnderprovisioned:
		rs.UpgradeUnderprovisioned = rs.UpgradeUnderprovisioned.Toggle().(ScopedRule)
	case RuleUpgradeBasicToStandard:
		rs.UpgradeBasicToStandard = rs.UpgradeBasicToStandard.Toggle().(ScopedRule)
	case RuleUpgradeToTopTier:
		rs.UpgradeToTopTier = rs.UpgradeToTopTier.Toggle().(ScopedRule)
	case RuleUpgradeToPremium:
		rs.UpgradeToPremium = rs.UpgradeToPremium.Toggle().(ScopedRule)
	case RuleDowngradeTopTier:
		rs.DowngradeTopTier = rs.DowngradeTopTier.Toggle().(ScopedRule)
	case RuleDowngradeMidTier:
		rs.DowngradeMidTier = rs.DowngradeMidTier.Toggle().(ScopedRule)
	case RuleDowngradePremium:
		rs.DowngradePremium = rs.DowngradePremium.Toggle().(ScopedRule)
	case RuleDowngradeStandardToBasic:
		rs.DowngradeStandardToBasic = rs.DowngradeStandardToBasic.Toggle().(ScopedRule)
	case RuleRemoveUnusedAddons:
		rs.RemoveUnusedAddons = rs.RemoveUnusedAddons.Toggle().(BooleanRule)
	case RuleRemoveRedundantAddons:
		rs.RemoveRedundantAddons = rs.RemoveRedundantAddons.Toggle().(BooleanRule)
	case RuleConsolidateOverlap:
		rs.ConsolidateOverlap = rs.ConsolidateOverlap.Toggle().(BooleanRule)
	case RuleAddCopilotForPowerUsers:
		rs.AddCopilotForPowerUsers = rs.AddCopilotForPowerUsers.Toggle().(BooleanRule)
	default:
		return rs, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}
	return rs, nil
}

// Usage threshold bounds for RuleSet.UsageThreshold.
const (
	MinUsageThreshold  = 5
	MaxUsageThreshold  = 50
	UsageThresholdStep = 5
)

// Validate checks a caller-supplied rule set.
func (rs RuleSet) Validate() error {
	t := rs.UsageThreshold
	if t < MinUsageThreshold || t > MaxUsageThreshold || math.Mod(t, UsageThresholdStep) != 0 {
		return fmt.Errorf("%w: usage threshold %.2f", ErrInvalidThreshold, t)
	}

	for _, nr := range rs.Rules() {
		scoped, ok := nr.Rule.(ScopedRule)
		if !ok {
			continue
		}
		switch scoped.Scope {
		case "", ScopeAll, ScopeSecurityDepartments, ScopeCustom:
		default:
			return fmt.Errorf("%w: %s has scope %q", ErrInvalidScope, nr.Name, scoped.Scope)
		}
		if scoped.Threshold != nil && (*scoped.Threshold < 0 || *scoped.Threshold > 100) {
			return fmt.Errorf("%w: %s threshold %.2f", ErrInvalidThreshold, nr.Name, *scoped.Threshold)
		}
	}
	return nil
}

// Strategy names a fixed rule set, the no-op baseline or a custom rule set.
type Strategy string

const (
	StrategyCurrent  Strategy = "current"
	StrategySecurity Strategy = "security"
	StrategyCost     Strategy = "cost"
	StrategyBalanced Strategy = "balanced"
	StrategyCustom   Strategy = "custom"
)

// Strategies lists the named strategies in display order.
var Strategies = []Strategy{
	StrategyCurrent,
	StrategySecurity,
	StrategyCost,
	StrategyBalanced,
	StrategyCustom,
}

func ParseStrategy(raw string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Strategies {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, raw)
}
