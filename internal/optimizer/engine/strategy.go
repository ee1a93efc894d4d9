package engine

import (
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// ResolveRuleSet returns the fixed rule set of a named strategy, or custom
// unchanged for StrategyCustom. Current resolves to a rule set with every
// rule disabled.
func ResolveRuleSet(strategy domain.Strategy, custom *domain.RuleSet) (domain.RuleSet, error) {
	switch strategy {
	case domain.StrategyCurrent:
		return CurrentRuleSet(), nil
	case domain.StrategySecurity:
		return SecurityRuleSet(), nil
	case domain.StrategyCost:
		return CostRuleSet(), nil
	case domain.StrategyBalanced:
		return BalancedRuleSet(), nil
	case domain.StrategyCustom:
		if custom == nil {
			return domain.RuleSet{}, domain.ErrMissingRuleSet
		}
		return *custom, nil
	default:
		return domain.RuleSet{}, domain.ErrInvalidStrategy
	}
}

func on(scope domain.Scope) domain.ScopedRule {
	return domain.ScopedRule{Enabled: true, Scope: scope}
}

func off() domain.ScopedRule {
	return domain.ScopedRule{Scope: domain.ScopeAll}
}

func CurrentRuleSet() domain.RuleSet {
	return domain.RuleSet{
		UpgradeUnderprovisioned:  off(),
		UpgradeBasicToStandard:   off(),
		UpgradeToTopTier:         off(),
		UpgradeToPremium:         off(),
		DowngradeTopTier:         off(),
		DowngradeMidTier:         off(),
		DowngradePremium:         off(),
		DowngradeStandardToBasic: off(),
		UsageThreshold:           20,
	}
}

// DefaultCustomRuleSet is the starting point offered for custom strategies.
func DefaultCustomRuleSet() domain.RuleSet {
	return CurrentRuleSet()
}

func SecurityRuleSet() domain.RuleSet {
	rs := CurrentRuleSet()
	rs.UpgradeUnderprovisioned = on(domain.ScopeAll)
	rs.UpgradeBasicToStandard = on(domain.ScopeAll)
	rs.UpgradeToTopTier = on(domain.ScopeSecurityDepartments)
	rs.UpgradeToPremium = on(domain.ScopeSecurityDepartments)
	rs.RemoveRedundantAddons = domain.BooleanRule{Enabled: true}
	rs.ConsolidateOverlap = domain.BooleanRule{Enabled: true}
	rs.AddCopilotForPowerUsers = domain.BooleanRule{Enabled: true}
	rs.UsageThreshold = 10
	return rs
}

func CostRuleSet() domain.RuleSet {
	rs := CurrentRuleSet()
	rs.DowngradeTopTier = on(domain.ScopeAll)
	rs.DowngradeMidTier = on(domain.ScopeAll)
	rs.DowngradeMidTier.Threshold = domain.Threshold(5)
	rs.DowngradePremium = on(domain.ScopeAll)
	rs.DowngradeStandardToBasic = on(domain.ScopeAll)
	rs.DowngradeStandardToBasic.Threshold = domain.Threshold(5)
	rs.RemoveUnusedAddons = domain.BooleanRule{Enabled: true}
	rs.RemoveRedundantAddons = domain.BooleanRule{Enabled: true}
	rs.ConsolidateOverlap = domain.BooleanRule{Enabled: true}
	rs.UsageThreshold = 30
	return rs
}

func BalancedRuleSet() domain.RuleSet {
	rs := CurrentRuleSet()
	rs.UpgradeUnderprovisioned = on(domain.ScopeAll)
	rs.UpgradeBasicToStandard = on(domain.ScopeAll)
	rs.DowngradeTopTier = on(domain.ScopeAll)
	rs.DowngradePremium = on(domain.ScopeAll)
	rs.RemoveUnusedAddons = domain.BooleanRule{Enabled: true}
	rs.RemoveRedundantAddons = domain.BooleanRule{Enabled: true}
	rs.ConsolidateOverlap = domain.BooleanRule{Enabled: true}
	rs.UsageThreshold = 20
	return rs
}
