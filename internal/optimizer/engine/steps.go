package engine

import (
	"fmt"

	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// userContext is the read-only input shared by every step for one user.
type userContext struct {
	department string
	ratio      float64
	rules      domain.RuleSet
	catalog    *catalog.Catalog
}

func (u userContext) underutilized(threshold float64) bool {
	return u.ratio != domain.NoMailboxData && u.ratio >= 0 && u.ratio < threshold
}

func (u userContext) cost(name string) float64 {
	return u.catalog.Cost(name)
}

// step transforms the working set. It must not retain or mutate its input.
type step func(licenseSet, userContext) (licenseSet, []domain.Reason)

// pipeline is the canonical rule order.
var pipeline = []step{
	upgradeUnderprovisioned,
	upgradeBasicToStandard,
	upgradeToTopTier,
	upgradeToPremium,
	downgradeTopTier,
	downgradeMidTier,
	downgradeBundles,
	removeUnusedAddons,
	removeRedundantAddons,
	consolidateOverlap,
	addCopilotForPowerUsers,
}

func upgradeUnderprovisioned(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	return usageUpgrade(set, u, u.rules.UpgradeUnderprovisioned, domain.RuleUpgradeUnderprovisioned, underprovisionedMoves)
}

func upgradeBasicToStandard(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	return usageUpgrade(set, u, u.rules.UpgradeBasicToStandard, domain.RuleUpgradeBasicToStandard, basicToStandardMoves)
}

func usageUpgrade(set licenseSet, u userContext, rule domain.ScopedRule, name domain.RuleName, moves []tierMove) (licenseSet, []domain.Reason) {
	if !rule.Applies(u.department) || u.ratio <= upgradeTrigger {
		return set, nil
	}
	return applyMoves(set, moves, func(m tierMove) domain.Reason {
		return domain.Reason{
			Kind: domain.ReasonUpgrade,
			Rule: name,
			Text: fmt.Sprintf("Upgraded %s to %s: mailbox at %s of quota exceeds the %s upgrade trigger; adds %s (%s/mo)",
				m.from, m.to, percent(u.ratio), percent(upgradeTrigger), m.detail, signedMoney(u.cost(m.to)-u.cost(m.from))),
		}
	})
}

func upgradeToTopTier(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	return scopedUpgrade(set, u, u.rules.UpgradeToTopTier, domain.RuleUpgradeToTopTier, topTierMoves)
}

func upgradeToPremium(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	return scopedUpgrade(set, u, u.rules.UpgradeToPremium, domain.RuleUpgradeToPremium, premiumMoves)
}

func scopedUpgrade(set licenseSet, u userContext, rule domain.ScopedRule, name domain.RuleName, moves []tierMove) (licenseSet, []domain.Reason) {
	if !rule.Applies(u.department) {
		return set, nil
	}
	return applyMoves(set, moves, func(m tierMove) domain.Reason {
		return domain.Reason{
			Kind: domain.ReasonUpgrade,
			Rule: name,
			Text: fmt.Sprintf("Upgraded %s to %s for %s: adds %s (%s/mo)",
				m.from, m.to, departmentLabel(u.department), m.detail, signedMoney(u.cost(m.to)-u.cost(m.from))),
		}
	})
}

func downgradeTopTier(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	return usageDowngrade(set, u, u.rules.DowngradeTopTier, domain.RuleDowngradeTopTier, topTierDowngrades)
}

func downgradeMidTier(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	return usageDowngrade(set, u, u.rules.DowngradeMidTier, domain.RuleDowngradeMidTier, midTierDowngrades)
}

// downgradeBundles steps business bundles down, premium first, so a user can
// drop two rungs when both rules are enabled.
func downgradeBundles(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	set, premium := usageDowngrade(set, u, u.rules.DowngradePremium, domain.RuleDowngradePremium, premiumDowngrades)
	set, standard := usageDowngrade(set, u, u.rules.DowngradeStandardToBasic, domain.RuleDowngradeStandardToBasic, standardToBasicDowngrades)
	return set, append(premium, standard...)
}

func usageDowngrade(set licenseSet, u userContext, rule domain.ScopedRule, name domain.RuleName, moves []tierMove) (licenseSet, []domain.Reason) {
	if !rule.Applies(u.department) || domain.IsSecurityDepartment(u.department) {
		return set, nil
	}
	threshold := rule.EffectiveThreshold(u.rules.UsageThreshold)
	if !u.underutilized(threshold) {
		return set, nil
	}
	return applyMoves(set, moves, func(m tierMove) domain.Reason {
		return domain.Reason{
			Kind: domain.ReasonDowngrade,
			Rule: name,
			Text: fmt.Sprintf("Downgraded %s to %s: mailbox at %s of quota is below the %s threshold; %s unused (%s/mo)",
				m.from, m.to, percent(u.ratio), percent(threshold), m.detail, signedMoney(u.cost(m.to)-u.cost(m.from))),
		}
	})
}

func applyMoves(set licenseSet, moves []tierMove, reason func(tierMove) domain.Reason) (licenseSet, []domain.Reason) {
	var reasons []domain.Reason
	for _, m := range moves {
		if !set.has(m.from) {
			continue
		}
		set = set.replace(m.from, m.to)
		reasons = append(reasons, reason(m))
	}
	return set, reasons
}

func removeUnusedAddons(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	if !u.rules.RemoveUnusedAddons.IsEnabled() {
		return set, nil
	}

	var reasons []domain.Reason
	if !domain.DepartmentIn(u.department, diagramDepartments) {
		for _, addon := range diagramAddons {
			if !set.has(addon) {
				continue
			}
			set = set.without(addon)
			reasons = append(reasons, domain.Reason{
				Kind: domain.ReasonCleanup,
				Rule: domain.RuleRemoveUnusedAddons,
				Text: fmt.Sprintf("Removed %s (%s/mo): diagramming is not part of %s's work", addon, money(u.cost(addon)), departmentLabel(u.department)),
			})
		}
	}

	lowActivity := u.underutilized(u.rules.UsageThreshold)
	if lowActivity && !domain.DepartmentIn(u.department, projectDepartments) {
		for _, addon := range projectAddons {
			if !set.has(addon) {
				continue
			}
			set = set.without(addon)
			reasons = append(reasons, domain.Reason{
				Kind: domain.ReasonCleanup,
				Rule: domain.RuleRemoveUnusedAddons,
				Text: fmt.Sprintf("Removed %s (%s/mo): low activity (%s mailbox utilization) outside project management teams", addon, money(u.cost(addon)), percent(u.ratio)),
			})
		}
	}
	if lowActivity && domain.DepartmentIn(u.department, projectDepartments) && set.has(catalog.ProjectPlan5) {
		set = set.replace(catalog.ProjectPlan5, catalog.ProjectPlan3)
		reasons = append(reasons, domain.Reason{
			Kind: domain.ReasonDowngrade,
			Rule: domain.RuleRemoveUnusedAddons,
			Text: fmt.Sprintf("Downgraded %s to %s: portfolio features unused at %s activity (%s/mo)",
				catalog.ProjectPlan5, catalog.ProjectPlan3, percent(u.ratio), signedMoney(u.cost(catalog.ProjectPlan3)-u.cost(catalog.ProjectPlan5))),
		})
	}

	if set.has(catalog.PowerBIPPU) && !domain.DepartmentIn(u.department, analyticsDepartments) {
		set = set.replace(catalog.PowerBIPPU, catalog.PowerBIPro)
		reasons = append(reasons, domain.Reason{
			Kind: domain.ReasonDowngrade,
			Rule: domain.RuleRemoveUnusedAddons,
			Text: fmt.Sprintf("Downgraded %s to %s: premium capacity features are only needed by analytics teams (%s/mo)",
				catalog.PowerBIPPU, catalog.PowerBIPro, signedMoney(u.cost(catalog.PowerBIPro)-u.cost(catalog.PowerBIPPU))),
		})
	}

	return set, reasons
}

func removeRedundantAddons(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	if !u.rules.RemoveRedundantAddons.IsEnabled() {
		return set, nil
	}
	return stripCovered(set, redundantAddons, func(addon, coverer string) domain.Reason {
		return domain.Reason{
			Kind: domain.ReasonRedundancy,
			Rule: domain.RuleRemoveRedundantAddons,
			Text: fmt.Sprintf("Removed %s (%s/mo): already included in %s", addon, money(u.cost(addon)), coverer),
		}
	})
}

func consolidateOverlap(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	if !u.rules.ConsolidateOverlap.IsEnabled() {
		return set, nil
	}

	set, reasons := stripCovered(set, overlappingServices, func(service, suite string) domain.Reason {
		return domain.Reason{
			Kind: domain.ReasonRedundancy,
			Rule: domain.RuleConsolidateOverlap,
			Text: fmt.Sprintf("Removed %s (%s/mo): service already provided by %s", service, money(u.cost(service)), suite),
		}
	})

	if paid, ok := paidSuite(set, u.catalog); ok {
		var trials []string
		for _, name := range set.items {
			if info := u.catalog.Resolve(name); info.Known && info.Trial {
				trials = append(trials, name)
			}
		}
		for _, name := range trials {
			set = set.without(name)
			reasons = append(reasons, domain.Reason{
				Kind: domain.ReasonCleanup,
				Rule: domain.RuleConsolidateOverlap,
				Text: fmt.Sprintf("Removed %s (free/trial grant): superseded by paid %s", name, paid),
			})
		}
	}

	set, lesser := stripCovered(set, lesserSuites, func(suite, container string) domain.Reason {
		return domain.Reason{
			Kind: domain.ReasonRedundancy,
			Rule: domain.RuleConsolidateOverlap,
			Text: fmt.Sprintf("Removed %s (%s/mo): fully contained in %s", suite, money(u.cost(suite)), container),
		}
	})

	return set, append(reasons, lesser...)
}

func addCopilotForPowerUsers(set licenseSet, u userContext) (licenseSet, []domain.Reason) {
	if !u.rules.AddCopilotForPowerUsers.IsEnabled() {
		return set, nil
	}
	if !domain.DepartmentIn(u.department, powerUserDepartments) || u.ratio <= powerUserTrigger || set.hasAny(aiAssistants...) {
		return set, nil
	}

	assistant := catalog.Microsoft365Copilot
	if domain.DepartmentIn(u.department, []string{"Engineering"}) {
		assistant = catalog.GitHubCopilot
	}
	return set.with(assistant), []domain.Reason{{
		Kind: domain.ReasonUpgrade,
		Rule: domain.RuleAddCopilotForPowerUsers,
		Text: fmt.Sprintf("Added %s (%s/mo): power user at %s mailbox utilization in %s",
			assistant, signedMoney(u.cost(assistant)), percent(u.ratio), departmentLabel(u.department)),
	}}
}

// stripCovered removes every license whose coverage entry names a coverer
// present in the set at the start of the call. Reasons follow table order.
func stripCovered(set licenseSet, table []coverage, reason func(removed, coverer string) domain.Reason) (licenseSet, []domain.Reason) {
	start := set
	var reasons []domain.Reason
	for _, cv := range table {
		if !start.has(cv.addon) {
			continue
		}
		coverer, ok := start.firstOf(cv.coverers)
		if !ok {
			continue
		}
		set = set.without(cv.addon)
		reasons = append(reasons, reason(cv.addon, coverer))
	}
	return set, reasons
}

var lesserSuites = invert(containedSuites)

// invert turns "container contains lesser suites" into "lesser suite is
// covered by containers", keeping first-seen order.
func invert(table []coverage) []coverage {
	var out []coverage
	index := map[string]int{}
	for _, cv := range table {
		for _, lesser := range cv.coverers {
			i, ok := index[lesser]
			if !ok {
				i = len(out)
				index[lesser] = i
				out = append(out, coverage{addon: lesser})
			}
			out[i].coverers = append(out[i].coverers, cv.addon)
		}
	}
	return out
}

func paidSuite(set licenseSet, cat *catalog.Catalog) (string, bool) {
	for _, name := range set.items {
		info := cat.Resolve(name)
		if info.IsSuite && info.CostPerMonth > 0 {
			return name, true
		}
	}
	return "", false
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func signedMoney(v float64) string {
	if v < 0 {
		return "-" + money(-v)
	}
	return "+" + money(v)
}

func departmentLabel(dept string) string {
	if dept == "" {
		return "an unassigned department"
	}
	return dept
}
