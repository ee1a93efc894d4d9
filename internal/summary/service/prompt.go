package service

import (
	"fmt"
	"sort"
	"strings"

	optdomain "github.com/smallbiznis/seatwise/internal/optimizer/domain"
	reportdomain "github.com/smallbiznis/seatwise/internal/report/domain"
)

// maxPromptUsers bounds the per-user directory listed in the prompt.
const maxPromptUsers = 400

var optionLabels = map[optdomain.Strategy]string{
	optdomain.StrategySecurity: "MAXIMIZE SECURITY",
	optdomain.StrategyCost:     "MINIMIZE COST",
	optdomain.StrategyBalanced: "BALANCED APPROACH",
	optdomain.StrategyCustom:   "CUSTOM STRATEGY",
}

type departmentLine struct {
	name  string
	users int
	cost  float64
}

func buildPrompt(report reportdomain.Report, stats map[optdomain.Strategy]optdomain.StrategyStats) string {
	commitment := report.Commitment
	current := stats[optdomain.StrategyCurrent].NewCost

	var b strings.Builder
	b.WriteString("You are a senior virtual CIO (vCIO) preparing an executive summary for a C-Suite audience about Microsoft 365 licensing optimization. ")
	b.WriteString("Be authoritative, data-driven and persuasive. Executives will challenge every recommendation.\n\n")
	b.WriteString("Here is the data:\n\n")

	fmt.Fprintf(&b, "BILLING BASIS: %s Commitment\n", commitment.Label())
	fmt.Fprintf(&b, "CURRENT MONTHLY SPEND: $%.2f (%s total $%.2f)\n", current, commitment.Label(), commitment.Total(current))

	option := 1
	for _, strategy := range []optdomain.Strategy{
		optdomain.StrategySecurity,
		optdomain.StrategyCost,
		optdomain.StrategyBalanced,
		optdomain.StrategyCustom,
	} {
		s, ok := stats[strategy]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "OPTION %d: %s: $%.2f (%s/mo delta, %d users affected, %d upgrades, %d downgrades)\n",
			option, optionLabels[strategy], s.NewCost, signedAmount(s.NewCost-current),
			s.AffectedCount, s.UpgradeCount, s.DowngradeCount)
		option++
	}

	users := []optdomain.UserRecord(report.Users)

	b.WriteString("\nDEPARTMENT BREAKDOWN:\n")
	for _, d := range departments(users) {
		fmt.Fprintf(&b, "- %s: %d users, $%.2f/mo\n", d.name, d.users, d.cost)
	}

	fmt.Fprintf(&b, "\nUSER DIRECTORY (%d users):\n", len(users))
	for i, u := range users {
		if i == maxPromptUsers {
			fmt.Fprintf(&b, "- ... %d more users omitted\n", len(users)-maxPromptUsers)
			break
		}
		fmt.Fprintf(&b, "- %s (%s): Current licenses: %s; Mailbox: %.1fGB/%.1fGB; Current cost: $%.2f/mo\n",
			displayName(u), u.Department, strings.Join(u.Licenses, ", "), u.UsageGB, u.MaxGB, u.Cost)
	}

	columns := "Current State, Maximize Security, Minimize Cost, Balanced"
	if _, ok := stats[optdomain.StrategyCustom]; ok {
		columns += ", Custom"
	}

	b.WriteString("\nWrite a polished executive summary in Markdown that includes:\n")
	b.WriteString("1. **Executive Overview**: a 2-3 sentence summary of the current licensing posture and why action is needed.\n")
	fmt.Fprintf(&b, "2. **Cost Comparison Table**: compare all options (%s) with monthly cost, annual projected cost, delta vs current and a one-line rationale.\n", columns)
	b.WriteString("3. **Risk Assessment**: key risks per option (security gaps, compliance exposure, productivity impact, budget impact) referencing actual user counts and license tiers.\n")
	b.WriteString("4. **Recommendation**: a decisive recommendation with a clear rationale.\n")
	b.WriteString("5. **Implementation Roadmap**: a phased 30/60/90 day plan for the recommended strategy.\n")
	b.WriteString("6. **Next Steps**: 3-4 concrete action items for leadership.\n\n")
	b.WriteString("Use precise dollar figures. Reference specific license tiers (E1, E3, E5) and their security implications. Do not hedge excessively.")
	return b.String()
}

func signedAmount(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+$%.2f", v)
	}
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return "$0.00"
}

func displayName(u optdomain.UserRecord) string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	return u.UPN
}

// departments groups users by department, largest spend first.
func departments(users []optdomain.UserRecord) []departmentLine {
	index := map[string]int{}
	var out []departmentLine
	for _, u := range users {
		name := strings.TrimSpace(u.Department)
		if name == "" {
			name = "Unassigned"
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, departmentLine{name: name})
		}
		out[i].users++
		out[i].cost += u.Cost
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].cost != out[j].cost {
			return out[i].cost > out[j].cost
		}
		return out[i].name < out[j].name
	})
	return out
}
