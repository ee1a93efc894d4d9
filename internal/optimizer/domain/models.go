package domain

import (
	"strings"
)

// Status classifies mailbox fill level.
type Status string

const (
	StatusActive   Status = "Active"
	StatusWarning  Status = "Warning"
	StatusCritical Status = "Critical"
)

// StatusFromUsage derives the mailbox status: above 90% is critical, above
// 70% a warning.
func StatusFromUsage(usageGB, maxGB float64) Status {
	if maxGB <= 0 {
		return StatusActive
	}
	ratio := usageGB / maxGB
	switch {
	case ratio > 0.9:
		return StatusCritical
	case ratio > 0.7:
		return StatusWarning
	default:
		return StatusActive
	}
}

// UserRecord is one employee's licensing state. Licenses may hold SKU part
// numbers, display names or raw export labels.
type UserRecord struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	UPN         string   `json:"upn"`
	Department  string   `json:"department"`
	Licenses    []string `json:"licenses"`
	UsageGB     float64  `json:"usage_gb"`
	MaxGB       float64  `json:"max_gb"`
	Cost        float64  `json:"cost"`
	Status      Status   `json:"status"`
}

// NoMailboxData is the usage ratio reported when the quota is unknown.
const NoMailboxData = -1.0

// UsageRatio returns mailbox usage as a percentage of quota, or NoMailboxData
// when the quota is zero.
func (u UserRecord) UsageRatio() float64 {
	if u.MaxGB <= 0 {
		return NoMailboxData
	}
	return u.UsageGB / u.MaxGB * 100
}

// ReasonKind tags a justification with the direction of the change.
type ReasonKind string

const (
	ReasonUpgrade    ReasonKind = "upgrade"
	ReasonDowngrade  ReasonKind = "downgrade"
	ReasonCleanup    ReasonKind = "cleanup"
	ReasonRedundancy ReasonKind = "redundancy"
)

// Reduces reports whether the reason removes or shrinks a license.
func (k ReasonKind) Reduces() bool {
	switch k {
	case ReasonDowngrade, ReasonCleanup, ReasonRedundancy:
		return true
	default:
		return false
	}
}

// Reason is one human-readable justification for a license change.
type Reason struct {
	Kind ReasonKind `json:"kind"`
	Rule RuleName   `json:"rule"`
	Text string     `json:"text"`
}

func (r Reason) String() string {
	return r.Text
}

// AnalysisResult is the recommendation for one user.
type AnalysisResult struct {
	Licenses []string `json:"licenses"`
	Cost     float64  `json:"cost"`
	Reasons  []Reason `json:"reasons"`
}

// AnalyzedUser is a user record with its licenses and cost replaced by the
// recommendation.
type AnalyzedUser struct {
	UserRecord
	Reasons          []Reason `json:"reasons"`
	OriginalLicenses []string `json:"original_licenses"`
	OriginalCost     float64  `json:"original_cost"`
	Changed          bool     `json:"changed"`
}

// StrategyStats aggregates one strategy over a roster.
type StrategyStats struct {
	Strategy       Strategy `json:"strategy"`
	BaseCost       float64  `json:"base_cost"`
	NewCost        float64  `json:"new_cost"`
	Delta          float64  `json:"delta"`
	AffectedCount  int      `json:"affected_count"`
	UpgradeCount   int      `json:"upgrade_count"`
	DowngradeCount int      `json:"downgrade_count"`
}

// Commitment is the billing term used when presenting totals.
type Commitment string

const (
	CommitmentMonthly Commitment = "monthly"
	CommitmentAnnual  Commitment = "annual"
)

func ParseCommitment(raw string) (Commitment, error) {
	switch Commitment(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CommitmentMonthly:
		return CommitmentMonthly, nil
	case CommitmentAnnual:
		return CommitmentAnnual, nil
	default:
		return "", ErrInvalidCommitment
	}
}

// Label is the human-readable commitment name.
func (c Commitment) Label() string {
	if c == CommitmentAnnual {
		return "Annual"
	}
	return "Monthly"
}

// Total converts a monthly amount to the commitment period.
func (c Commitment) Total(monthly float64) float64 {
	if c == CommitmentAnnual {
		return monthly * 12
	}
	return monthly
}
