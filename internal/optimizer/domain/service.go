package domain

import "context"

type AnalyzeRequest struct {
	Users    []UserRecord `json:"users"`
	Strategy Strategy     `json:"strategy"`
	RuleSet  *RuleSet     `json:"rule_set,omitempty"`
}

type AnalyzeResponse struct {
	Users []AnalyzedUser `json:"users"`
	Stats StrategyStats  `json:"stats"`
}

type CompareRequest struct {
	Users         []UserRecord `json:"users"`
	CustomRuleSet *RuleSet     `json:"custom_rule_set,omitempty"`
}

type Service interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error)
	Compare(ctx context.Context, req CompareRequest) ([]StrategyStats, error)
	RuleSet(strategy Strategy) (RuleSet, error)
}
