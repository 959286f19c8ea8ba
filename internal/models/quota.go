package models

// QuotaStatus reports a user's consumed free-tier AI actions. It is
// derived by counting rows on every check, never stored.
type QuotaStatus struct {
	AnalysesUsed int  `json:"analyses_used"`
	PlansUsed    int  `json:"plans_used"`
	Total        int  `json:"total"`
	MaxFree      int  `json:"max_free"`
	CanUse       bool `json:"can_use"`
}
