package importer

import (
	"strings"

	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// Merge joins mailbox usage onto users by case-insensitive UPN and prices
// every user from cat. Users without a mailbox row keep zero usage and
// quota, which the optimizer treats as no mailbox data.
func Merge(users []domain.UserRecord, mailboxes []MailboxUsage, cat *catalog.Catalog) []domain.UserRecord {
	if cat == nil {
		cat = catalog.Default()
	}
	byUPN := make(map[string]MailboxUsage, len(mailboxes))
	for _, m := range mailboxes {
		byUPN[strings.ToLower(strings.TrimSpace(m.UPN))] = m
	}

	out := make([]domain.UserRecord, len(users))
	for i, u := range users {
		if m, ok := byUPN[strings.ToLower(strings.TrimSpace(u.UPN))]; ok {
			u.UsageGB = m.UsageGB
			u.MaxGB = m.MaxGB
		}
		u.Licenses = cat.Normalize(u.Licenses)
		u.Cost = cat.ComputeCost(u.Licenses)
		u.Status = domain.StatusFromUsage(u.UsageGB, u.MaxGB)
		out[i] = u
	}
	return out
}
