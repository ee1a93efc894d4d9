package graph

import (
	"context"
	"strings"

	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/importer"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Roster is a tenant's licensed users with mailbox usage merged in.
type Roster struct {
	Users           []domain.UserRecord
	MailboxReport   bool
	UnknownSKUCount int
}

// Roster fetches licensed users and mailbox usage concurrently and prices
// the result against cat. A failed mailbox report leaves usage empty.
func (c *Client) Roster(ctx context.Context, tenantID string, cat *catalog.Catalog) (Roster, error) {
	var (
		users     []User
		skus      map[string]string
		mailbox   importer.MailboxImport
		mailboxOK bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		skus, err = c.SKUPartNumbers(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = c.LicensedUsers(gctx)
		return err
	})
	g.Go(func() error {
		res, err := c.MailboxUsage(gctx)
		if err != nil {
			c.log.Warn("mailbox usage report unavailable", zap.String("tenant_id", tenantID), zap.Error(err))
			return nil
		}
		mailbox, mailboxOK = res, true
		return nil
	})
	if err := g.Wait(); err != nil {
		return Roster{}, err
	}

	out := Roster{MailboxReport: mailboxOK}
	records := make([]domain.UserRecord, 0, len(users))
	for _, u := range users {
		licenses := make([]string, 0, len(u.AssignedLicenses))
		for _, al := range u.AssignedLicenses {
			part, ok := skus[strings.ToLower(al.SkuID)]
			if !ok || part == "" {
				out.UnknownSKUCount++
				continue
			}
			licenses = append(licenses, part)
		}
		department := strings.TrimSpace(u.Department)
		if department == "" {
			department = importer.DefaultDepartment
		}
		records = append(records, domain.UserRecord{
			ID:          u.ID,
			DisplayName: u.DisplayName,
			UPN:         u.UserPrincipalName,
			Department:  department,
			Licenses:    licenses,
		})
	}
	out.Users = importer.Merge(records, mailbox.Mailboxes, cat)
	return out, nil
}
