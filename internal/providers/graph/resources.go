package graph

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/smallbiznis/seatwise/internal/importer"
	"go.uber.org/zap"
)

type Me struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email prefers the mail attribute and falls back to the UPN.
func (m Me) Email() string {
	if m.Mail != "" {
		return m.Mail
	}
	return m.UserPrincipalName
}

type Organization struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type SubscribedSKU struct {
	SkuID         string `json:"skuId"`
	SkuPartNumber string `json:"skuPartNumber"`
	ConsumedUnits int    `json:"consumedUnits"`
	PrepaidUnits  struct {
		Enabled int `json:"enabled"`
	} `json:"prepaidUnits"`
}

type AssignedLicense struct {
	SkuID string `json:"skuId"`
}

type User struct {
	ID                string            `json:"id"`
	DisplayName       string            `json:"displayName"`
	UserPrincipalName string            `json:"userPrincipalName"`
	Department        string            `json:"department"`
	AccountEnabled    bool              `json:"accountEnabled"`
	AssignedLicenses  []AssignedLicense `json:"assignedLicenses"`
}

type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	err := c.getJSON(ctx, c.cfg.BaseURL+"/me?$select=id,displayName,mail,userPrincipalName", &me)
	return me, err
}

// Organization returns the signed-in tenant, or an empty value when the
// directory lists none.
func (c *Client) Organization(ctx context.Context) (Organization, error) {
	var p page[Organization]
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/organization?$select=id,displayName", &p); err != nil {
		return Organization{}, err
	}
	if len(p.Value) == 0 {
		return Organization{}, nil
	}
	return p.Value[0], nil
}

func (c *Client) SubscribedSKUs(ctx context.Context) ([]SubscribedSKU, error) {
	var p page[SubscribedSKU]
	err := c.getJSON(ctx, c.cfg.BaseURL+"/subscribedSkus?$select=skuId,skuPartNumber,prepaidUnits,consumedUnits", &p)
	return p.Value, err
}

// SKUPartNumbers maps skuId to part number for the tenant, served from
// cache when possible.
func (c *Client) SKUPartNumbers(ctx context.Context, tenantID string) (map[string]string, error) {
	if c.skus != nil && tenantID != "" {
		if cached, ok := c.skus.Get(tenantID); ok {
			return cached, nil
		}
	}
	skus, err := c.SubscribedSKUs(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(skus))
	for _, s := range skus {
		out[strings.ToLower(s.SkuID)] = s.SkuPartNumber
	}
	if c.skus != nil && tenantID != "" {
		c.skus.Set(tenantID, out)
	}
	return out, nil
}

// LicensedUsers follows @odata.nextLink and keeps enabled accounts that
// hold at least one license.
func (c *Client) LicensedUsers(ctx context.Context) ([]User, error) {
	q := url.Values{}
	q.Set("$select", "id,displayName,userPrincipalName,department,assignedLicenses,accountEnabled")
	q.Set("$filter", "assignedLicenses/$count ne 0")
	q.Set("$count", "true")
	q.Set("$top", "999")
	next := c.cfg.BaseURL + "/users?" + q.Encode()

	var users []User
	for pages := 0; next != ""; pages++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var p page[User]
		if err := c.getJSON(ctx, next, &p); err != nil {
			return nil, fmt.Errorf("list users page %d: %w", pages+1, err)
		}
		for _, u := range p.Value {
			if u.AccountEnabled && len(u.AssignedLicenses) > 0 {
				users = append(users, u)
			}
		}
		next = p.NextLink
	}
	return users, nil
}

// MailboxUsage downloads the seven day mailbox usage detail report.
func (c *Client) MailboxUsage(ctx context.Context) (importer.MailboxImport, error) {
	body, err := c.get(ctx, c.cfg.BetaURL+"/reports/getMailboxUsageDetail(period='D7')?$format=text/csv", "text/csv")
	if err != nil {
		return importer.MailboxImport{}, err
	}
	defer body.Close()

	res, err := importer.ParseMailbox(body)
	if err != nil {
		return importer.MailboxImport{}, fmt.Errorf("parse mailbox report: %w", err)
	}
	if len(res.Warnings) > 0 {
		c.log.Debug("mailbox report warnings", zap.Int("count", len(res.Warnings)))
	}
	return res, nil
}
