package importer

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultQuotaGB applies when a mailbox row reports storage but no quota.
const DefaultQuotaGB = 50.0

const bytesPerGB = 1024 * 1024 * 1024

// MailboxUsage is one row of the mailbox usage detail report.
type MailboxUsage struct {
	UPN     string  `json:"upn"`
	UsageGB float64 `json:"usage_gb"`
	MaxGB   float64 `json:"max_gb"`
}

// MailboxImport is a parsed mailbox usage report.
type MailboxImport struct {
	Mailboxes []MailboxUsage `json:"mailboxes"`
	Warnings  []Warning      `json:"warnings"`
	Encoding  string         `json:"encoding"`
}

// ParseMailbox reads a mailbox usage detail CSV. Byte counts are converted
// to GB rounded to one decimal.
func ParseMailbox(r io.Reader) (MailboxImport, error) {
	t, err := readTable(r)
	if err != nil {
		return MailboxImport{}, err
	}

	upnCol, err := t.require("user principal name", "userprincipalname", "upn", "email")
	if err != nil {
		return MailboxImport{}, err
	}
	usedCol, err := t.require("storage used (byte)", "storageusedbyte", "storageusedbytes", "storageused")
	if err != nil {
		return MailboxImport{}, err
	}
	quotaCol, hasQuota := t.column("prohibitsendreceivequotabyte", "prohibitsendquotabyte", "issuewarningquotabyte")

	out := MailboxImport{Encoding: t.encoding, Mailboxes: []MailboxUsage{}, Warnings: t.warnings}
	for i, row := range t.rows {
		rowNum := t.rowNums[i]
		upn := cell(row, upnCol)
		if upn == "" {
			out.Warnings = append(out.Warnings, Warning{Row: rowNum, Message: "missing user principal name"})
			continue
		}
		used, err := parseBytes(cell(row, usedCol))
		if err != nil {
			out.Warnings = append(out.Warnings, Warning{Row: rowNum, Message: fmt.Sprintf("%s: invalid storage used: %v", upn, err)})
			continue
		}

		quota := 0.0
		if hasQuota {
			if q, err := parseBytes(cell(row, quotaCol)); err == nil {
				quota = q
			}
		}
		maxGB := BytesToGB(quota)
		if maxGB <= 0 {
			maxGB = DefaultQuotaGB
		}

		out.Mailboxes = append(out.Mailboxes, MailboxUsage{
			UPN:     upn,
			UsageGB: BytesToGB(used),
			MaxGB:   maxGB,
		})
	}
	return out, nil
}

// BytesToGB converts a byte count to GiB rounded to one decimal.
func BytesToGB(b float64) float64 {
	return math.Round(b/bytesPerGB*10) / 10
}

func parseBytes(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %s", v)
	}
	return n, nil
}
