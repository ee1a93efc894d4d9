package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/smallbiznis/seatwise/internal/catalog"
	"github.com/smallbiznis/seatwise/internal/optimizer/domain"
)

// DefaultDepartment is assigned to users exported without one.
const DefaultDepartment = "Unassigned"

// UserImport is a parsed "Active users" export.
type UserImport struct {
	Users    []domain.UserRecord `json:"users"`
	Warnings []Warning           `json:"warnings"`
	Encoding string              `json:"encoding"`
}

// ParseUsers reads an admin center active users CSV. Rows without a UPN or
// without any license are skipped with a warning.
func ParseUsers(r io.Reader) (UserImport, error) {
	t, err := readTable(r)
	if err != nil {
		return UserImport{}, err
	}

	upnCol, err := t.require("user principal name", "userprincipalname", "upn", "email", "mail", "emailaddress")
	if err != nil {
		return UserImport{}, err
	}
	licCol, err := t.require("licenses", "licenses", "assignedlicenses", "license", "skus")
	if err != nil {
		return UserImport{}, err
	}
	nameCol, _ := t.column("displayname", "name", "fullname")
	deptCol, _ := t.column("department", "dept")
	idCol, _ := t.column("objectid", "id", "userid")

	out := UserImport{Encoding: t.encoding, Users: []domain.UserRecord{}, Warnings: t.warnings}
	seen := map[string]bool{}
	for i, row := range t.rows {
		rowNum := t.rowNums[i]
		upn := cell(row, upnCol)
		if upn == "" {
			out.Warnings = append(out.Warnings, Warning{Row: rowNum, Message: "missing user principal name"})
			continue
		}
		key := strings.ToLower(upn)
		if seen[key] {
			out.Warnings = append(out.Warnings, Warning{Row: rowNum, Message: fmt.Sprintf("duplicate user %s", upn)})
			continue
		}

		licenses := SplitLicenses(cell(row, licCol))
		if len(licenses) == 0 {
			out.Warnings = append(out.Warnings, Warning{Row: rowNum, Message: fmt.Sprintf("%s has no licenses", upn)})
			continue
		}
		seen[key] = true

		id := cell(row, idCol)
		if id == "" {
			id = key
		}
		name := cell(row, nameCol)
		if name == "" {
			name = upn
		}
		dept := cell(row, deptCol)
		if dept == "" {
			dept = DefaultDepartment
		}

		out.Users = append(out.Users, domain.UserRecord{
			ID:          id,
			DisplayName: name,
			UPN:         upn,
			Department:  dept,
			Licenses:    licenses,
			Status:      domain.StatusActive,
		})
	}
	return out, nil
}

// compoundNames maps folded catalog names that contain '+' themselves, such
// as "Enterprise Mobility + Security E3", to their display name.
var compoundNames = func() map[string]string {
	out := map[string]string{}
	for _, e := range catalog.Default().Entries() {
		if strings.Contains(e.DisplayName, "+") {
			out[foldCompound(strings.Split(e.DisplayName, "+"))] = e.DisplayName
		}
	}
	return out
}()

func foldCompound(pieces []string) string {
	trimmed := make([]string, len(pieces))
	for i, p := range pieces {
		trimmed[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(trimmed, "+")
}

// SplitLicenses splits an export license cell on '+', ';' or ','. Runs of
// '+' pieces that spell a catalog name containing '+' are kept whole.
func SplitLicenses(value string) []string {
	segments := strings.FieldsFunc(value, func(r rune) bool {
		return r == ';' || r == ','
	})
	out := []string{}
	for _, seg := range segments {
		pieces := strings.Split(seg, "+")
		for i := 0; i < len(pieces); {
			name, n := compound(pieces[i:])
			i += n
			if name == "" || strings.EqualFold(name, "unlicensed") {
				continue
			}
			out = append(out, name)
		}
	}
	return out
}

// compound returns the longest compound catalog name spelled by the leading
// pieces and how many pieces it used. Without a match it returns the first
// piece.
func compound(pieces []string) (string, int) {
	for n := len(pieces); n > 1; n-- {
		if name, ok := compoundNames[foldCompound(pieces[:n])]; ok {
			return name, n
		}
	}
	return strings.TrimSpace(pieces[0]), 1
}
