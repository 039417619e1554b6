package csvio

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"bistro/internal/core"
)

var ProfileHeader = []string{"Company Name", "Physical Address", "Phone Number", "Owner Name", "Registration Number", "Company Email"}

// ErrProfileShape means the profile file lacks a six-column data row.
var ErrProfileShape = errors.New("csv structure does not match the profile layout")

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ProfileFilename is <Company_Name>_profile.csv.
func ProfileFilename(p core.CompanyProfile) string {
	return nonAlnum.ReplaceAllString(p.Name, "_") + "_profile.csv"
}

func profileFields(p core.CompanyProfile) []string {
	return []string{p.Name, p.Address, p.Phone, p.Owner, p.RegistrationNumber, p.Email}
}

// WriteProfile writes the header and one row with every value quoted.
func WriteProfile(w io.Writer, p core.CompanyProfile) error {
	return writeQuotedProfile(w, profileFields(p))
}

// WriteProfileTemplate writes a filled-in example profile.
func WriteProfileTemplate(w io.Writer) error {
	return writeQuotedProfile(w, []string{
		"Sunny Side Up Diner",
		"45 Morning Ave, Cape Town, 8001",
		"021 555 1234",
		"Sarah Smith",
		"2023/555555/07",
		"hello@sunnyside.co.za",
	})
}

func writeQuotedProfile(w io.Writer, values []string) error {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n", strings.Join(ProfileHeader, ","), strings.Join(quoted, ","))
	if err != nil {
		return fmt.Errorf("write profile csv: %w", err)
	}
	return nil
}

// ReadProfile reads the first data row of a profile file.
func ReadProfile(r io.Reader) (core.CompanyProfile, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return core.CompanyProfile{}, fmt.Errorf("read profile csv: %w", err)
	}
	lines := splitLines(strings.TrimPrefix(string(b), bom))
	if len(lines) < 2 {
		return core.CompanyProfile{}, ErrNoData
	}
	cols, err := ParseLine(lines[1])
	if err != nil {
		return core.CompanyProfile{}, fmt.Errorf("%w: %v", ErrProfileShape, err)
	}
	if len(cols) < len(ProfileHeader) {
		return core.CompanyProfile{}, ErrProfileShape
	}
	return core.CompanyProfile{
		Name:               cols[0],
		Address:            cols[1],
		Phone:              cols[2],
		Owner:              cols[3],
		RegistrationNumber: cols[4],
		Email:              cols[5],
	}, nil
}
