package checkout

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	pkgerrors "github.com/kledje/storefront-backend/pkg/errors"
)

const (
	maxNameLength    = 120
	maxPhoneLength   = 32
	maxAddressLength = 500
	maxNotesLength   = 1000
)

var stripPolicy = bluemonday.StrictPolicy()

// Contact is the delivery information captured at checkout.
type Contact struct {
	Name    string
	Phone   string
	Address string
	Notes   *string
}

// clean strips markup and surrounding whitespace, leaving plain text.
func clean(value string) string {
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(strings.TrimSpace(value))))
}

func normalizeContact(in Contact) (Contact, error) {
	out := Contact{
		Name:    clean(in.Name),
		Phone:   clean(in.Phone),
		Address: clean(in.Address),
	}
	if in.Notes != nil {
		if notes := clean(*in.Notes); notes != "" {
			out.Notes = &notes
		}
	}

	fields := map[string]string{}
	if out.Name == "" {
		fields["name"] = "required"
	} else if utf8.RuneCountInString(out.Name) > maxNameLength {
		fields["name"] = "too long"
	}
	if out.Phone == "" {
		fields["phone"] = "required"
	} else if utf8.RuneCountInString(out.Phone) > maxPhoneLength {
		fields["phone"] = "too long"
	}
	if out.Address == "" {
		fields["address"] = "required"
	} else if utf8.RuneCountInString(out.Address) > maxAddressLength {
		fields["address"] = "too long"
	}
	if out.Notes != nil && utf8.RuneCountInString(*out.Notes) > maxNotesLength {
		fields["notes"] = "too long"
	}
	if len(fields) > 0 {
		return Contact{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact details").WithDetails(fields)
	}
	return out, nil
}
