// Package sanitize strips markup and script vectors from free-form input before it is stored.
// Every function is total: it never fails and always returns a usable value.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/3lprints/storefront/internal/models"
)

const (
	DefaultMaxLength = 1000
	MaxEmailLength   = 254
	MaxPhoneLength   = 20
	MaxURLLength     = 2048
	MaxObjectDepth   = 10
)

var (
	schemePattern  = regexp.MustCompile(`(?i)(javascript|vbscript|data)\s*:`)
	handlerPattern = regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)
	emailDisallow  = regexp.MustCompile(`[^a-z0-9@._+\-]`)
)

// String trims s, removes angle brackets, script-scheme prefixes and inline event handlers,
// and truncates to max runes. max <= 0 means DefaultMaxLength.
func String(s string, max int) string {
	if max <= 0 {
		max = DefaultMaxLength
	}
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = schemePattern.ReplaceAllString(s, "")
	s = handlerPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return truncate(s, max)
}

// Email lower-cases and keeps only characters valid in an address.
func Email(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = emailDisallow.ReplaceAllString(s, "")
	return truncate(s, MaxEmailLength)
}

// Phone keeps digits and a single leading '+'.
func Phone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return truncate(b.String(), MaxPhoneLength)
}

// URL returns the normalised URL when it parses with an http or https scheme, else "".
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > MaxURLLength {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ""
	}
	return truncate(u.String(), MaxURLLength)
}

// Object walks decoded JSON and sanitises every string leaf and key.
// Subtrees nested deeper than MaxObjectDepth are dropped.
func Object(v any) any {
	return object(v, 0)
}

func object(v any, depth int) any {
	switch t := v.(type) {
	case string:
		return String(t, DefaultMaxLength)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			key := String(k, DefaultMaxLength)
			if key == "" {
				continue
			}
			if depth+1 > MaxObjectDepth && isContainer(child) {
				continue
			}
			out[key] = object(child, depth+1)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, child := range t {
			if depth+1 > MaxObjectDepth && isContainer(child) {
				continue
			}
			out = append(out, object(child, depth+1))
		}
		return out
	default:
		return v
	}
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// OrderRequest sanitises every free-text field of an order payload in place.
func OrderRequest(req *models.OrderRequest) {
	if req == nil {
		return
	}
	req.UserEmail = Email(req.UserEmail)
	req.UserName = String(req.UserName, 200)
	req.UserPhone = Phone(req.UserPhone)
	req.PaymentMethod = strings.ToLower(String(req.PaymentMethod, 32))
	req.OrderNotes = String(req.OrderNotes, DefaultMaxLength)

	if a := req.ShippingAddress; a != nil {
		a.FlatNumber = String(a.FlatNumber, 200)
		a.Colony = String(a.Colony, 200)
		a.City = String(a.City, 100)
		a.State = String(a.State, 100)
		a.Pincode = String(a.Pincode, 10)
	}

	for i := range req.Items {
		item := &req.Items[i]
		item.ProductName = String(item.ProductName, 300)
		if item.ProductID != nil {
			id := String(*item.ProductID, 64)
			item.ProductID = &id
		}
		if c := item.Customization; c != nil {
			c.Details = String(c.Details, 5000)
			c.DriveLink = URL(c.DriveLink)
		}
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
