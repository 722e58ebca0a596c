package controller

import (
	"fmt"
	"net/url"
	"strings"
)

// MailStrategy selects what the mail button does.
type MailStrategy int

const (
	// EmbedModal swaps the content modal for a modal framing the webmail site.
	EmbedModal MailStrategy = iota
	// MailtoLink opens a prefilled mailto: link in a new tab.
	MailtoLink
	// NewTabLink opens the webmail site in a new tab.
	NewTabLink
)

func (m MailStrategy) String() string {
	switch m {
	case EmbedModal:
		return "embed"
	case MailtoLink:
		return "mailto"
	case NewTabLink:
		return "newtab"
	default:
		return fmt.Sprintf("MailStrategy(%d)", int(m))
	}
}

// ParseMailStrategy accepts the String forms, case-insensitively.
func ParseMailStrategy(s string) (MailStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "embed":
		return EmbedModal, nil
	case "mailto":
		return MailtoLink, nil
	case "newtab", "tab":
		return NewTabLink, nil
	default:
		return 0, fmt.Errorf("controller: unknown mail strategy %q", s)
	}
}

// MailConfig holds the mail action settings.
type MailConfig struct {
	Strategy   MailStrategy
	WebmailURL string
	Mailto     Mailto
}

// Mailto is a prefilled message.
type Mailto struct {
	To      string
	Subject string
	CC      string
	Body    string
}

// URL renders an RFC 6068 mailto URI.
func (m Mailto) URL() string {
	var params []string
	add := func(key, val string) {
		if val == "" {
			return
		}
		params = append(params, key+"="+mailtoEscape(val))
	}
	add("subject", m.Subject)
	add("cc", m.CC)
	add("body", m.Body)

	out := "mailto:" + url.PathEscape(m.To)
	if len(params) > 0 {
		out += "?" + strings.Join(params, "&")
	}
	return out
}

func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
