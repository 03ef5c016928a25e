// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail relays contact form messages to the site operator over SMTP.
// Messages are persisted first and delivered asynchronously with retries.
package mail

import (
	"fmt"
	"strings"

	"github.com/mileusna/useragent"

	"github.com/olegiv/folio-go/internal/store"
)

// Message is a plain text mail.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// ComposeContact builds the mail the operator receives for a contact
// submission. The operator mailbox is both sender and recipient; replies
// go to the visitor.
func ComposeContact(c store.Contact, operator string) Message {
	var b strings.Builder
	b.WriteString(c.Message)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sent from: %s\n", c.Name)
	fmt.Fprintf(&b, "Email address: %s\n", c.Email)
	if browser := BrowserSummary(c.UserAgent); browser != "" {
		fmt.Fprintf(&b, "Browser: %s\n", browser)
	}
	fmt.Fprintf(&b, "Reference: %s\n", c.Reference)

	return Message{
		From:    operator,
		To:      operator,
		ReplyTo: c.Email,
		Subject: c.Subject,
		Body:    b.String(),
	}
}

// BrowserSummary turns a User-Agent header into e.g. "Firefox 120.0 on Linux (desktop)".
func BrowserSummary(ua string) string {
	if strings.TrimSpace(ua) == "" {
		return ""
	}
	parsed := useragent.Parse(ua)
	if parsed.Name == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(parsed.Name)
	if parsed.Version != "" {
		b.WriteString(" " + parsed.Version)
	}
	if parsed.OS != "" {
		b.WriteString(" on " + parsed.OS)
	}
	switch {
	case parsed.Bot:
		b.WriteString(" (bot)")
	case parsed.Mobile:
		b.WriteString(" (mobile)")
	case parsed.Tablet:
		b.WriteString(" (tablet)")
	case parsed.Desktop:
		b.WriteString(" (desktop)")
	}
	return b.String()
}
