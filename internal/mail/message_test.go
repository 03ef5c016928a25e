// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mail

import (
	"strings"
	"testing"

	"github.com/olegiv/folio-go/internal/store"
)

func TestComposeContact(t *testing.T) {
	c := store.Contact{
		Reference: "abc-123",
		Name:      "Ada",
		Email:     "ada@example.com",
		Subject:   "Work",
		Message:   "Let's build something.",
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
	}

	msg := ComposeContact(c, "me@example.com")

	if msg.From != "me@example.com" || msg.To != "me@example.com" {
		t.Errorf("From/To = %q/%q, want operator address", msg.From, msg.To)
	}
	if msg.ReplyTo != "ada@example.com" {
		t.Errorf("ReplyTo = %q", msg.ReplyTo)
	}
	if msg.Subject != "Work" {
		t.Errorf("Subject = %q", msg.Subject)
	}

	for _, want := range []string{
		"Let's build something.\n",
		"Sent from: Ada\n",
		"Email address: ada@example.com\n",
		"Browser: Firefox",
		"Reference: abc-123\n",
	} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if !strings.HasPrefix(msg.Body, c.Message) {
		t.Errorf("body should start with the message, got %q", msg.Body)
	}
}

func TestComposeContactWithoutUserAgent(t *testing.T) {
	msg := ComposeContact(store.Contact{Message: "x", Name: "n", Email: "e@example.com"}, "me@example.com")
	if strings.Contains(msg.Body, "Browser:") {
		t.Errorf("body should omit browser line: %q", msg.Body)
	}
}

func TestBrowserSummary(t *testing.T) {
	if got := BrowserSummary(""); got != "" {
		t.Errorf("BrowserSummary(\"\") = %q", got)
	}
	got := BrowserSummary("Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")
	if !strings.HasPrefix(got, "Firefox 120.0") {
		t.Errorf("BrowserSummary = %q, want Firefox 120.0 prefix", got)
	}
	if !strings.Contains(got, "Linux") {
		t.Errorf("BrowserSummary = %q, want OS", got)
	}
}

func TestBuildMsgRejectsBadAddress(t *testing.T) {
	if _, err := buildMsg(Message{From: "not an address", To: "me@example.com"}); err == nil {
		t.Error("expected error for invalid from address")
	}
	if _, err := buildMsg(Message{From: "me@example.com", To: "me@example.com", ReplyTo: "a@example.com", Subject: "s", Body: "b"}); err != nil {
		t.Errorf("buildMsg: %v", err)
	}
}
