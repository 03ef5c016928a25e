// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"html"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Project bodies are Markdown that may embed HTML from a rich text editor.
// Raw HTML passes through goldmark and is then sanitised as user content.
var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	bodyPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// RenderBody converts a project body into safe HTML.
func RenderBody(body string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return template.HTML(bodyPolicy.Sanitize(html.EscapeString(body))) //nolint:gosec // sanitised
	}
	return template.HTML(bodyPolicy.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitised
}

// Excerpt returns at most n runes of the body as plain text.
func Excerpt(body string, n int) string {
	var buf bytes.Buffer
	text := body
	if err := markdown.Convert([]byte(body), &buf); err == nil {
		text = buf.String()
	}
	text = html.UnescapeString(plainPolicy.Sanitize(text))
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := strings.TrimRight(string(runes[:n]), " ")
	return cut + "…"
}
