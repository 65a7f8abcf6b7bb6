// Package web embeds the dashboard templates and static assets.
package web

import "embed"

// TemplatesFS holds the dashboard page and its HTMX partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and notification script.
//
//go:embed static/*
var StaticFS embed.FS
