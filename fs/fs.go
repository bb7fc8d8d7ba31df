// Package appfs embeds the files the binaries ship with: SQL migrations and email templates.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
