package appfs

import "embed"

// FS holds the SQL migrations and the email templates.
//go:embed migrations/*.sql assets/templates/email/*
var FS embed.FS
