package config

import (
	"os"
	"strconv"

	"github.com/rebeliceyang/lazysearch/internal/models"
)

// ApplyPGEnvironment overlays the libpq environment variables (PGHOST,
// PGPORT, PGDATABASE, PGUSER, PGPASSWORD, PGSSLMODE) on base. Unset
// variables keep the base value.
func ApplyPGEnvironment(base models.ConnectionConfig) models.ConnectionConfig {
	if host := os.Getenv("PGHOST"); host != "" {
		base.Host = host
	}
	if portStr := os.Getenv("PGPORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil && p > 0 && p <= 65535 {
			base.Port = p
		}
	}
	if user := os.Getenv("PGUSER"); user != "" {
		base.User = user
	}
	if database := os.Getenv("PGDATABASE"); database != "" {
		base.Database = database
	}
	if password := os.Getenv("PGPASSWORD"); password != "" {
		base.Password = password
	}
	if sslMode := os.Getenv("PGSSLMODE"); sslMode != "" {
		base.SSLMode = sslMode
	}
	return base
}
