package commands

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
)

// maskDatabaseURL hides credentials in a connection URL for log output
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("***", "***")
	return u.String()
}

// describeDatabase returns a short human-readable connection description
func describeDatabase(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "not connected"
	}

	var dbName string
	if err := db.QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return "connected (unknown database)"
	}

	// inet_server_addr() is NULL over unix-socket connections
	var host sql.NullString
	err := db.QueryRowContext(ctx, "SELECT inet_server_addr()::text").Scan(&host)
	if err != nil || !host.Valid {
		return fmt.Sprintf("connected to %s", dbName)
	}

	return fmt.Sprintf("connected to %s on %s", dbName, host.String)
}
