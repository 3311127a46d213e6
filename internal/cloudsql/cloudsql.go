// Package cloudsql resolves the PostgreSQL connection string from the
// environment, supporting both a direct DATABASE_URL and the Unix-socket
// layout Cloud Run uses for Cloud SQL instances.
package cloudsql

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// socketDir is where Cloud Run mounts Cloud SQL instance sockets.
const socketDir = "/cloudsql"

// ResolveDSN returns the connection string for the advice-history database.
//
// DATABASE_URL wins when set. Otherwise INSTANCE_CONNECTION_NAME
// (project:region:instance) together with DB_USER and DB_NAME selects a
// Cloud SQL Unix-socket connection; DB_PASSWORD is optional for IAM auth.
func ResolveDSN() (string, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}

	instance := os.Getenv("INSTANCE_CONNECTION_NAME")
	if instance == "" {
		return "", fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")
	}

	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if user == "" || name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	pairs := []string{
		"host=" + socketDir + "/" + instance,
		"user=" + user,
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		pairs = append(pairs, "password="+password)
	}
	pairs = append(pairs, "dbname="+name, "sslmode=disable")

	return strings.Join(pairs, " "), nil
}

// Describe reports the active connection configuration with credentials
// redacted, for startup logging.
func Describe() map[string]string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return map[string]string{
			"connection_type": "direct",
			"database_url":    Redact(dsn),
		}
	}

	if instance := os.Getenv("INSTANCE_CONNECTION_NAME"); instance != "" {
		return map[string]string{
			"connection_type": "cloud_sql",
			"instance":        instance,
			"user":            os.Getenv("DB_USER"),
			"database":        os.Getenv("DB_NAME"),
			"socket_path":     socketDir + "/" + instance,
		}
	}

	return map[string]string{
		"connection_type": "none",
		"error":           "no database configuration found",
	}
}

// Redact masks the password component of a postgres URL so the string is
// safe to log. Non-URL connection strings are returned unchanged.
func Redact(dsn string) string {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn
	}

	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
		return u.String()
	}
	return dsn
}
