package connection

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// PgPassEntry represents a line in .pgpass file
type PgPassEntry struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// ParsePgPass reads and parses a .pgpass file. A missing file yields no entries.
func ParsePgPass(path string) ([]PgPassEntry, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []PgPassEntry{}, nil
		}
		return nil, err
	}

	// libpq ignores group or world readable files
	if runtime.GOOS != "windows" && fileInfo.Mode().Perm()&0077 != 0 {
		return nil, fmt.Errorf(".pgpass file has insecure permissions %v, must be 0600", fileInfo.Mode().Perm())
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	var entries []PgPassEntry
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parsePgPassLine(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

// parsePgPassLine parses a single .pgpass line
// Format: hostname:port:database:username:password
// Handles escape sequences: \: and \\
func parsePgPassLine(line string) (PgPassEntry, error) {
	parts := make([]string, 0, 5)
	var current strings.Builder
	escaped := false

	for i := 0; i < len(line); i++ {
		ch := line[i]

		if escaped {
			current.WriteByte(ch)
			escaped = false
		} else if ch == '\\' {
			escaped = true
		} else if ch == ':' {
			parts = append(parts, current.String())
			current.Reset()
		} else {
			current.WriteByte(ch)
		}
	}
	parts = append(parts, current.String())

	if len(parts) != 5 {
		return PgPassEntry{}, fmt.Errorf("expected 5 fields, got %d", len(parts))
	}

	if parts[1] != "*" {
		p, err := strconv.Atoi(parts[1])
		if err != nil || p < 1 || p > 65535 {
			return PgPassEntry{}, fmt.Errorf("invalid port: %s", parts[1])
		}
	}

	return PgPassEntry{
		Host:     parts[0],
		Port:     parts[1],
		Database: parts[2],
		User:     parts[3],
		Password: parts[4],
	}, nil
}

// FindPassword looks up the first matching password in a .pgpass file
func FindPassword(path, host string, port int, database, user string) string {
	entries, err := ParsePgPass(path)
	if err != nil {
		return ""
	}

	for _, entry := range entries {
		if matches(entry.Host, host) &&
			matches(entry.Port, strconv.Itoa(port)) &&
			matches(entry.Database, database) &&
			matches(entry.User, user) {
			return entry.Password
		}
	}

	return ""
}

// matches checks if pattern matches value (* is wildcard)
func matches(pattern, value string) bool {
	return pattern == "*" || pattern == value
}
