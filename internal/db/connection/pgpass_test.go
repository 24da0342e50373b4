package connection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rebeliceyang/lazysearch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePgPass(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".pgpass")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestParsePgPassLineEscapes(t *testing.T) {
	entry, err := parsePgPassLine(`db.local:5432:sales:alice:pa\:ss\\word`)
	require.NoError(t, err)
	assert.Equal(t, "db.local", entry.Host)
	assert.Equal(t, "5432", entry.Port)
	assert.Equal(t, `pa:ss\word`, entry.Password)

	_, err = parsePgPassLine("too:few:fields")
	assert.Error(t, err)

	_, err = parsePgPassLine("h:70000:d:u:p")
	assert.Error(t, err)
}

func TestFindPassword(t *testing.T) {
	path := writePgPass(t, "# comment\n\nother:5432:*:*:nope\n*:*:sales:alice:secret\n*:*:*:*:fallback\n", 0600)

	assert.Equal(t, "secret", FindPassword(path, "db.local", 5433, "sales", "alice"))
	assert.Equal(t, "fallback", FindPassword(path, "db.local", 5432, "hr", "bob"))
	assert.Equal(t, "", FindPassword(filepath.Join(t.TempDir(), "missing"), "h", 5432, "d", "u"))
}

func TestParsePgPassRejectsInsecurePermissions(t *testing.T) {
	path := writePgPass(t, "*:*:*:*:x\n", 0644)
	if info, err := os.Stat(path); err == nil && info.Mode().Perm()&0077 == 0 {
		t.Skip("filesystem does not keep permission bits")
	}
	_, err := ParsePgPass(path)
	assert.Error(t, err)
}

func TestResolvePasswordKeepsExplicitPassword(t *testing.T) {
	cfg := models.ConnectionConfig{Host: "h", Port: 5432, Database: "d", User: "u", Password: "given"}
	assert.Equal(t, "given", ResolvePassword(cfg, nil).Password)
}

func TestBuildConnectionStringQuotes(t *testing.T) {
	got := buildConnectionString(models.ConnectionConfig{
		Host: "localhost", Port: 5432, User: "app", Database: "erp", Password: "it's secret",
	})
	assert.Equal(t, `host=localhost port=5432 user=app dbname=erp sslmode=prefer password='it\'s secret'`, got)
}
