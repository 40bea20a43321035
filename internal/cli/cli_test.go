package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce/internal/domain/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")

	out, err := execute(t, "token", "--subject", "u-7", "--employee", "emp-7", "--role", "HR")
	require.NoError(t, err)

	claims, err := auth.ParseToken("cli-test-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-7", claims.Subject)
	assert.Equal(t, "emp-7", claims.EmployeeID)
	assert.Equal(t, auth.RoleHR, claims.Role)
}

func TestTokenCommandRejectsBadInput(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-test-secret")

	_, err := execute(t, "token", "--role", "agent")
	assert.ErrorContains(t, err, "--subject")

	_, err = execute(t, "token", "--subject", "u-1", "--role", "janitor")
	assert.ErrorContains(t, err, "unknown role")
}

func TestAccrueFlagValidation(t *testing.T) {
	_, err := execute(t, "accrue", "--year", "2025")
	assert.ErrorContains(t, err, "together")

	_, err = execute(t, "accrue", "--year", "2025", "--month", "13")
	assert.ErrorContains(t, err, "out of range")
}

func TestImportFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags importFlags
		want  string
	}{
		{"missing file", importFlags{site: "s", from: "2025-01-01", to: "2025-01-02"}, "--file"},
		{"missing site", importFlags{file: "a.txt", from: "2025-01-01", to: "2025-01-02"}, "--site"},
		{"bad from", importFlags{file: "a.txt", site: "s", from: "01/01/2025", to: "2025-01-02"}, "--from"},
		{"reversed", importFlags{file: "a.txt", site: "s", from: "2025-01-05", to: "2025-01-02"}, "before"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.flags.input()
			assert.ErrorContains(t, err, tt.want)
		})
	}

	in, err := importFlags{file: "scan.txt", site: "main", from: "2025-01-01", to: "2025-01-31", uploadedBy: "ops"}.input()
	require.NoError(t, err)
	assert.Equal(t, "main", in.SiteID)
	assert.Equal(t, "ops", in.UploadedBy)
	assert.Equal(t, 31, in.DateTo.Day())
}

func TestImportCommandMissingFile(t *testing.T) {
	_, err := execute(t, "import", "--file", t.TempDir()+"/absent.txt", "--site", "main", "--from", "2025-01-01", "--to", "2025-01-02")
	assert.ErrorContains(t, err, "read")
}
