package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funcid/internal/app"
	"funcid/internal/config"
	"funcid/internal/core/apperror"
	"funcid/internal/domain/auth"
	"funcid/pkg/logger"
)

// sharedMemory returns an opener that hands every invocation the same memory backend.
func sharedMemory(t *testing.T) StoreOpener {
	t.Helper()
	b, err := app.OpenStore(context.Background(), config.Config{Store: config.StoreMemory}, logger.Nop())
	require.NoError(t, err)
	return func(context.Context, config.Config, *logger.Logger) (*app.Backend, error) {
		return b, nil
	}
}

func run(t *testing.T, open StoreOpener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--store", "memory", "--env-file", "does-not-exist.env"))
	err := cmd.Execute()
	return out.String(), err
}

func TestDecode(t *testing.T) {
	out, err := run(t, nil, "decode", "34")
	require.NoError(t, err)
	assert.Equal(t, "100\n", out)

	_, err = run(t, nil, "decode", "I0")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeMalformedIdentifier))
}

func TestGeneratorCommands(t *testing.T) {
	open := sharedMemory(t)

	out, err := run(t, open, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "memory")

	out, err = run(t, open, "create", "invoice", "INV-", "--start", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "INV-Y")

	out, err = run(t, open, "next", "invoice")
	require.NoError(t, err)
	assert.Equal(t, "INV-Z\n", out)

	out, err = run(t, open, "next", "invoice", "--numeric")
	require.NoError(t, err)
	assert.Equal(t, "32\n", out)

	out, err = run(t, open, "next-batch", "invoice", "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-11", "INV-12", "INV-13"}, strings.Fields(out))

	out, err = run(t, open, "set-sequence", "invoice", "100", "--numeric")
	require.NoError(t, err)
	assert.Equal(t, "100\n", out)

	out, err = run(t, open, "current", "invoice")
	require.NoError(t, err)
	assert.Contains(t, out, "INV-34")

	out, err = run(t, open, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "invoice")

	out, err = run(t, open, "drop", "invoice")
	require.NoError(t, err)
	assert.Contains(t, out, "is deleted")

	out, err = run(t, open, "current", "invoice")
	require.NoError(t, err)
	assert.Contains(t, out, "No generator defined")

	_, err = run(t, open, "next", "invoice")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeGeneratorNotDefined))
}

func TestNext_CountAndRange(t *testing.T) {
	open := sharedMemory(t)

	_, err := run(t, open, "create", "order", "ORD-")
	require.NoError(t, err)

	out, err := run(t, open, "next", "order", "--count", "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"ORD-1", "ORD-2", "ORD-3"}, strings.Fields(out))

	out, err = run(t, open, "next", "order", "--count", "5", "--range", "2", "--numeric")
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "5", "6", "7", "8"}, strings.Fields(out))

	// the unused tail of the last range is not handed back
	out, err = run(t, open, "next", "order", "--numeric")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)

	_, err = run(t, open, "next", "order", "--count", "0")
	assert.ErrorContains(t, err, "invalid count")

	_, err = run(t, open, "next", "order", "--range", "-1")
	assert.ErrorContains(t, err, "invalid range")
}

func TestNextBatch_InvalidSize(t *testing.T) {
	_, err := run(t, sharedMemory(t), "next-batch", "invoice", "many")
	assert.ErrorContains(t, err, "invalid batch size")
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_TTL", "")

	out, err := run(t, nil, "token", "--user", "ops")
	require.NoError(t, err)

	user, err := auth.NewJWTService(auth.DefaultJWTConfig("cli-secret")).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", user.UserID)
	assert.True(t, user.IsAdmin)
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, nil, "token", "--user", "ops")
	assert.ErrorContains(t, err, "JWT_SECRET")
}
