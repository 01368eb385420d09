package credentials

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/note-it-down/pkg/errors"
)

type mapOverrides map[Provider]string

func (m mapOverrides) APIKeyOverride(_ context.Context, p Provider) (string, bool) {
	v, ok := m[p]
	return v, ok
}

func TestResolverPrecedence(t *testing.T) {
	t.Parallel()

	overrides := mapOverrides{}
	r := NewResolver(overrides, Defaults{ProviderGroq: "default-groq"}, newTestLogger())
	ctx := context.Background()

	key, err := r.Resolve(ctx, ProviderGroq)
	require.NoError(t, err)
	require.Equal(t, "default-groq", key)

	overrides[ProviderGroq] = "X"
	key, err = r.Resolve(ctx, ProviderGroq)
	require.NoError(t, err)
	require.Equal(t, "X", key)

	delete(overrides, ProviderGroq)
	key, err = r.Resolve(ctx, ProviderGroq)
	require.NoError(t, err)
	require.Equal(t, "default-groq", key)

	_, err = r.Resolve(ctx, ProviderGemini)
	require.True(t, apperrors.IsCode(err, apperrors.CodeMissingCredential))
}

func TestResolverIgnoresBlankOverride(t *testing.T) {
	t.Parallel()

	r := NewResolver(mapOverrides{ProviderGemini: "   "}, Defaults{ProviderGemini: "g"}, newTestLogger())
	key, err := r.Resolve(context.Background(), ProviderGemini)
	require.NoError(t, err)
	require.Equal(t, "g", key)
}

func TestParseProvider(t *testing.T) {
	t.Parallel()

	p, err := ParseProvider(" Groq ")
	require.NoError(t, err)
	require.Equal(t, ProviderGroq, p)

	_, err = ParseProvider("openai")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestMask(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", Mask(""))
	require.Equal(t, "****", Mask("abcd"))
	require.Equal(t, "gsk_****wxyz", Mask("gsk_1234wxyz"))
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
