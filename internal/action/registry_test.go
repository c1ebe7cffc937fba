package action_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixmatch/internal/action"
	"mixmatch/internal/exchange"
)

type recordingAction struct {
	id      int
	name    string
	applied int
}

func (a *recordingAction) ID() int      { return a.id }
func (a *recordingAction) Name() string { return a.name }

func (a *recordingAction) Apply(ctx context.Context, doc *exchange.Document) error {
	a.applied++
	return nil
}

func openTestDocument(t *testing.T, promotionID string) (*exchange.Document, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intercambio.xml")
	content := `<ticket>
    <identificador>12345</identificador>
    <idpromocion>` + promotionID + `</idpromocion>
    <aplicarmm>0</aplicarmm>
    <estadomm></estadomm>
</ticket>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := exchange.Open(path, zerolog.Nop())
	require.NoError(t, err)
	return doc, path
}

func TestRegistry_DispatchInvokesMatchingAction(t *testing.T) {
	first := &recordingAction{id: 10, name: "FIRST"}
	second := &recordingAction{id: 20, name: "SECOND"}

	registry := action.NewRegistry(zerolog.Nop())
	registry.Register(first)
	registry.Register(second)

	doc, _ := openTestDocument(t, "20")
	require.NoError(t, registry.Dispatch(context.Background(), doc))

	assert.Equal(t, 0, first.applied)
	assert.Equal(t, 1, second.applied)
}

func TestRegistry_DispatchNoMatchLeavesDocumentUntouched(t *testing.T) {
	first := &recordingAction{id: 10, name: "FIRST"}
	second := &recordingAction{id: 20, name: "SECOND"}

	registry := action.NewRegistry(zerolog.Nop())
	registry.Register(first)
	registry.Register(second)

	doc, path := openTestDocument(t, "99")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, registry.Dispatch(context.Background(), doc))

	assert.Equal(t, 0, first.applied)
	assert.Equal(t, 0, second.applied)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "no-match dispatch must not touch the file")
}

func TestRegistry_DuplicateIDFirstRegisteredWins(t *testing.T) {
	first := &recordingAction{id: 10, name: "FIRST"}
	duplicate := &recordingAction{id: 10, name: "DUPLICATE"}

	registry := action.NewRegistry(zerolog.Nop())
	registry.Register(first)
	registry.Register(duplicate)

	doc, _ := openTestDocument(t, "10")
	require.NoError(t, registry.Dispatch(context.Background(), doc))

	assert.Equal(t, 1, first.applied)
	assert.Equal(t, 0, duplicate.applied)
}
