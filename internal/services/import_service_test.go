package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tablero/internal/amqp"
	"tablero/internal/core"
	"tablero/internal/sheets/memory"
	"tablero/internal/storage"
)

type fakeStore struct {
	ideas  []core.Idea
	source string
	err    error
}

func (f *fakeStore) ReplaceIdeas(_ context.Context, source string, ideas []core.Idea) (storage.Import, error) {
	if f.err != nil {
		return storage.Import{}, f.err
	}
	f.ideas, f.source = ideas, source
	return storage.Import{ID: 1, Version: "v1", Source: source, RowCount: len(ideas)}, nil
}

type fakePublisher struct {
	msgs []*amqp.ReloadMessage
	err  error
}

func (f *fakePublisher) PublishReload(_ context.Context, msg *amqp.ReloadMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestImportStoresAndPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewImportService(store, pub, nil, quietLogger())

	res, err := svc.Import(context.Background(), memory.New(ideaRows), "ideas.xlsx")
	require.NoError(t, err)
	require.Len(t, store.ideas, 4)
	require.Equal(t, "ideas.xlsx", store.source)
	require.Equal(t, 1, res.Stats.Undated)
	require.True(t, res.Published)
	require.Len(t, pub.msgs, 1)
	require.Equal(t, "import", pub.msgs[0].Reason)
	require.Equal(t, "v1", pub.msgs[0].Version)
}

func TestImportWithoutPublisher(t *testing.T) {
	svc := NewImportService(&fakeStore{}, nil, nil, quietLogger())
	res, err := svc.Import(context.Background(), memory.New(ideaRows), "ideas.xlsx")
	require.NoError(t, err)
	require.False(t, res.Published)
}

func TestImportPublishFailureKeepsImport(t *testing.T) {
	store := &fakeStore{}
	svc := NewImportService(store, &fakePublisher{err: errors.New("down")}, nil, quietLogger())
	res, err := svc.Import(context.Background(), memory.New(ideaRows), "ideas.xlsx")
	require.NoError(t, err)
	require.False(t, res.Published)
	require.Equal(t, "v1", res.Import.Version)
}

func TestImportRejectsBadSources(t *testing.T) {
	svc := NewImportService(&fakeStore{}, nil, nil, quietLogger())

	_, err := svc.Import(context.Background(), memory.New(ideaRows[:1]), "header-only")
	require.ErrorIs(t, err, ErrNothingToImport)

	_, err = svc.Import(context.Background(), memory.New([][]string{{"Área", "Título"}, {"IT", "x"}}), "no-date")
	require.ErrorIs(t, err, core.ErrMissingColumn)

	_, err = svc.Import(context.Background(), memory.New(nil), "empty")
	require.Error(t, err)

	boom := errors.New("disk full")
	_, err = NewImportService(&fakeStore{err: boom}, nil, nil, quietLogger()).
		Import(context.Background(), memory.New(ideaRows), "x")
	require.ErrorIs(t, err, boom)
}
