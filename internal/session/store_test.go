package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoulee21/bedit/internal/doctree"
	"github.com/thoulee21/bedit/internal/format"
)

func TestStore_CreateGetDelete(t *testing.T) {
	st := NewStore(format.NewRegistry(format.Options{}), time.Hour, nil)
	sess := st.Create()
	require.NotEmpty(t, sess.ID)

	got, err := st.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, st.Len())

	require.NoError(t, st.Delete(sess.ID))
	_, err = st.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, st.Delete(sess.ID), ErrNotFound)
}

func TestStore_CreateFrom(t *testing.T) {
	st := NewStore(format.NewRegistry(format.Options{}), time.Hour, nil)
	sess, err := st.CreateFrom(context.Background(), format.Text, strings.NewReader("hello"), "h.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", doctree.PlainText(sess.Document()))
	assert.Equal(t, "h", sess.Snapshot().Metadata.Title)

	_, err = st.CreateFrom(context.Background(), format.Text, strings.NewReader("\xff"), "bad.txt")
	assert.Error(t, err)
	assert.Equal(t, 1, st.Len())
}

func TestStore_CleanupEvictsIdle(t *testing.T) {
	st := NewStore(format.NewRegistry(format.Options{}), time.Minute, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	old := st.Create()
	now = now.Add(50 * time.Second)
	fresh := st.Create()

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, st.Cleanup())

	_, err := st.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_StartStop(t *testing.T) {
	st := NewStore(format.NewRegistry(format.Options{}), time.Millisecond, nil)
	st.Create()
	st.Start(context.Background())
	assert.Eventually(t, func() bool { return st.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	st.Stop()
}
