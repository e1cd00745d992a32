package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"babel-relay/domain"

	"github.com/blugelabs/bluge"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewMessageIndex(writer, slog.Default())
}

func Test_Search_Finds_Messages_In_Own_Chat_Only(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)
	at := time.Now().UTC()

	wanted := domain.NewMessage("chat-a", "alice", "en", "deployment finished without errors", at)
	req.NoError(index.Index(wanted))
	req.NoError(index.Index(domain.NewMessage("chat-b", "bob", "en", "deployment crashed badly", at)))
	req.NoError(index.Index(domain.NewMessage("chat-a", "bob", "en", "lunch anyone", at)))

	hits, err := index.Search(context.Background(), "chat-a", "deployment", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(wanted.ID.String(), hits[0].MessageID)
}

func Test_Search_No_Match_Returns_Empty(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	req.NoError(index.Index(domain.NewMessage("chat-a", "alice", "en", "hello there", time.Now().UTC())))

	hits, err := index.Search(context.Background(), "chat-a", "missing", 10)
	req.NoError(err)
	req.Empty(hits)
}

func Test_Index_Upserts_By_Message_Id(t *testing.T) {
	req := require.New(t)
	index := newTestIndex(t)

	msg := domain.NewMessage("chat-a", "alice", "en", "searchable text", time.Now().UTC())
	req.NoError(index.Index(msg))
	req.NoError(index.Index(msg))

	hits, err := index.Search(context.Background(), "chat-a", "searchable", 10)
	req.NoError(err)
	req.Len(hits, 1)
}
