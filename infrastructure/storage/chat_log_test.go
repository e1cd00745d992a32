package storage

import (
	errs "babel-relay/errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"babel-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Create_List_Delete_Chat(t *testing.T) {
	req := require.New(t)
	log := NewChatLog(openTestDB(t), slog.Default())

	first, err := log.CreateChat()
	req.NoError(err)
	second, err := log.CreateChat()
	req.NoError(err)
	req.NotEqual(first, second)

	chats, err := log.ListChats()
	req.NoError(err)
	req.ElementsMatch([]domain.ChatID{first, second}, chats)

	req.NoError(log.DeleteChat(first))
	chats, err = log.ListChats()
	req.NoError(err)
	req.Equal([]domain.ChatID{second}, chats)

	// Deleting again is reported, callers decide whether it matters.
	req.ErrorIs(log.DeleteChat(first), errs.ErrChatNotFound)
}

func Test_Append_Orders_By_Log_Position(t *testing.T) {
	req := require.New(t)
	log := NewChatLog(openTestDB(t), slog.Default())
	chat, err := log.CreateChat()
	req.NoError(err)

	// Wall clocks run backwards here on purpose; order must follow the log.
	at := time.Now().UTC()
	var ids []string
	for i := 0; i < 5; i++ {
		msg := domain.NewMessage(chat, "alice", "en",
			fmt.Sprintf("message %d", i), at.Add(-time.Duration(i)*time.Minute))
		stored, err := log.Append(msg)
		req.NoError(err)
		req.Equal(int64(i+1), stored.Seq)
		ids = append(ids, stored.ID.String())
	}

	fetched, err := log.Query(chat)
	req.NoError(err)
	req.Len(fetched, 5)
	for i, msg := range fetched {
		req.Equal(ids[i], msg.ID.String())
		req.Equal("en", msg.OriginalLang)
		req.Equal(msg.OriginalText, msg.Translations["en"])
	}
}

func Test_AppendMerge_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	log := NewChatLog(db, slog.Default())
	chat, err := log.CreateChat()
	req.NoError(err)

	stored, err := log.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)

	first, err := log.AppendMerge(chat, stored.ID, "en", "Hello")
	req.NoError(err)
	req.Equal("Hello", first.Translations["en"])
	req.Equal(stored.Seq, first.Seq)

	rowsAfterFirst := countLogRows(t, db, chat)

	// Second merge for the same language: same text back, no new log row,
	// and the cached entry is never overwritten.
	second, err := log.AppendMerge(chat, stored.ID, "en", "Howdy")
	req.NoError(err)
	req.Equal("Hello", second.Translations["en"])
	req.Equal(rowsAfterFirst, countLogRows(t, db, chat))
}

func Test_AppendMerge_Never_Loses_Concurrent_Languages(t *testing.T) {
	req := require.New(t)
	log := NewChatLog(openTestDB(t), slog.Default())
	chat, err := log.CreateChat()
	req.NoError(err)

	stored, err := log.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)

	langs := []string{"en", "fr", "de", "it", "pt", "nl", "pl", "ja", "ko", "zh"}
	var wg sync.WaitGroup
	errCh := make(chan error, len(langs))
	for _, lang := range langs {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			_, err := log.AppendMerge(chat, stored.ID, lang, "text-"+lang)
			errCh <- err
		}(lang)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		req.NoError(err)
	}

	fetched, err := log.Query(chat)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Len(fetched[0].Translations, len(langs)+1)
	for _, lang := range langs {
		req.Equal("text-"+lang, fetched[0].Translations[lang])
	}
	req.Equal("Hola", fetched[0].Translations["es"])
}

func Test_Operations_On_Deleted_Chat_Fail_Fast(t *testing.T) {
	req := require.New(t)
	log := NewChatLog(openTestDB(t), slog.Default())
	chat, err := log.CreateChat()
	req.NoError(err)

	stored, err := log.Append(domain.NewMessage(chat, "alice", "es", "Hola", time.Now().UTC()))
	req.NoError(err)
	req.NoError(log.DeleteChat(chat))

	_, err = log.Append(domain.NewMessage(chat, "bob", "en", "hi", time.Now().UTC()))
	req.ErrorIs(err, errs.ErrChatNotFound)

	_, err = log.AppendMerge(chat, stored.ID, "en", "Hello")
	req.ErrorIs(err, errs.ErrChatNotFound)

	_, err = log.Query(chat)
	req.ErrorIs(err, errs.ErrChatNotFound)
}

func countLogRows(t *testing.T, db *badger.DB, chat domain.ChatID) int {
	t.Helper()
	prefix := []byte(fmt.Sprintf("log:%s:", chat))
	count := 0
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}
