//go:generate go run go.uber.org/mock/mockgen -source=chat_log.go -destination=../../mocks/mock_chat_log.go -package=mocks
package storage

import (
	errs "babel-relay/errors"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"babel-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Key layout, one keyspace per chat:
//
//	chat:{chatId}            existence marker, checked by every operation
//	seq:{chatId}             8-byte big-endian append counter
//	log:{chatId}:{seq:019d}  append-only history row (19-digit zero padding
//	                         keeps rows lexicographically sorted by position)
//	view:{chatId}:{msgId}    latest record per message, overwritten on merge
//
// The view keys are the compacted projection; the log rows are the raw
// stream. The marker is deleted first on teardown so in-flight appends and
// queries fail with ErrChatNotFound instead of resurrecting the keyspace.

const maxMergeRetries = 32

type ChatLog struct {
	db  *badger.DB
	log *slog.Logger
}

func NewChatLog(db *badger.DB, log *slog.Logger) *ChatLog {
	return &ChatLog{db: db, log: log}
}

func markerKey(chat domain.ChatID) []byte {
	return []byte(fmt.Sprintf("chat:%s", chat))
}

func seqKey(chat domain.ChatID) []byte {
	return []byte(fmt.Sprintf("seq:%s", chat))
}

func logKey(chat domain.ChatID, seq int64) []byte {
	return []byte(fmt.Sprintf("log:%s:%019d", chat, seq))
}

func viewKey(chat domain.ChatID, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("view:%s:%s", chat, id))
}

// CreateChat allocates a short chat id and provisions its keyspace.
// The chat is queryable the moment this returns.
func (l *ChatLog) CreateChat() (domain.ChatID, error) {
	chat := domain.ChatID(uuid.NewString()[:8])
	err := l.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(markerKey(chat), []byte{1}); err != nil {
			return err
		}
		var zero [8]byte
		return txn.Set(seqKey(chat), zero[:])
	})
	if err != nil {
		return "", fmt.Errorf("provisioning chat %s: %w", chat, errs.ErrUpstreamUnavailable)
	}
	return chat, nil
}

// DeleteChat tears the chat down: marker first, then the remaining keys.
// Operations racing the teardown observe the missing marker and fail with
// ErrChatNotFound rather than hanging or silently recreating state.
func (l *ChatLog) DeleteChat(chat domain.ChatID) error {
	err := l.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(markerKey(chat)); err != nil {
			return err
		}
		return txn.Delete(markerKey(chat))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errs.ErrChatNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting chat %s: %w", chat, errs.ErrUpstreamUnavailable)
	}

	for _, prefix := range [][]byte{
		[]byte(fmt.Sprintf("log:%s:", chat)),
		[]byte(fmt.Sprintf("view:%s:", chat)),
		seqKey(chat),
	} {
		if err := l.dropPrefix(prefix); err != nil {
			return fmt.Errorf("dropping %s: %w", prefix, errs.ErrUpstreamUnavailable)
		}
	}
	l.log.Info("Chat deleted", "chat_id", chat)
	return nil
}

func (l *ChatLog) dropPrefix(prefix []byte) error {
	var keys [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	wb := l.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// ListChats enumerates chats from the set of existing markers.
func (l *ChatLog) ListChats() ([]domain.ChatID, error) {
	prefix := []byte("chat:")
	var chats []domain.ChatID
	err := l.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			chats = append(chats, domain.ChatID(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", errs.ErrUpstreamUnavailable)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	return chats, nil
}

// Append assigns the next log position to the record and persists it.
// Concurrent appends conflict on the sequence key; the transaction is
// retried so every record ends up with a distinct position.
func (l *ChatLog) Append(msg domain.Message) (domain.Message, error) {
	var stored domain.Message
	for i := 0; i < maxMergeRetries; i++ {
		err := l.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(markerKey(msg.ChatID)); err != nil {
				return err
			}
			seq, err := nextSeq(txn, msg.ChatID)
			if err != nil {
				return err
			}
			stored = msg
			stored.Seq = seq
			return writeRecord(txn, stored, seq)
		})
		switch {
		case err == nil:
			return stored, nil
		case errors.Is(err, badger.ErrConflict):
			continue
		case errors.Is(err, badger.ErrKeyNotFound):
			return domain.Message{}, errs.ErrChatNotFound
		default:
			return domain.Message{}, fmt.Errorf("appending to chat %s: %w", msg.ChatID, errs.ErrUpstreamUnavailable)
		}
	}
	return domain.Message{}, fmt.Errorf("appending to chat %s: %w", msg.ChatID, errs.ErrUpstreamUnavailable)
}

// AppendMerge unions {lang: text} into the freshest stored record for the
// message and appends the merged result under the same key.
//
// The read and the write happen inside one serializable transaction: if a
// concurrent merge commits another language between our read and our commit,
// badger reports a conflict and the whole read-merge-write is redone against
// the new freshest record. A language successfully cached by any writer can
// therefore never be dropped by a later writer holding a stale snapshot.
//
// If the language is already present this is a no-op returning the current
// record, so duplicate and overlapping writes stay idempotent.
func (l *ChatLog) AppendMerge(chat domain.ChatID, messageID uuid.UUID, lang, text string) (domain.Message, error) {
	var merged domain.Message
	for i := 0; i < maxMergeRetries; i++ {
		wrote := false
		err := l.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(markerKey(chat)); err != nil {
				return err
			}
			current, err := readRecord(txn, chat, messageID)
			if err != nil {
				return err
			}
			if current.Translated(lang) {
				merged = current
				return nil
			}
			merged = current.MergeTranslations(map[string]string{lang: text})
			seq, err := nextSeq(txn, chat)
			if err != nil {
				return err
			}
			// Seq keeps the creation position; the new log row gets its own
			// offset so the raw stream stays append-only.
			wrote = true
			return writeRecord(txn, merged, seq)
		})
		switch {
		case err == nil:
			if wrote {
				l.log.Debug("Translation merged",
					"chat_id", chat, "message_id", messageID, "lang", lang)
			}
			return merged, nil
		case errors.Is(err, badger.ErrConflict):
			continue
		case errors.Is(err, badger.ErrKeyNotFound):
			return domain.Message{}, errs.ErrChatNotFound
		default:
			return domain.Message{}, fmt.Errorf("merging into chat %s: %w", chat, errs.ErrUpstreamUnavailable)
		}
	}
	return domain.Message{}, fmt.Errorf("merging into chat %s: %w", chat, errs.ErrUpstreamUnavailable)
}

// Query returns the latest record per message, ordered by the log position
// assigned at first append. Wall-clock timestamps are carried for display
// but never used for ordering.
func (l *ChatLog) Query(chat domain.ChatID) ([]domain.Message, error) {
	prefix := []byte(fmt.Sprintf("view:%s:", chat))
	var rows [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(markerKey(chat)); err != nil {
			return err
		}
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rows = append(rows, value)
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errs.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chat %s: %w", chat, errs.ErrUpstreamUnavailable)
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		var msg domain.Message
		if err := json.Unmarshal(row, &msg); err != nil {
			return nil, fmt.Errorf("decoding record in chat %s: %w", chat, errs.ErrUpstreamUnavailable)
		}
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].Seq != messages[j].Seq {
			return messages[i].Seq < messages[j].Seq
		}
		return bytes.Compare(messages[i].ID[:], messages[j].ID[:]) < 0
	})
	return messages, nil
}

func nextSeq(txn *badger.Txn, chat domain.ChatID) (int64, error) {
	item, err := txn.Get(seqKey(chat))
	if err != nil {
		return 0, err
	}
	var current int64
	if err := item.Value(func(value []byte) error {
		current = int64(binary.BigEndian.Uint64(value))
		return nil
	}); err != nil {
		return 0, err
	}
	next := current + 1
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(next))
	if err := txn.Set(seqKey(chat), buf[:]); err != nil {
		return 0, err
	}
	return next, nil
}

func readRecord(txn *badger.Txn, chat domain.ChatID, id uuid.UUID) (domain.Message, error) {
	item, err := txn.Get(viewKey(chat, id))
	if err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	if err := item.Value(func(value []byte) error {
		return json.Unmarshal(value, &msg)
	}); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func writeRecord(txn *badger.Txn, msg domain.Message, offset int64) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := txn.Set(logKey(msg.ChatID, offset), value); err != nil {
		return err
	}
	return txn.Set(viewKey(msg.ChatID, msg.ID), value)
}
