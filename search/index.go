// Package search maintains a full-text index over stored original text.
// The index is derived data: it can always be rebuilt from the chat logs,
// so indexing failures never abort the send path.
package search

import (
	"context"
	"log/slog"

	"babel-relay/contract"
	"babel-relay/domain"

	"github.com/blugelabs/bluge"
)

type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewMessageIndex(writer *bluge.Writer, log *slog.Logger) *MessageIndex {
	return &MessageIndex{writer: writer, log: log}
}

// Index upserts the message keyed by its id, so re-appends from merge
// traffic overwrite instead of duplicating.
func (x *MessageIndex) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String())
	doc.AddField(bluge.NewKeywordField("chat", string(msg.ChatID)))
	doc.AddField(bluge.NewKeywordField("user", msg.SenderID))
	doc.AddField(bluge.NewTextField("text", msg.OriginalText))
	doc.AddField(bluge.NewKeywordField("lang", msg.OriginalLang))
	return x.writer.Update(doc.ID(), doc)
}

// Search returns message ids in the chat whose original text matches the
// query, best first.
func (x *MessageIndex) Search(ctx context.Context, chat domain.ChatID, query string, limit int) ([]contract.SearchHit, error) {
	reader, err := x.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("text")).
		AddMust(bluge.NewTermQuery(string(chat)).SetField("chat"))

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, err
	}

	var hits []contract.SearchHit
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		hit := contract.SearchHit{Score: match.Score}
		if err := match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				hit.MessageID = string(value)
			}
			return true
		}); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (x *MessageIndex) Close() error {
	return x.writer.Close()
}
