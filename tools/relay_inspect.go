package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"babel-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

// Dumps the relay keyspace for a prefix. view: rows decode to the latest
// record per message; log: rows show the raw append stream.
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "view:", "Prefix to scan (chat:, seq:, log:, view:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Seq", "Timestamp", "Message ID", "Chat", "Lang", "Text", "Translations"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(v, &msg); err != nil {
					// Markers and counters are not JSON records.
					table.Append([]string{rawKey, "", "", "", "", "", fmt.Sprintf("%d bytes", len(v)), ""})
					return nil
				}

				displayID := msg.ID.String()
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				langs := make([]string, 0, len(msg.Translations))
				for lang := range msg.Translations {
					langs = append(langs, lang)
				}
				sort.Strings(langs)

				table.Append([]string{
					rawKey,
					fmt.Sprintf("%d", msg.Seq),
					msg.CreatedAt.Format("15:04:05"),
					displayID,
					string(msg.ChatID),
					msg.OriginalLang,
					msg.OriginalText,
					strings.Join(langs, " "),
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
