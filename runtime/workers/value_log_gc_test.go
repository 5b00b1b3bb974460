package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestValueLogGC_Nothing_To_Rewrite(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db := openDB(t)

	// Given a database with a few overwritten keys
	for i := 0; i < 10; i++ {
		req.NoError(db.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte("room:1"), []byte("document"))
		}))
	}

	// Then a collection pass ends without error
	req.NoError(NewValueLogGC(log, db, time.Minute).collect(context.Background()))
}

func TestValueLogGC_Stops_With_Context(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db := openDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// When the worker runs several ticks then the context ends
	err := NewValueLogGC(log, db, 10*time.Millisecond).Run(ctx)

	// Then it stops properly
	req.NoError(err)
}
