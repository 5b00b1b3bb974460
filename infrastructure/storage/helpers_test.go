package storage

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	// Reduced to 16 Mo for testing
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

type fixture struct {
	rooms    *RoomRepository
	messages *MessageRepository
	tracker  *ReadTracker
}

func newFixture(t *testing.T) fixture {
	db := openTestDB(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return fixture{
		rooms:    NewRoomRepository(db, log),
		messages: NewMessageRepository(db, log),
		tracker:  NewReadTracker(db, log),
	}
}
