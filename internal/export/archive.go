package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/salesqa/salesqa/internal/history"
	"github.com/salesqa/salesqa/internal/observability"
	"github.com/salesqa/salesqa/internal/storage"
)

// ErrArchiveDisabled is returned when no object store is configured.
var ErrArchiveDisabled = errors.New("result archive is not configured")

type Archiver struct {
	store storage.ObjectStore
}

// NewArchiver accepts a nil store; Archive then reports ErrArchiveDisabled.
func NewArchiver(store storage.ObjectStore) *Archiver {
	return &Archiver{store: store}
}

func (a *Archiver) Enabled() bool {
	return a != nil && a.store != nil
}

// Archive uploads the entry's result. Entries never change, so an object that
// already exists under the entry's key is returned as-is.
func (a *Archiver) Archive(ctx context.Context, entry history.Entry, format Format) (storage.ObjectInfo, error) {
	if !a.Enabled() {
		return storage.ObjectInfo{}, ErrArchiveDisabled
	}
	if entry.Outcome.Failed() {
		return storage.ObjectInfo{}, ErrFailedOutcome
	}
	key, err := storage.BuildExportKey(entry.ID, entry.AskedAt, format.Extension())
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	existing, err := a.store.Stat(ctx, key)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, storage.ErrObjectNotFound):
		return storage.ObjectInfo{}, fmt.Errorf("stat archive %q: %w", key, err)
	}

	payload, err := Bytes(format, entry.Outcome)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{
		ContentType: format.ContentType(),
		Metadata:    map[string]string{"entry-id": entry.ID},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("archive entry %q: %w", entry.ID, err)
	}
	if info.Key == "" {
		info.Key = key
	}
	observability.ObserveArchive(string(format))
	return info, nil
}
