// Package archive uploads snapshots of the system log to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/ojtauth/internal/models"
)

// Store is the object storage surface shared by the S3, MinIO and GCS
// backends.
type Store interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
}

// Presigner is implemented by stores that can hand out temporary download
// links.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var ErrDisabled = errors.New("log archive is not configured")

// Result describes an uploaded snapshot. URL is empty when the store cannot
// presign.
type Result struct {
	Key   string `json:"key"`
	URL   string `json:"url,omitempty"`
	Count int    `json:"count"`
}

// Archiver serializes system log rows as JSON and uploads them.
type Archiver struct {
	store   Store
	now     func() time.Time
	linkTTL time.Duration
}

// NewArchiver accepts a nil store, in which case Archive returns ErrDisabled.
func NewArchiver(store Store) *Archiver {
	return &Archiver{store: store, now: time.Now, linkTTL: 15 * time.Minute}
}

func (a *Archiver) WithClock(now func() time.Time) *Archiver {
	a.now = now
	return a
}

func (a *Archiver) Enabled() bool { return a.store != nil }

// Key builds system-logs/<yyyy>/<mm>/<dd>/<uuid>.json.
func (a *Archiver) Key() string {
	d := a.now().UTC()
	return fmt.Sprintf("system-logs/%04d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (a *Archiver) Archive(ctx context.Context, logs []*models.SystemLog) (*Result, error) {
	if a.store == nil {
		return nil, ErrDisabled
	}
	if logs == nil {
		logs = []*models.SystemLog{}
	}

	data, err := json.Marshal(logs)
	if err != nil {
		return nil, err
	}

	key := a.Key()
	if err := a.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	res := &Result{Key: key, Count: len(logs)}
	if p, ok := a.store.(Presigner); ok {
		url, err := p.PresignGet(ctx, key, a.linkTTL)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", key, err)
		}
		res.URL = url
	}
	return res, nil
}
