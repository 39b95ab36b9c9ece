package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Prefix is the object name prefix for archived payloads.
const Prefix = "inbound"

// Store archives raw webhook payloads in a GCS bucket and reads them back for
// replay. It holds a shared storage client; call Close when done.
type Store struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewStore creates a Store for bucket. It assumes Application Default
// Credentials are configured.
func NewStore(ctx context.Context, bucket string) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStore: create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket, now: time.Now}, nil
}

// Close closes the storage client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Archive writes raw under a dated object name derived from emailHash and
// returns its gs:// URI.
func (s *Store) Archive(ctx context.Context, emailHash string, raw []byte) (string, error) {
	objectName := ObjectName(emailHash, s.now())

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: write %s: %w", objectName, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalize %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

// Fetch downloads the object at gcsURI. The URI may name any bucket.
func (s *Store) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// ObjectName builds the archive object name,
// e.g. "inbound/2025/09/03/1a2b3c4d5e6f7a8b-20250903T101500.000000000Z.json".
// The timestamp keeps redeliveries and "no-html" payloads apart.
func ObjectName(emailHash string, at time.Time) string {
	at = at.UTC()
	return path.Join(Prefix, at.Format("2006/01/02"),
		fmt.Sprintf("%s-%s.json", emailHash, at.Format("20060102T150405.000000000Z")))
}

// ParseURI splits gs://bucket/path/to/object into bucket and object path.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}
