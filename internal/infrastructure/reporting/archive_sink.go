package reporting

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/los-rm-provisioner/internal/domain/entity"
	"github.com/oksasatya/los-rm-provisioner/pkg/helpers"
)

// ClientOpener creates a storage client. Credential lookup may hit the network.
type ClientOpener func(ctx context.Context) (*storage.Client, error)

// ArchiveSink uploads every report to a bucket as reports/{realm}/{run_id}.json.
// The storage client is opened on the first Publish and reused afterwards.
type ArchiveSink struct {
	Bucket string
	Logger logrus.FieldLogger

	open   ClientOpener
	mu     sync.Mutex
	client *storage.Client
}

func NewArchiveSink(open ClientOpener, bucket string, logger logrus.FieldLogger) *ArchiveSink {
	return &ArchiveSink{open: open, Bucket: bucket, Logger: logger}
}

func ObjectPath(report *entity.Report) string {
	return path.Join("reports", report.Realm, report.RunID+".json")
}

func (s *ArchiveSink) Name() string { return "gcs" }

func (s *ArchiveSink) storageClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	client, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gcs client: %w", err)
	}
	s.client = client
	return client, nil
}

func (s *ArchiveSink) Publish(ctx context.Context, report *entity.Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	client, err := s.storageClient(ctx)
	if err != nil {
		return err
	}
	url, err := helpers.UploadObject(ctx, client, s.Bucket, ObjectPath(report), "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("object", url).Info("report archived")
	}
	return nil
}

// Opened reports whether a client has been created.
func (s *ArchiveSink) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}

func (s *ArchiveSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		_ = s.client.Close()
		s.client = nil
	}
}
