package store

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"webgen_server/internal/types"
)

// Sink receives a copy of every file of a saved project.
type Sink interface {
	Name() string
	Put(ctx context.Context, projectID, filename string, content []byte) error
}

// objectKey is projects/<id>/<filename> with any leading slash removed.
func objectKey(projectID, filename string) string {
	return "projects/" + strings.TrimSpace(projectID) + "/" + strings.TrimLeft(strings.TrimSpace(filename), "/")
}

// cleanRelative rejects names that would escape the project directory.
func cleanRelative(filename string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(filename, `\`, "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return clean, nil
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioSink writes exported files to an S3-compatible bucket.
type MinioSink struct {
	client *minio.Client
	bucket string
	init   retryOnce
}

// retryOnce runs fn until it first succeeds. Failures are not remembered,
// so a transient error on one call does not poison later calls.
type retryOnce struct {
	mu    sync.Mutex
	ready bool
}

func (o *retryOnce) Do(ctx context.Context, fn func(context.Context) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ready {
		return nil
	}
	if err := fn(ctx); err != nil {
		return err
	}
	o.ready = true
	return nil
}

func NewMinioSink(cfg MinioConfig) (*MinioSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &MinioSink{client: client, bucket: bucket}, nil
}

func (s *MinioSink) Name() string { return "minio" }

func (s *MinioSink) ensureBucket(ctx context.Context) error {
	return s.init.Do(ctx, func(ctx context.Context) error {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	})
}

func (s *MinioSink) Put(ctx context.Context, projectID, filename string, content []byte) error {
	name, err := cleanRelative(filename)
	if err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, s.bucket, objectKey(projectID, name), bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// DiskSink writes exported files under Root/projects/<id>/.
type DiskSink struct {
	Root string
}

func (s DiskSink) Name() string { return "disk" }

func (s DiskSink) Put(_ context.Context, projectID, filename string, content []byte) error {
	name, err := cleanRelative(filename)
	if err != nil {
		return err
	}
	if _, err := cleanRelative(projectID); err != nil || strings.Contains(projectID, "/") {
		return fmt.Errorf("invalid project id %q", projectID)
	}
	fullPath := filepath.Join(s.Root, filepath.FromSlash(objectKey(projectID, name)))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fullPath, err)
	}
	return nil
}

// ExportingStore copies project files to every sink after a successful
// write. Export failures are logged and never fail the write.
type ExportingStore struct {
	Store
	sinks  []Sink
	logger *zap.Logger
}

func NewExportingStore(inner Store, logger *zap.Logger, sinks ...Sink) *ExportingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportingStore{Store: inner, sinks: sinks, logger: logger}
}

func (s *ExportingStore) SaveProject(ctx context.Context, p *Project) error {
	if err := s.Store.SaveProject(ctx, p); err != nil {
		return err
	}
	s.export(ctx, p.ID, p.Files)
	return nil
}

func (s *ExportingStore) UpdateProjectFiles(ctx context.Context, id string, files types.FileBundle, meta *types.GenerationMetadata) (*Project, error) {
	p, err := s.Store.UpdateProjectFiles(ctx, id, files, meta)
	if err != nil {
		return nil, err
	}
	s.export(ctx, p.ID, p.Files)
	return p, nil
}

func (s *ExportingStore) export(ctx context.Context, projectID string, files []types.GeneratedFile) {
	for _, sink := range s.sinks {
		written := 0
		for _, f := range files {
			if err := sink.Put(ctx, projectID, f.Filename, []byte(f.Content)); err != nil {
				s.logger.Warn("project export failed",
					zap.String("sink", sink.Name()),
					zap.String("project_id", projectID),
					zap.String("filename", f.Filename),
					zap.Error(err))
				continue
			}
			written++
		}
		if written != len(files) {
			s.logger.Warn("project export incomplete",
				zap.String("sink", sink.Name()),
				zap.String("project_id", projectID),
				zap.Int("files", len(files)),
				zap.Int("written", written))
			continue
		}
		s.logger.Info("project exported",
			zap.String("sink", sink.Name()),
			zap.String("project_id", projectID),
			zap.Int("files", written))
	}
}
