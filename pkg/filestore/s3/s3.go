// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/doodlechat/doodle-gw/pkg/filestore"
)

func init() {
	filestore.Providers.Register("s3", func(ctx context.Context, params map[string]string) (filestore.FileStore, error) {
		return New(ctx, Options{
			Bucket:   params["bucket"],
			Region:   params["region"],
			Prefix:   params["prefix"],
			Endpoint: params["endpoint"],
		})
	})
}

// compile-time check
var _ filestore.FileStore = (*Store)(nil)

// metadataFetchLimit bounds concurrent GetObject calls while listing.
const metadataFetchLimit = 10

// Options configures the S3 backend.
type Options struct {
	Bucket   string // required
	Region   string
	Prefix   string // key prefix, e.g. "uploads/"
	Endpoint string // custom endpoint for MinIO and friends
}

type objectMetadata struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id,omitempty"`
	Filename      string    `json:"filename"`
	MimeType      string    `json:"mime_type,omitempty"`
	Format        string    `json:"format,omitempty"`
	Bytes         int64     `json:"bytes"`
	Status        string    `json:"status"`
	StatusDetails string    `json:"status_details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m *objectMetadata) file() *filestore.File {
	return &filestore.File{
		ID:            m.ID,
		OwnerID:       m.OwnerID,
		Filename:      m.Filename,
		MimeType:      m.MimeType,
		Format:        m.Format,
		Bytes:         m.Bytes,
		Status:        m.Status,
		StatusDetails: m.StatusDetails,
		CreatedAt:     m.CreatedAt,
	}
}

// Store keeps uploads in an S3 bucket:
//
//	<prefix><file_id>/content
//	<prefix><file_id>/metadata.json
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3-backed Store using the default AWS credential chain.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 file store: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &Store{
		client: s3.NewFromConfig(cfg, clientOpts...),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (s *Store) contentKey(fileID string) string  { return s.prefix + fileID + "/content" }
func (s *Store) metadataKey(fileID string) string { return s.prefix + fileID + "/metadata.json" }

// CreateFile uploads content first so metadata never points at a missing object.
func (s *Store) CreateFile(ctx context.Context, file *filestore.File) error {
	meta, err := json.Marshal(objectMetadata{
		ID:            file.ID,
		OwnerID:       file.OwnerID,
		Filename:      file.Filename,
		MimeType:      file.MimeType,
		Format:        file.Format,
		Bytes:         file.Bytes,
		Status:        file.Status,
		StatusDetails: file.StatusDetails,
		CreatedAt:     file.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.contentKey(file.ID)),
		Body:        bytes.NewReader(file.Content),
		ContentType: aws.String(contentType),
	}); err != nil {
		return fmt.Errorf("put content: %w", err)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metadataKey(file.ID)),
		Body:        bytes.NewReader(meta),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}
	return nil
}

// GetFile returns file metadata (Content is nil).
func (s *Store) GetFile(ctx context.Context, fileID string) (*filestore.File, error) {
	meta, err := s.readMetadata(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return meta.file(), nil
}

// GetFileContent returns the raw file bytes.
func (s *Store) GetFileContent(ctx context.Context, fileID string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.contentKey(fileID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read content body: %w", err)
	}
	return data, nil
}

// DeleteFile removes both objects.
func (s *Store) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := s.readMetadata(ctx, fileID); err != nil {
		return err
	}

	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{
			Objects: []s3types.ObjectIdentifier{
				{Key: aws.String(s.contentKey(fileID))},
				{Key: aws.String(s.metadataKey(fileID))},
			},
			Quiet: aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	return nil
}

// ListFilesPaginated enumerates file prefixes, then fetches their metadata
// concurrently.
func (s *Store) ListFilesPaginated(ctx context.Context, after, before string, limit int, order, ownerID string) ([]*filestore.File, bool, error) {
	ids, err := s.listIDs(ctx)
	if err != nil {
		return nil, false, err
	}

	var (
		mu  sync.Mutex
		all []*filestore.File
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataFetchLimit)
	for _, id := range ids {
		g.Go(func() error {
			meta, err := s.readMetadata(gctx, id)
			if errors.Is(err, filestore.ErrFileNotFound) {
				return nil // content uploaded, metadata not yet written
			}
			if err != nil {
				return err
			}
			if ownerID != "" && meta.OwnerID != ownerID {
				return nil
			}
			mu.Lock()
			all = append(all, meta.file())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	page, hasMore := filestore.Paginate(all, after, before, limit, order)
	return page, hasMore, nil
}

// Close is a no-op for the S3 store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) listIDs(ctx context.Context) ([]string, error) {
	var ids []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			id := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), s.prefix), "/")
			if id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (s *Store) readMetadata(ctx context.Context, fileID string) (*objectMetadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metadataKey(fileID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("file %s: %w", fileID, filestore.ErrFileNotFound)
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	defer out.Body.Close()

	var meta objectMetadata
	if err := json.NewDecoder(out.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", fileID, err)
	}
	return &meta, nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	// MinIO and some gateways only surface the code in the message.
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound")
}
