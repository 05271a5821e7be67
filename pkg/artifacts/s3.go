package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/agentmesh/meshchat/pkg/chat"
)

type S3Config struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
}

// S3Store keeps every artifact version as its own object under
// <session>/<filename>/v<version>.
type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &S3Store{
		client:     client,
		bucketName: bucket,
		region:     region,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	if s.initErr != nil {
		return fmt.Errorf("ensure bucket: %w", s.initErr)
	}
	return nil
}

// objectVersion is one stored object, parsed back from its key.
type objectVersion struct {
	filename string
	version  int
	info     minio.ObjectInfo
}

func (s *S3Store) listObjects(ctx context.Context, prefix string) ([]objectVersion, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	var out []objectVersion
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    true,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		filename, version, ok := parseObjectKey(obj.Key)
		if !ok {
			continue
		}
		out = append(out, objectVersion{filename: filename, version: version, info: obj})
	}
	return out, nil
}

func (s *S3Store) List(ctx context.Context, sessionID string) ([]chat.ArtifactInfo, error) {
	objects, err := s.listObjects(ctx, sessionPrefix(sessionID))
	if err != nil {
		return nil, err
	}

	latest := make(map[string]objectVersion)
	for _, o := range objects {
		if cur, ok := latest[o.filename]; !ok || o.version > cur.version {
			latest[o.filename] = o
		}
	}

	out := make([]chat.ArtifactInfo, 0, len(latest))
	for _, name := range slices.Sorted(maps.Keys(latest)) {
		o := latest[name]
		mimeType := o.info.ContentType
		if mimeType == "" {
			mimeType = chat.DetectMimeType(name)
		}
		out = append(out, chat.ArtifactInfo{
			Filename:     name,
			MimeType:     mimeType,
			Size:         o.info.Size,
			LastModified: o.info.LastModified,
			Version:      o.version,
		})
	}
	return out, nil
}

func (s *S3Store) Versions(ctx context.Context, sessionID, filename string) ([]int, error) {
	objects, err := s.listObjects(ctx, filePrefix(sessionID, filename))
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, ErrNotFound
	}

	versions := make([]int, 0, len(objects))
	for _, o := range objects {
		versions = append(versions, o.version)
	}
	slices.Sort(versions)
	return versions, nil
}

func (s *S3Store) Fetch(ctx context.Context, sessionID, filename string, version int) ([]byte, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucketName, objectKey(sessionID, filename, version), minio.GetObjectOptions{})
	if err != nil {
		return nil, notFound(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFound(err)
	}
	return data, nil
}

func (s *S3Store) Upload(ctx context.Context, sessionID, filename, mimeType string, content []byte) (chat.ArtifactInfo, error) {
	if err := validateName(sessionID, filename); err != nil {
		return chat.ArtifactInfo{}, err
	}
	if mimeType == "" {
		mimeType = chat.DetectMimeType(filename)
	}

	next := 1
	versions, err := s.Versions(ctx, sessionID, filename)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return chat.ArtifactInfo{}, err
	default:
		next = versions[len(versions)-1] + 1
	}

	info, err := s.client.PutObject(ctx, s.bucketName, objectKey(sessionID, filename, next), bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return chat.ArtifactInfo{}, fmt.Errorf("put %s: %w", filename, err)
	}

	return chat.ArtifactInfo{
		Filename:     filename,
		MimeType:     mimeType,
		Size:         info.Size,
		LastModified: info.LastModified,
		Version:      next,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, sessionID, filename string) error {
	objects, err := s.listObjects(ctx, filePrefix(sessionID, filename))
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return ErrNotFound
	}

	for _, o := range objects {
		if err := s.client.RemoveObject(ctx, s.bucketName, o.info.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", o.info.Key, err)
		}
	}
	return nil
}

func (s *S3Store) BatchDelete(ctx context.Context, sessionID string, filenames []string) ([]string, error) {
	return DeleteEach(ctx, filenames, DefaultDeleteConcurrency, func(ctx context.Context, filename string) error {
		return s.Delete(ctx, sessionID, filename)
	})
}

func notFound(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrNotFound
	}
	return err
}

func sessionPrefix(sessionID string) string {
	return strings.TrimSpace(sessionID) + "/"
}

func filePrefix(sessionID, filename string) string {
	return sessionPrefix(sessionID) + strings.TrimSpace(filename) + "/"
}

func objectKey(sessionID, filename string, version int) string {
	return fmt.Sprintf("%sv%06d", filePrefix(sessionID, filename), version)
}

// parseObjectKey splits <session>/<filename>/v<version>.
func parseObjectKey(key string) (filename string, version int, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[1] == "" {
		return "", 0, false
	}
	raw, ok := strings.CutPrefix(parts[2], "v")
	if !ok {
		return "", 0, false
	}
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 {
		return "", 0, false
	}
	return parts[1], version, true
}
