package helpers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/spektr-org/cncwatch/engine"
	"github.com/spektr-org/cncwatch/schema"
)

// ============================================================================
// DATASET SOURCES — Local files, S3 objects, compressed variants
// ============================================================================
// URI forms:
//   /data/cnc.csv             local file
//   s3://bucket/key/cnc.csv   S3 or any S3-compatible endpoint
// A ".gz" suffix is gunzipped and ".zst"/".zstd" is zstd-decoded on the fly.
// ============================================================================

// S3Config configures the client used for s3:// sources. Empty keys fall
// back to the default AWS credential chain.
type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// S3GetObjectAPI is the slice of the S3 client the loader needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader resolves a URI to bytes and parses them into a Dataset.
// Safe for concurrent use.
type Loader struct {
	schema schema.Config
	s3cfg  S3Config
	logger *zap.Logger

	s3Once   sync.Once
	s3Client S3GetObjectAPI
	s3Err    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSchema overrides the default column contract.
func WithSchema(sch schema.Config) LoaderOption {
	return func(l *Loader) { l.schema = sch }
}

// WithS3Config sets the S3 endpoint and credentials.
func WithS3Config(cfg S3Config) LoaderOption {
	return func(l *Loader) { l.s3cfg = cfg }
}

// WithS3Client injects a ready client, skipping client construction.
func WithS3Client(client S3GetObjectAPI) LoaderOption {
	return func(l *Loader) { l.s3Client = client }
}

// WithLoaderLogger routes load diagnostics to logger.
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader using schema.Default unless overridden.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{schema: schema.Default(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Schema returns the column contract the loader binds against.
func (l *Loader) Schema() schema.Config { return l.schema }

// Load opens uri, decompresses it if needed and parses the CSV.
// Every failure is a *engine.LoadError.
func (l *Loader) Load(ctx context.Context, uri string) (*engine.Dataset, error) {
	started := time.Now()

	rc, err := l.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ds, err := ParseCSV(rc, uri, l.schema)
	if err != nil {
		l.logger.Warn("dataset load failed", zap.String("source", uri), zap.Error(err))
		return nil, err
	}

	l.logger.Info("dataset loaded",
		zap.String("source", uri),
		zap.Int("records", ds.Len()),
		zap.Int("measures", len(ds.MeasureKeys())),
		zap.Duration("elapsed", time.Since(started)))
	return ds, nil
}

// Open returns the decompressed byte stream behind uri.
func (l *Loader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	var (
		raw io.ReadCloser
		err error
	)
	if strings.HasPrefix(uri, "s3://") {
		raw, err = l.openS3(ctx, uri)
	} else {
		raw, err = openFile(uri)
	}
	if err != nil {
		return nil, err
	}

	rc, err := decompress(raw, uri)
	if err != nil {
		raw.Close()
		return nil, &engine.LoadError{Kind: engine.KindSource, Source: uri, Err: err}
	}
	return rc, nil
}

func openFile(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &engine.LoadError{Kind: engine.KindNotFound, Source: p, Err: err}
	}
	if err != nil {
		return nil, &engine.LoadError{Kind: engine.KindSource, Source: p, Err: err}
	}
	return f, nil
}

// ============================================================================
// S3
// ============================================================================

// ParseS3URI splits "s3://bucket/key" into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri needs bucket and key: %q", uri)
	}
	return bucket, key, nil
}

func (l *Loader) openS3(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, &engine.LoadError{Kind: engine.KindSource, Source: uri, Err: err}
	}

	client, err := l.s3()
	if err != nil {
		return nil, &engine.LoadError{Kind: engine.KindSource, Source: uri, Err: err}
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noKey) || errors.As(err, &noBucket) {
			return nil, &engine.LoadError{Kind: engine.KindNotFound, Source: uri, Err: err}
		}
		return nil, &engine.LoadError{Kind: engine.KindSource, Source: uri, Err: fmt.Errorf("get object %s/%s: %w", bucket, key, err)}
	}
	return out.Body, nil
}

// s3 builds the client on first use.
func (l *Loader) s3() (S3GetObjectAPI, error) {
	l.s3Once.Do(func() {
		if l.s3Client != nil {
			return
		}
		l.s3Client, l.s3Err = newS3Client(context.Background(), l.s3cfg)
	})
	return l.s3Client, l.s3Err
}

func newS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// ============================================================================
// DECOMPRESSION
// ============================================================================

// decompress wraps rc according to the extension of name.
func decompress(rc io.ReadCloser, name string) (io.ReadCloser, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".gz", ".gzip":
		zr, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(256*1024*1024))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		dec := zr.IOReadCloser()
		return &stackedCloser{Reader: dec, closers: []io.Closer{dec, rc}}, nil
	default:
		return rc, nil
	}
}

// stackedCloser closes a decoder and the stream underneath it.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
