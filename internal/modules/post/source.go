package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appcfg "github.com/mx-space/memory-explorer/internal/config"
)

// maxDocumentSize caps how much of a posts document is read.
const maxDocumentSize = 64 << 20

// Source yields the raw posts document.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// FileSource reads the document from the local filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Fetch(_ context.Context) ([]byte, error) {
	return os.ReadFile(s.Path)
}

// HTTPSource downloads the document with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s HTTPSource) Name() string { return s.URL }

func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the document from an S3-compatible bucket.
type S3Source struct {
	Bucket string
	Key    string
	client objectGetter
}

func (s S3Source) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

func (s S3Source) Fetch(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(io.LimitReader(out.Body, maxDocumentSize))
}

// NewS3Client builds an S3 client from static configuration. Without keys
// requests are sent anonymously, which suits public buckets.
func NewS3Client(cfg appcfg.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return s3.New(opts)
}

// BuildSources turns the configured locations into sources, in order.
// Relative paths are resolved against cfg.BaseURL when it is set.
func BuildSources(cfg appcfg.DataConfig) ([]Source, error) {
	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	var s3Client objectGetter

	var base *neturl.URL
	if cfg.BaseURL != "" {
		parsed, err := neturl.Parse(cfg.BaseURL + "/")
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid data.base_url %q", cfg.BaseURL)
		}
		base = parsed
	}

	sources := make([]Source, 0, len(cfg.Sources))
	for _, raw := range cfg.Sources {
		switch {
		case strings.HasPrefix(raw, "s3://"):
			bucket, key, ok := strings.Cut(strings.TrimPrefix(raw, "s3://"), "/")
			if !ok || bucket == "" || key == "" {
				return nil, fmt.Errorf("invalid s3 source %q, expected s3://bucket/key", raw)
			}
			if s3Client == nil {
				s3Client = NewS3Client(cfg.S3)
			}
			sources = append(sources, S3Source{Bucket: bucket, Key: key, client: s3Client})
		case strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://"):
			sources = append(sources, HTTPSource{URL: raw, Client: httpClient})
		case base != nil:
			ref, err := neturl.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid source %q: %w", raw, err)
			}
			sources = append(sources, HTTPSource{URL: base.ResolveReference(ref).String(), Client: httpClient})
		default:
			sources = append(sources, FileSource{Path: raw})
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no post sources configured")
	}
	return sources, nil
}
