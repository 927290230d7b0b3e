package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/config"
	"github.com/bilgisen/letterpress/internal/utils"
)

// ContentType is stored with every uploaded document.
const ContentType = "text/html; charset=utf-8"

// S3Client is the subset of the S3 API used for uploads.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Result locates an uploaded newsletter.
type Result struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Uploader stores rendered newsletters in an S3-compatible bucket.
type Uploader struct {
	client  S3Client
	bucket  string
	baseURL string
	now     func() time.Time
}

type Option func(*Uploader)

// WithClient replaces the S3 client, e.g. with a mock.
func WithClient(c S3Client) Option {
	return func(u *Uploader) { u.client = c }
}

// WithClock replaces time.Now for key dating.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) { u.now = now }
}

// NewR2Uploader builds an uploader for Cloudflare R2 from the R2_* settings.
func NewR2Uploader(ctx context.Context, cfg *config.Config, opts ...Option) (*Uploader, error) {
	if !cfg.R2Configured() {
		return nil, apperr.Configuration("export storage not configured")
	}

	endpoint := cfg.R2Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	}
	endpoint = strings.TrimSuffix(endpoint, "/")

	baseURL := cfg.R2PublicURL
	if baseURL == "" {
		baseURL = endpoint + "/" + cfg.R2Bucket
	}

	u := &Uploader{
		bucket:  cfg.R2Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}

	if u.client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion("auto"),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, "")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load storage config: %w", err)
		}
		u.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return u, nil
}

// Key returns the object key for a document: newsletters/yyyy/mm/<hash>-<slug>.html.
func (u *Uploader) Key(title, html string) string {
	now := u.now().UTC()
	return fmt.Sprintf("newsletters/%04d/%02d/%s-%s.html",
		now.Year(), int(now.Month()), utils.Hash(html)[:16], utils.Slug(title, 60, "newsletter"))
}

// Upload stores html and returns its key and public URL.
func (u *Uploader) Upload(ctx context.Context, title, html string) (*Result, error) {
	key := u.Key(title, html)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         strings.NewReader(html),
		ContentType:  aws.String(ContentType),
		CacheControl: aws.String("public, max-age=3600"),
	})
	if err != nil {
		return nil, apperr.Upstream("failed to upload newsletter", err)
	}

	return &Result{Key: key, URL: u.baseURL + "/" + key}, nil
}
