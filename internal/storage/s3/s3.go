// Package s3 provides an S3 storage backend. Directories are virtual: a
// directory exists while any key lives under it, and Mkdir writes an empty
// "dir/" marker object so empty directories survive.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/GriffinCanCode/fedfs/internal/shared/paths"
	"github.com/GriffinCanCode/fedfs/internal/storage"
	"github.com/GriffinCanCode/fedfs/internal/types"
)

const defaultRegion = "us-east-1"

// deleteBatch is the S3 limit on keys per DeleteObjects call.
const deleteBatch = 1000

// Backend implements storage.Backend using S3 or an S3-compatible endpoint
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3 backend. It does not contact the endpoint; use Ping.
func New(ctx context.Context, cfg storage.S3Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Backend{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func (b *Backend) Type() string { return storage.TypeS3 }

func (b *Backend) Close() error { return nil }

// Ping checks that the bucket is reachable with the configured credentials
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)})
	if err != nil {
		return types.Wrap(types.KindBackend, "ping", b.bucket, err)
	}
	return nil
}

// key maps a backend path to an object key
func (b *Backend) key(path string) string {
	p := storage.Clean(path)
	if p == paths.Root {
		return b.prefix
	}
	return b.prefix + p[1:]
}

// dirKey is the key prefix under which a directory's children live
func (b *Backend) dirKey(path string) string {
	k := b.key(path)
	if k == "" || strings.HasSuffix(k, "/") {
		return k
	}
	return k + "/"
}

// pathOf maps an object key back to a backend path
func (b *Backend) pathOf(key string) string {
	return storage.Clean(strings.TrimPrefix(key, b.prefix))
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func translate(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return storage.NotFound(op, path)
	}
	return types.Wrap(types.KindBackend, op, path, err)
}

// Stat describes path, falling back to a prefix probe for virtual directories
func (b *Backend) Stat(ctx context.Context, path string) (storage.Object, error) {
	p := storage.Clean(path)
	if p == paths.Root {
		return storage.Object{Path: p, IsDir: true}, nil
	}

	head, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if err == nil {
		return storage.Object{
			Path:        p,
			Size:        aws.ToInt64(head.ContentLength),
			ContentType: aws.ToString(head.ContentType),
			ETag:        strings.Trim(aws.ToString(head.ETag), `"`),
			ModifiedAt:  aws.ToTime(head.LastModified),
		}, nil
	}
	if !isNotFound(err) {
		return storage.Object{}, translate("stat", p, err)
	}

	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		Prefix:  aws.String(b.dirKey(p)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return storage.Object{}, translate("stat", p, err)
	}
	if len(out.Contents) == 0 {
		return storage.Object{}, storage.NotFound("stat", p)
	}
	return storage.Object{Path: p, IsDir: true}, nil
}

// List pages through the keys under dir
func (b *Backend) List(ctx context.Context, dir string, recursive bool) ([]storage.Object, error) {
	d := storage.Clean(dir)
	prefix := b.dirKey(d)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var out []storage.Object
	found := d == paths.Root
	dirs := make(map[string]bool)
	pager := s3.NewListObjectsV2Paginator(b.client, input)
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, translate("list", d, err)
		}
		for _, cp := range page.CommonPrefixes {
			found = true
			p := b.pathOf(aws.ToString(cp.Prefix))
			if !dirs[p] {
				dirs[p] = true
				out = append(out, storage.Object{Path: p, IsDir: true})
			}
		}
		for _, obj := range page.Contents {
			found = true
			k := aws.ToString(obj.Key)
			if k == prefix {
				continue
			}
			p := b.pathOf(k)
			if strings.HasSuffix(k, "/") {
				if !dirs[p] {
					dirs[p] = true
					out = append(out, storage.Object{Path: p, IsDir: true, ModifiedAt: aws.ToTime(obj.LastModified)})
				}
				continue
			}
			out = append(out, storage.Object{
				Path:       p,
				Size:       aws.ToInt64(obj.Size),
				ETag:       strings.Trim(aws.ToString(obj.ETag), `"`),
				ModifiedAt: aws.ToTime(obj.LastModified),
			})
		}
	}
	if !found {
		return nil, storage.NotFound("list", d)
	}

	if recursive {
		out = withImplicitDirs(d, out, dirs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// withImplicitDirs adds the directories implied by deep keys that have no
// marker object of their own.
func withImplicitDirs(root string, objs []storage.Object, dirs map[string]bool) []storage.Object {
	for _, obj := range objs {
		for parent := paths.Parent(obj.Path); parent != root && paths.IsWithin(parent, root); parent = paths.Parent(parent) {
			if dirs[parent] {
				break
			}
			dirs[parent] = true
			objs = append(objs, storage.Object{Path: parent, IsDir: true})
		}
	}
	return objs
}

// Read downloads the object at path
func (b *Backend) Read(ctx context.Context, path string) ([]byte, error) {
	p := storage.Clean(path)
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if err != nil {
		return nil, translate("read", p, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, translate("read", p, err)
	}
	return data, nil
}

// Write uploads data to path
func (b *Backend) Write(ctx context.Context, path string, data []byte) (storage.Object, error) {
	p := storage.Clean(path)
	if p == paths.Root {
		return storage.Object{}, storage.IsDirError("write", p)
	}
	out, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(p)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return storage.Object{}, translate("write", p, err)
	}
	return storage.Object{
		Path:       p,
		Size:       int64(len(data)),
		ETag:       strings.Trim(aws.ToString(out.ETag), `"`),
		ModifiedAt: time.Now().UTC(),
	}, nil
}

// Delete removes the object at path
func (b *Backend) Delete(ctx context.Context, path string) error {
	obj, err := b.Stat(ctx, path)
	if err != nil {
		return err
	}
	if obj.IsDir {
		return storage.IsDirError("delete", obj.Path)
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(obj.Path)),
	})
	return translate("delete", obj.Path, err)
}

// Mkdir writes a directory marker. Parents are implied by the key.
func (b *Backend) Mkdir(ctx context.Context, path string, _ bool) error {
	p := storage.Clean(path)
	if _, err := b.Stat(ctx, p); err == nil {
		return storage.Exists("mkdir", p)
	} else if !types.IsKind(err, types.KindNotFound) {
		return err
	}
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.dirKey(p)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	return translate("mkdir", p, err)
}

// Rmdir deletes every key under path
func (b *Backend) Rmdir(ctx context.Context, path string, recursive bool) error {
	p := storage.Clean(path)
	if p == paths.Root {
		return types.NewError(types.KindValidation, "rmdir", p, "cannot remove the backend root")
	}
	objs, err := b.List(ctx, p, true)
	if err != nil {
		return err
	}
	if !recursive && len(objs) > 0 {
		return storage.NotEmpty("rmdir", p)
	}

	keys := []string{b.dirKey(p)}
	for _, obj := range objs {
		if obj.IsDir {
			keys = append(keys, b.dirKey(obj.Path))
			continue
		}
		keys = append(keys, b.key(obj.Path))
	}

	for start := 0; start < len(keys); start += deleteBatch {
		end := start + deleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		ids := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(k)})
		}
		_, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return translate("rmdir", p, err)
		}
	}
	return nil
}

// Move copies a single object server-side and deletes the source.
// Directories are not supported.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	obj, err := b.Stat(ctx, src)
	if err != nil {
		return err
	}
	if obj.IsDir {
		return types.NewError(types.KindUnsupported, "move", obj.Path, "directory moves are not supported on S3")
	}
	d := storage.Clean(dst)
	_, err = b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(b.key(d)),
		CopySource: aws.String(b.bucket + "/" + b.key(obj.Path)),
	})
	if err != nil {
		return translate("move", obj.Path, err)
	}
	_, err = b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(obj.Path)),
	})
	return translate("move", obj.Path, err)
}
