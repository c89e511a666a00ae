package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"healthwatch/pkg/logx"
)

const (
	// listPageSize bounds one list request. Sized for a one-week report
	// history at the 5-minute trigger interval:
	// 12 runs/hour * 24 hours * 7 days + 1 (digest object) = 2017.
	listPageSize = 2017

	// defaultDeleteBatch caps keys per delete request. The API rejects more
	// than 1000 keys per call and fails confusingly near the ceiling, so keep
	// a wide margin.
	defaultDeleteBatch = 500
)

type s3Store struct {
	client      *s3.Client
	bucket      string
	deleteBatch int
	log         logx.Logger
}

func newS3(cfg Config, awsCfg aws.Config, log logx.Logger) (Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage.bucket is required for the s3 driver")
	}
	batch := cfg.MaxDeleteBatch
	if batch <= 0 || batch > 1000 {
		batch = defaultDeleteBatch
	}
	return &s3Store{
		client:      s3.NewFromConfig(awsCfg),
		bucket:      cfg.Bucket,
		deleteBatch: batch,
		log:         log,
	}, nil
}

func (s *s3Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return err
}

func (s *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *s3Store) List(ctx context.Context) ([]ObjectInfo, error) {
	var (
		objects []ObjectInfo
		token   *string
	)
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			MaxKeys:           aws.Int32(listPageSize),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			objects = append(objects, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if !aws.ToBool(out.IsTruncated) {
			return objects, nil
		}
		token = out.NextContinuationToken
	}
}

// Delete removes keys in size-bounded batches and returns the keys the
// service confirmed deleted. A failed batch is logged and does not stop the
// remaining batches.
func (s *s3Store) Delete(ctx context.Context, keys []string) ([]string, error) {
	var deleted []string
	for start := 0; start < len(keys); start += s.deleteBatch {
		end := start + s.deleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		ids := make([]s3types.ObjectIdentifier, 0, len(batch))
		for _, k := range batch {
			ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(k)})
		}
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(false)},
		})
		if err != nil {
			s.log.Error("delete batch failed", logx.Int("keys", len(batch)), logx.Err(err))
			continue
		}
		for _, d := range out.Deleted {
			deleted = append(deleted, aws.ToString(d.Key))
		}
	}
	return deleted, nil
}

func (s *s3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *s3Store) Close() error { return nil }
