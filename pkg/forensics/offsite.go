package forensics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/YashMmodi-7504/National-Logistics-Control-Tower-sub000/pkg/snapshot"
)

// s3Client is the slice of the S3 API the replicator uses.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Replicator copies snapshot payloads and metadata to an offsite S3 bucket.
// Replication is best effort and asynchronous; the local store remains the
// system of record and a failed upload never blocks the snapshot path.
type Replicator struct {
	client s3Client
	store  *snapshot.Store
	bucket string
	prefix string
	logger *slog.Logger
}

// NewReplicator wires an offsite replicator.
func NewReplicator(client s3Client, store *snapshot.Store, bucket, prefix string) *Replicator {
	return &Replicator{
		client: client,
		store:  store,
		bucket: bucket,
		prefix: prefix,
		logger: slog.Default().With("component", "offsite-replicator"),
	}
}

// Replicate uploads one snapshot's payload and metadata.
func (r *Replicator) Replicate(ctx context.Context, name string) error {
	payload, err := r.store.ReadPayload(name)
	if err != nil {
		return fmt.Errorf("replicate %q: %w", name, err)
	}
	if err := r.put(ctx, name+".payload.json", payload); err != nil {
		return err
	}

	meta, err := r.store.ReadMetadata(name)
	if err != nil {
		return fmt.Errorf("replicate %q: %w", name, err)
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("replicate %q: %w", name, err)
	}
	return r.put(ctx, name+".metadata.json", metaBytes)
}

// ReplicateAsync runs Replicate in the background, logging failures.
func (r *Replicator) ReplicateAsync(name string) {
	go func() {
		if err := r.Replicate(context.Background(), name); err != nil {
			r.logger.Error("offsite replication failed", "snapshot", name, "error", err)
		}
	}()
}

func (r *Replicator) put(ctx context.Context, key string, body []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(path.Join(r.prefix, key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
