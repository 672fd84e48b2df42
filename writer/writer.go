// Package writer persists flushed journal records: a JSON file per
// recording window on local disk, with optional parquet export of the
// closing snapshot and optional upload to S3.
package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "bookflow/config"
	"bookflow/journal"
	"bookflow/logger"
)

// Writer consumes journal records and writes each one out according to the
// journal configuration.
type Writer struct {
	config   *appconfig.Config
	records  <-chan journal.Record
	s3Client *s3.Client
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
}

// NewWriter creates a journal writer. The S3 client is only built when
// upload is enabled in the configuration.
func NewWriter(cfg *appconfig.Config, records <-chan journal.Record) (*Writer, error) {
	log := logger.GetLogger()

	w := &Writer{
		config:  cfg,
		records: records,
		wg:      &sync.WaitGroup{},
		log:     log,
	}

	if cfg.Journal.S3.Enabled {
		ctx := context.Background()

		loadOpts := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Journal.S3.Region),
		}
		if cfg.Journal.S3.AccessKeyID != "" && cfg.Journal.S3.SecretAccessKey != "" {
			loadOpts = append(loadOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.Journal.S3.AccessKeyID,
					cfg.Journal.S3.SecretAccessKey,
					"",
				),
			))
		}

		awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			log.WithComponent("writer").WithError(err).Warn("failed to load AWS configuration")
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}

		creds, err := awsConfig.Credentials.Retrieve(ctx)
		if err != nil || !creds.HasKeys() {
			return nil, fmt.Errorf("aws credentials not found")
		}

		w.s3Client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Journal.S3.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Journal.S3.Endpoint)
			}
		})

		log.WithComponent("writer").WithFields(logger.Fields{
			"bucket":   cfg.Journal.S3.Bucket,
			"region":   cfg.Journal.S3.Region,
			"endpoint": cfg.Journal.S3.Endpoint,
		}).Info("s3 upload enabled")
	}

	return w, nil
}

// Start launches the consume loop.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	if err := os.MkdirAll(w.config.Journal.Directory, 0o755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	log := w.log.WithComponent("writer").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting journal writer")

	w.wg.Add(1)
	go w.worker()

	return nil
}

// Stop drains the record channel and waits for in-flight writes. Callers
// close the channel after the last producer has shut down.
func (w *Writer) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.log.WithComponent("writer").Info("stopping journal writer")
	w.wg.Wait()
	w.log.WithComponent("writer").Info("journal writer stopped")
}

func (w *Writer) worker() {
	defer w.wg.Done()

	log := w.log.WithComponent("writer").WithFields(logger.Fields{"worker": "journal"})
	log.Info("starting journal writer worker")

	for rec := range w.records {
		w.processRecord(rec)
	}
	log.Info("record channel closed, worker stopping")
}

// Filename returns the file a record is stored under. Interrupted windows
// carry a marker so downstream consumers can treat them differently.
func Filename(rec journal.Record) string {
	if rec.Interrupted {
		return fmt.Sprintf("data_%d_interrupted.json", rec.Key)
	}
	return fmt.Sprintf("data_%d.json", rec.Key)
}

func (w *Writer) processRecord(rec journal.Record) {
	flushID := uuid.New().String()
	log := w.log.WithComponent("writer").WithFields(logger.Fields{
		"flush_id":    flushID,
		"symbol":      rec.Symbol,
		"key":         rec.Key,
		"interrupted": rec.Interrupted,
		"deltas":      len(rec.Deltas),
	})

	data, err := json.Marshal(rec.Payload())
	if err != nil {
		log.WithError(err).Error("failed to serialize journal record")
		return
	}

	name := Filename(rec)
	dir := filepath.Join(w.config.Journal.Directory, rec.Symbol)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithError(err).Error("failed to create symbol directory")
		return
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.WithError(err).Error("failed to write journal file")
		return
	}
	logger.IncrementJournalFlush()
	log.WithFields(logger.Fields{"path": path, "file_size": len(data)}).Info("journal record written")

	var parquetData []byte
	if w.config.Journal.Parquet.Enabled {
		parquetData, err = buildParquet(rec, w.config.Journal.Parquet.Compression)
		if err != nil {
			log.WithError(err).Error("failed to build parquet snapshot")
		} else {
			pqPath := strings.TrimSuffix(path, ".json") + ".parquet"
			if err := os.WriteFile(pqPath, parquetData, 0o644); err != nil {
				log.WithError(err).Error("failed to write parquet file")
			}
		}
	}

	if w.s3Client == nil {
		return
	}

	if err := w.upload(flushID, w.s3Key(rec.Symbol, name), data, "application/json"); err != nil {
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": w.config.Journal.S3.Bucket}).
			Error("failed to upload journal record to S3")
		return
	}
	if parquetData != nil {
		pqName := strings.TrimSuffix(name, ".json") + ".parquet"
		if err := w.upload(flushID, w.s3Key(rec.Symbol, pqName), parquetData, "application/octet-stream"); err != nil {
			log.WithError(err).Error("failed to upload parquet snapshot to S3")
			return
		}
	}
	logger.IncrementS3Write()
	log.Info("journal record uploaded")
}

func (w *Writer) s3Key(symbol, name string) string {
	parts := []string{}
	if prefix := strings.Trim(w.config.Journal.S3.Prefix, "/"); prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts, symbol, name)
	return strings.Join(parts, "/")
}

func (w *Writer) upload(flushID, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Journal.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"flush-id":         flushID,
			"bookflow-version": w.config.Bookflow.Version,
		},
	}

	ctx := context.WithoutCancel(w.ctx)
	if _, err := w.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Journal.S3.Bucket, err)
	}
	return nil
}
