package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const minimalConfig = `bookflow:
  name: "TestApp"
  version: "1.0"
books:
  - symbol: "tBTCUSD"
    precision: "P0"
    frequency: "F0"
    length: "25"
`

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Bookflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Bookflow.Name)
	}
	if len(cfg.Books) != 1 || cfg.Books[0].Symbol != "tBTCUSD" {
		t.Errorf("unexpected books: %+v", cfg.Books)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Venue.URL != "wss://api-pub.bitfinex.com/ws/2" {
		t.Errorf("unexpected default url: %s", cfg.Venue.URL)
	}
	if cfg.Replica.RecordingWindow != 3300*time.Second {
		t.Errorf("unexpected default recording window: %s", cfg.Replica.RecordingWindow)
	}
	if cfg.Replica.ResyncTimeout != 30*time.Second {
		t.Errorf("unexpected default resync timeout: %s", cfg.Replica.ResyncTimeout)
	}
	if cfg.Channels.EventBuffer != 256 {
		t.Errorf("unexpected default event buffer: %d", cfg.Channels.EventBuffer)
	}
	if cfg.Journal.Directory != "data" {
		t.Errorf("unexpected default journal directory: %s", cfg.Journal.Directory)
	}
}

func TestLoadConfigMissingBooks(t *testing.T) {
	path := writeTempConfig(t, `bookflow:
  name: "TestApp"
  version: "1.0"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing book subscriptions")
	}
}

func TestLoadConfigBadSymbolPrefix(t *testing.T) {
	path := writeTempConfig(t, `bookflow:
  name: "TestApp"
  version: "1.0"
books:
  - symbol: "BTCUSD"
    precision: "P0"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for symbol without t or f prefix")
	}
}

func TestLoadConfigS3Validation(t *testing.T) {
	path := writeTempConfig(t, minimalConfig+`journal:
  directory: "data"
  s3:
    enabled: true
    bucket: "Invalid_Bucket"
    region: "us-east-1"
    access_key_id: "id"
    secret_access_key: "secret"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid bucket name")
	}
}

func TestLoadConfigS3EnvOverride(t *testing.T) {
	t.Setenv("S3_BUCKET", "override-bucket")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "env-id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")

	path := writeTempConfig(t, minimalConfig+`journal:
  directory: "data"
  s3:
    enabled: true
    bucket: "file-bucket"
    region: "us-east-1"
    access_key_id: "file-id"
    secret_access_key: "file-secret"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Journal.S3.Bucket != "override-bucket" {
		t.Errorf("bucket = %s, want env override", cfg.Journal.S3.Bucket)
	}
	if cfg.Journal.S3.Region != "eu-west-1" {
		t.Errorf("region = %s, want env override", cfg.Journal.S3.Region)
	}
	if cfg.Journal.S3.AccessKeyID != "env-id" || cfg.Journal.S3.SecretAccessKey != "env-secret" {
		t.Error("credentials not overridden from environment")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	valid := []string{"my-bucket", "logs.bookflow.io", "abc"}
	for _, name := range valid {
		if !isValidS3Bucket(name) {
			t.Errorf("%q should be valid", name)
		}
	}
	invalid := []string{"ab", "UPPER", "has_underscore", ".leading", "trailing.", "double..dot"}
	for _, name := range invalid {
		if isValidS3Bucket(name) {
			t.Errorf("%q should be invalid", name)
		}
	}
}
