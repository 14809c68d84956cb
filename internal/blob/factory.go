package blob

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Settings selects and configures a blob backend.
type Settings struct {
	Driver      Driver
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// SettingsFromEnv reads the blob settings from the process environment.
//
//	CHECKQC_BLOB_DRIVER: fs|s3|memory (default fs)
//	CHECKQC_BLOB_FS_ROOT: directory holding run folders when driver=fs (default .)
//	CHECKQC_BLOB_S3_BUCKET, CHECKQC_BLOB_S3_REGION, CHECKQC_BLOB_S3_ENDPOINT,
//	CHECKQC_BLOB_S3_PATH_STYLE: S3 driver settings
func SettingsFromEnv() Settings {
	return Settings{
		Driver:      Driver(os.Getenv("CHECKQC_BLOB_DRIVER")),
		FSRoot:      os.Getenv("CHECKQC_BLOB_FS_ROOT"),
		S3Bucket:    os.Getenv("CHECKQC_BLOB_S3_BUCKET"),
		S3Region:    os.Getenv("CHECKQC_BLOB_S3_REGION"),
		S3Endpoint:  os.Getenv("CHECKQC_BLOB_S3_ENDPOINT"),
		S3PathStyle: strings.EqualFold(os.Getenv("CHECKQC_BLOB_S3_PATH_STYLE"), "true"),
	}
}

// Open selects a Store implementation from settings.
func Open(ctx context.Context, s Settings) (Store, error) {
	driver := s.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(s.FSRoot)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    s.S3Bucket,
			Region:    s.S3Region,
			Endpoint:  s.S3Endpoint,
			PathStyle: s.S3PathStyle,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
