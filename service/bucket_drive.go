package service

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"prime-nature-nuts/logger"
)

// DriveBucket stores images in a Google Drive folder shared as anyone-reader
type DriveBucket struct {
	client   *drive.Service
	folderID string
}

var _ ImageBucket = (*DriveBucket)(nil)

// NewDriveBucket creates a Drive-backed bucket.
// credentialsPath should be the path to the Service Account JSON file
func NewDriveBucket(ctx context.Context, credentialsPath, folderID string) (*DriveBucket, error) {
	driveService, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveBucket{
		client:   driveService,
		folderID: folderID,
	}, nil
}

// Upload creates the file in the folder, opens it to anyone with the link and
// returns its direct-view URL. Drive has no paths, so the object path's base
// name becomes the file name.
func (b *DriveBucket) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	file := &drive.File{
		Name:     path.Base(objectPath),
		MimeType: contentType,
		Parents:  []string{b.folderID},
	}

	created, err := b.client.Files.Create(file).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id, name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create drive file %s: %w", file.Name, err)
	}

	_, err = b.client.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to share drive file %s: %w", created.Id, err)
	}

	logger.Get().Info("☁️  Image uploaded to Drive",
		zap.String("fileId", created.Id), zap.String("name", created.Name))
	return DriveFileURL(created.Id), nil
}

// Name identifies the backend
func (b *DriveBucket) Name() string {
	return "drive:" + b.folderID
}

// DriveFileURL returns the direct-view URL of a Drive file
func DriveFileURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?id=%s", fileID)
}
