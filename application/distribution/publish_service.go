package distribution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"video2audio/domain/distribution"
)

// ErrInsufficientStorage is returned when the Drive account cannot hold the artifact
var ErrInsufficientStorage = errors.New("insufficient drive storage")

// PublishService uploads finished audio artifacts to Google Drive
type PublishService struct {
	driveClient distribution.DriveClient
	folderID    string
	output      io.Writer
	cleanup     *CleanupService
}

// NewPublishService creates a new publish service
func NewPublishService(client distribution.DriveClient, folderID string, output io.Writer) *PublishService {
	if output == nil {
		output = io.Discard
	}
	return &PublishService{
		driveClient: client,
		folderID:    folderID,
		output:      output,
	}
}

// EnablePruning lets Publish delete the oldest audio in the folder when the quota is short
func (s *PublishService) EnablePruning() {
	s.cleanup = NewCleanupService(s.driveClient, s.folderID)
}

// Publish uploads an artifact with public link sharing, replacing a previous upload of the same name
func (s *PublishService) Publish(ctx context.Context, filePath string) (*distribution.UploadResult, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("not a file: %s", filePath)
	}

	fileName := filepath.Base(filePath)

	existing, err := s.driveClient.FindFileByName(ctx, s.folderID, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing file: %w", err)
	}

	quota, err := s.driveClient.GetStorageQuota(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check storage: %w", err)
	}
	needed := stat.Size()
	if existing != nil {
		needed -= existing.Size
	}
	if !quota.HasSpaceFor(needed) {
		if s.cleanup == nil {
			return nil, fmt.Errorf("%w: need %d bytes, %d available", ErrInsufficientStorage, needed, quota.AvailableBytes)
		}
		if err := s.prune(ctx, needed, existing); err != nil {
			return nil, err
		}
	}

	if existing != nil {
		fmt.Fprintf(s.output, "  Replacing existing %s (%.1f MB)\n", existing.Name, float64(existing.Size)/1024/1024)
		if err := s.driveClient.DeletePermanently(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
		}
	}

	req := distribution.UploadRequest{
		LocalPath: filePath,
		FileName:  fileName,
		FolderID:  s.folderID,
		MimeType:  distribution.MimeTypeFor(fileName),
	}

	result, err := s.driveClient.UploadAndShare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload and share %s: %w", fileName, err)
	}

	return result, nil
}

func (s *PublishService) prune(ctx context.Context, needed int64, existing *distribution.FileInfo) error {
	var keep []string
	if existing != nil {
		keep = append(keep, existing.ID)
	}
	result, err := s.cleanup.EnsureSpaceAvailable(ctx, needed, keep...)
	if result != nil {
		for _, f := range result.DeletedFiles {
			fmt.Fprintf(s.output, "  Pruned %s (%.1f MB)\n", f.Name, float64(f.Size)/1024/1024)
		}
	}
	return err
}
