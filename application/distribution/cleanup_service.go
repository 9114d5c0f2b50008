package distribution

import (
	"context"
	"fmt"

	"video2audio/domain/distribution"
)

// CleanupService frees Drive storage by pruning old audio from the publish folder
type CleanupService struct {
	driveClient distribution.DriveClient
	folderID    string
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(client distribution.DriveClient, folderID string) *CleanupService {
	return &CleanupService{
		driveClient: client,
		folderID:    folderID,
	}
}

// EnsureSpaceAvailable deletes the oldest audio files until neededBytes fit.
// Files whose ID is in keep are never deleted.
func (s *CleanupService) EnsureSpaceAvailable(ctx context.Context, neededBytes int64, keep ...string) (*distribution.CleanupResult, error) {
	result := &distribution.CleanupResult{}

	for {
		storage, err := s.driveClient.GetStorageQuota(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to check storage: %w", err)
		}

		if storage.HasSpaceFor(neededBytes) {
			return result, nil
		}

		files, err := s.driveClient.ListAudioFiles(ctx, s.folderID)
		if err != nil {
			return result, fmt.Errorf("failed to list files: %w", err)
		}

		oldest, ok := firstDeletable(files, keep)
		if !ok {
			return result, fmt.Errorf("%w: no audio files left to delete, need %d bytes but only %d available",
				ErrInsufficientStorage, neededBytes, storage.AvailableBytes)
		}

		if err := s.driveClient.DeletePermanently(ctx, oldest.ID); err != nil {
			return result, fmt.Errorf("failed to delete %s: %w", oldest.Name, err)
		}

		result.DeletedFiles = append(result.DeletedFiles, distribution.DeletedFile{
			Name: oldest.Name,
			Size: oldest.Size,
		})
		result.FreedBytes += oldest.Size
	}
}

func firstDeletable(files []distribution.FileInfo, keep []string) (distribution.FileInfo, bool) {
next:
	for _, f := range files {
		for _, id := range keep {
			if f.ID == id {
				continue next
			}
		}
		return f, true
	}
	return distribution.FileInfo{}, false
}
