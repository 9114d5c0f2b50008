package distribution

import (
	"context"
	"time"
)

// DriveClient defines the interface for Google Drive operations used when publishing artifacts
// This is a port that can be implemented by different infrastructure adapters
type DriveClient interface {
	// FindFileByName returns the file with the given name in a folder, or nil if absent
	FindFileByName(ctx context.Context, folderID, fileName string) (*FileInfo, error)

	// GetStorageQuota returns the current storage quota information
	GetStorageQuota(ctx context.Context) (*StorageInfo, error)

	// ListAudioFiles lists the audio files in a folder, oldest first
	ListAudioFiles(ctx context.Context, folderID string) ([]FileInfo, error)

	// DeletePermanently deletes a file permanently (bypasses trash)
	DeletePermanently(ctx context.Context, fileID string) error

	// UploadAndShare uploads a file and makes it readable by anyone with the link
	UploadAndShare(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// FileInfo represents metadata about a file in Google Drive
type FileInfo struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	CreatedTime time.Time
}

// StorageInfo is the account quota checked before an upload.
// A zero TotalBytes means the account has no limit.
type StorageInfo struct {
	TotalBytes     int64
	UsedBytes      int64
	AvailableBytes int64
}

// HasSpaceFor reports whether bytes more can be stored; replacing a larger file needs none
func (s StorageInfo) HasSpaceFor(bytes int64) bool {
	return bytes <= 0 || s.AvailableBytes >= bytes
}
