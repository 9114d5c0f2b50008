package distribution

import (
	"path/filepath"
	"strings"
)

// UploadRequest contains the parameters needed to upload a file to Google Drive
type UploadRequest struct {
	LocalPath string // Full path to the local file
	FileName  string // Target filename in Google Drive
	FolderID  string // Target folder ID in Google Drive
	MimeType  string // MIME type of the file
}

// UploadResult contains the result of a successful upload
type UploadResult struct {
	FileID       string // Google Drive file ID
	FileName     string // Name of the uploaded file
	ShareableURL string // URL for sharing the file
	Size         int64  // Size of the uploaded file in bytes
}

// MIME types of the audio artifacts we publish
const (
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeM4A  = "audio/mp4"
	MimeTypeWAV  = "audio/wav"
	MimeTypeFLAC = "audio/flac"
	MimeTypeBin  = "application/octet-stream"
)

// MimeTypeFor returns the MIME type for an artifact based on its extension
func MimeTypeFor(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".mp3":
		return MimeTypeMP3
	case ".m4a":
		return MimeTypeM4A
	case ".wav":
		return MimeTypeWAV
	case ".flac":
		return MimeTypeFLAC
	default:
		return MimeTypeBin
	}
}
