package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	appdist "video2audio/application/distribution"
	"video2audio/domain/distribution"
	"video2audio/infrastructure/drive"

	"github.com/spf13/cobra"
)

var (
	publishFolderID string
	publishPrune    bool
)

var publishCmd = &cobra.Command{
	Use:   "publish [FILE...]",
	Short: "Upload converted audio to Google Drive with public sharing",
	Long: `Upload audio files to Google Drive and set public sharing.

Without arguments the most recently converted file in the processed
directory is published. A file with the same name already in the folder
is replaced. With --prune the oldest audio in the folder is deleted when
the Drive quota cannot hold the upload.

Example:
  video2audio publish
  video2audio publish processed/talk.mp3 processed/interview.m4a
  video2audio publish --prune`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&publishFolderID, "folder", "", "Drive folder ID (defaults to google.folder_id)")
	publishCmd.Flags().BoolVar(&publishPrune, "prune", false, "Delete the oldest audio in the folder when storage is short")
}

func runPublish(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	folderID := publishFolderID
	if folderID == "" {
		folderID = c.Google.FolderID
	}
	if folderID == "" {
		return fmt.Errorf("no Drive folder configured; set google.folder_id or pass --folder")
	}

	paths := args
	if len(paths) == 0 {
		latest, err := findLatestFile(c.Paths.ProcessedDirectory)
		if err != nil {
			return fmt.Errorf("no file specified and could not find latest: %w", err)
		}
		paths = []string{latest}
	}

	ctx := cmd.Context()
	client, err := drive.NewClientWithOAuth(ctx, drive.OAuthConfig{
		CredentialsFile: c.Google.CredentialsFile,
		TokenFile:       c.Google.TokenFile,
		Output:          os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("failed to create Google Drive client: %w", err)
	}

	return RunPublishWithDependencies(ctx, client, folderID, paths, publishPrune, os.Stdout)
}

// findLatestFile finds the most recently modified audio artifact in dir
func findLatestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}

	var latestPath string
	var latestTime time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if distribution.MimeTypeFor(entry.Name()) == distribution.MimeTypeBin {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestPath = filepath.Join(dir, entry.Name())
		}
	}

	if latestPath == "" {
		return "", fmt.Errorf("no audio files found in %s", dir)
	}

	return latestPath, nil
}

// RunPublishWithDependencies runs the publish command with injected dependencies (for testing)
func RunPublishWithDependencies(
	ctx context.Context,
	driveClient distribution.DriveClient,
	folderID string,
	paths []string,
	prune bool,
	output io.Writer,
) error {
	service := appdist.NewPublishService(driveClient, folderID, output)
	if prune {
		service.EnablePruning()
	}

	for _, path := range paths {
		fmt.Fprintf(output, "Uploading %s...\n", filepath.Base(path))
		result, err := service.Publish(ctx, path)
		if err != nil {
			return fmt.Errorf("upload of %s failed: %w", filepath.Base(path), err)
		}
		fmt.Fprintf(output, "Uploaded successfully!\n")
		fmt.Fprintf(output, "  File ID: %s\n", result.FileID)
		fmt.Fprintf(output, "  Size: %.2f MB\n", float64(result.Size)/1024/1024)
		fmt.Fprintf(output, "  Shareable URL: %s\n", result.ShareableURL)
		fmt.Fprintln(output)
	}

	fmt.Fprintf(output, "Publish complete!\n")
	return nil
}
