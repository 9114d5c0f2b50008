//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"video2audio/cmd"
	"video2audio/domain/distribution"

	"github.com/cucumber/godog"
)

// mockDriveClient keeps an in-memory Drive folder
type mockDriveClient struct {
	files     map[string]*distribution.FileInfo
	available int64
	deleted   []string
	uploads   []distribution.UploadRequest
}

func (m *mockDriveClient) FindFileByName(ctx context.Context, folderID, fileName string) (*distribution.FileInfo, error) {
	return m.files[fileName], nil
}

func (m *mockDriveClient) GetStorageQuota(ctx context.Context) (*distribution.StorageInfo, error) {
	return &distribution.StorageInfo{AvailableBytes: m.available}, nil
}

func (m *mockDriveClient) ListAudioFiles(ctx context.Context, folderID string) ([]distribution.FileInfo, error) {
	var files []distribution.FileInfo
	for _, f := range m.files {
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedTime.Before(files[j].CreatedTime) })
	return files, nil
}

func (m *mockDriveClient) DeletePermanently(ctx context.Context, fileID string) error {
	for name, f := range m.files {
		if f.ID == fileID {
			m.available += f.Size
			delete(m.files, name)
		}
	}
	m.deleted = append(m.deleted, fileID)
	return nil
}

func (m *mockDriveClient) UploadAndShare(ctx context.Context, req distribution.UploadRequest) (*distribution.UploadResult, error) {
	m.uploads = append(m.uploads, req)
	id := fmt.Sprintf("id-%d", len(m.uploads))
	m.files[req.FileName] = &distribution.FileInfo{ID: id, Name: req.FileName, MimeType: req.MimeType}
	return &distribution.UploadResult{
		FileID:       id,
		FileName:     req.FileName,
		ShareableURL: "https://drive.google.com/file/d/" + id + "/view?usp=sharing",
	}, nil
}

type publishContext struct {
	tempDir string
	client  *mockDriveClient
	prune   bool
	output  *bytes.Buffer
	err     error
}

var SharedPublishContext *publishContext

func getPublishContext() *publishContext {
	return SharedPublishContext
}

func InitializePublishScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "publish-test-*")
		if err != nil {
			return c, err
		}
		SharedPublishContext = &publishContext{
			tempDir: tempDir,
			client: &mockDriveClient{
				files:     make(map[string]*distribution.FileInfo),
				available: 1 << 30,
			},
			output: &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if p := getPublishContext(); p != nil {
			os.RemoveAll(p.tempDir)
		}
		SharedPublishContext = nil
		return c, nil
	})

	ctx.Step(`^a converted file "([^"]*)" of (\d+) bytes$`, aConvertedFileOfBytes)
	ctx.Step(`^Drive already holds "([^"]*)" with id "([^"]*)"$`, driveAlreadyHoldsWithID)
	ctx.Step(`^Drive has (\d+) bytes available$`, driveHasBytesAvailable)
	ctx.Step(`^Drive holds an older upload "([^"]*)" of (\d+) bytes from (\d{4}-\d{2}-\d{2})$`, driveHoldsAnOlderUpload)
	ctx.Step(`^pruning is enabled$`, pruningIsEnabled)
	ctx.Step(`^I publish "([^"]*)"$`, iPublish)
	ctx.Step(`^Drive should hold "([^"]*)" as "([^"]*)"$`, driveShouldHoldAs)
	ctx.Step(`^the Drive file "([^"]*)" should have been deleted$`, theDriveFileShouldHaveBeenDeleted)
	ctx.Step(`^the publish output should mention "([^"]*)"$`, thePublishOutputShouldMention)
	ctx.Step(`^publishing should fail with "([^"]*)"$`, publishingShouldFailWith)
}

func aConvertedFileOfBytes(name string, size int) error {
	p := getPublishContext()
	return os.WriteFile(filepath.Join(p.tempDir, name), make([]byte, size), 0644)
}

func driveAlreadyHoldsWithID(name, id string) error {
	p := getPublishContext()
	p.client.files[name] = &distribution.FileInfo{ID: id, Name: name, Size: 1024}
	return nil
}

func driveHasBytesAvailable(n int) error {
	getPublishContext().client.available = int64(n)
	return nil
}

func driveHoldsAnOlderUpload(name string, size int, day string) error {
	created, err := time.Parse("2006-01-02", day)
	if err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	p := getPublishContext()
	p.client.files[name] = &distribution.FileInfo{ID: "id-" + name, Name: name, Size: int64(size), CreatedTime: created}
	return nil
}

func pruningIsEnabled() error {
	getPublishContext().prune = true
	return nil
}

func iPublish(name string) error {
	p := getPublishContext()
	p.err = cmd.RunPublishWithDependencies(
		context.Background(),
		p.client,
		"folder-123",
		[]string{filepath.Join(p.tempDir, name)},
		p.prune,
		p.output,
	)
	return nil
}

func driveShouldHoldAs(name, mimeType string) error {
	p := getPublishContext()
	if p.err != nil {
		return fmt.Errorf("publish failed: %w", p.err)
	}
	f, ok := p.client.files[name]
	if !ok {
		return fmt.Errorf("%s was not uploaded", name)
	}
	if f.MimeType != mimeType {
		return fmt.Errorf("expected MIME type %q, got %q", mimeType, f.MimeType)
	}
	return nil
}

func theDriveFileShouldHaveBeenDeleted(id string) error {
	p := getPublishContext()
	for _, d := range p.client.deleted {
		if d == id {
			return nil
		}
	}
	return fmt.Errorf("file %s was not deleted; deleted: %v", id, p.client.deleted)
}

func thePublishOutputShouldMention(fragment string) error {
	p := getPublishContext()
	if !strings.Contains(p.output.String(), fragment) {
		return fmt.Errorf("expected output to mention %q, got:\n%s", fragment, p.output.String())
	}
	return nil
}

func publishingShouldFailWith(fragment string) error {
	p := getPublishContext()
	if p.err == nil {
		return fmt.Errorf("expected publishing to fail")
	}
	if !strings.Contains(p.err.Error(), fragment) {
		return fmt.Errorf("expected error containing %q, got: %v", fragment, p.err)
	}
	return nil
}
