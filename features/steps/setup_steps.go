//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"video2audio/cmd"
	"video2audio/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	setupCancelled  bool
	originalContent string
	output          *bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	selectResponses  []string
	inputIndex       int
	confirmIndex     int
	selectIndex      int
}

func NewMockPrompter(inputs []string, confirms []bool, selects []string) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
		selectResponses:  selects,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		return defaultValue, nil
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	if response == "" {
		return defaultValue, nil
	}
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func (m *MockPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	if m.selectIndex >= len(m.selectResponses) {
		return defaultValue, nil
	}
	response := m.selectResponses[m.selectIndex]
	m.selectIndex++
	return response, nil
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		// Create temp directory for each scenario
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config", "config.yaml")
		testCtx.setupCancelled = false
		testCtx.originalContent = ""
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, testCtx.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, testCtx.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run the setup command with answers:$`, testCtx.iRunTheSetupCommandWithAnswers)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, testCtx.iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^a config file should exist$`, testCtx.aConfigFileShouldExist)
	ctx.Step(`^the config should have uploads_directory "([^"]*)"$`, testCtx.theConfigShouldHave(func(c *config.Config) string { return c.Paths.UploadsDirectory }))
	ctx.Step(`^the config should have processed_directory "([^"]*)"$`, testCtx.theConfigShouldHave(func(c *config.Config) string { return c.Paths.ProcessedDirectory }))
	ctx.Step(`^the config should have codec "([^"]*)"$`, testCtx.theConfigShouldHave(func(c *config.Config) string { return c.Audio.Codec }))
	ctx.Step(`^the config should have bitrate "([^"]*)"$`, testCtx.theConfigShouldHave(func(c *config.Config) string { return c.Audio.Bitrate }))
	ctx.Step(`^the config should have address "([^"]*)"$`, testCtx.theConfigShouldHave(func(c *config.Config) string { return c.Server.Address }))
	ctx.Step(`^the config should have folder_id "([^"]*)"$`, testCtx.theConfigShouldHave(func(c *config.Config) string { return c.Google.FolderID }))
	ctx.Step(`^the config should have (\d+) concurrent batches$`, testCtx.theConfigShouldHaveConcurrentBatches)
	ctx.Step(`^the setup should fail with "([^"]*)"$`, testCtx.theSetupShouldFailWith)
	ctx.Step(`^the setup should be cancelled$`, testCtx.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, testCtx.theExistingConfigShouldBeUnchanged)
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `paths:
  uploads_directory: "/original/uploads"
  processed_directory: "/original/processed"
audio:
  codec: "aac"
google:
  folder_id: "original-folder-id"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

// iRunTheSetupCommandWithAnswers feeds a | kind | answer | table to the prompter in order.
// kind is input, confirm or select; an empty input answer keeps the default.
func (s *setupContext) iRunTheSetupCommandWithAnswers(table *godog.Table) error {
	var inputs, selects []string
	var confirms []bool
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		value := row.Cells[1].Value
		switch strings.ToLower(row.Cells[0].Value) {
		case "confirm":
			confirms = append(confirms, strings.ToLower(value) == "y")
		case "select":
			selects = append(selects, value)
		default:
			inputs = append(inputs, value)
		}
	}

	s.err = cmd.RunSetupWithPrompter(NewMockPrompter(inputs, confirms, selects), s.configPath, s.output)
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	prompter := NewMockPrompter(nil, []bool{confirm}, nil)

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, s.output)
	if !confirm {
		s.setupCancelled = strings.Contains(s.output.String(), "Setup cancelled.")
	}
	return nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) theConfigShouldHave(field func(*config.Config) string) func(string) error {
	return func(expected string) error {
		cfg, err := config.Load(s.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if got := field(cfg); got != expected {
			return fmt.Errorf("expected %q, got %q", expected, got)
		}
		return nil
	}
}

func (s *setupContext) theConfigShouldHaveConcurrentBatches(expected int) error {
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Workers.MaxConcurrent != expected {
		return fmt.Errorf("expected %d concurrent batches, got %d", expected, cfg.Workers.MaxConcurrent)
	}
	return nil
}

func (s *setupContext) theSetupShouldFailWith(fragment string) error {
	if s.err == nil {
		return fmt.Errorf("expected setup to fail")
	}
	if !strings.Contains(s.err.Error(), fragment) {
		return fmt.Errorf("expected error containing %q, got: %v", fragment, s.err)
	}
	return nil
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if !s.setupCancelled {
		return fmt.Errorf("expected setup to be cancelled")
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
