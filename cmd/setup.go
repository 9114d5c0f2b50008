package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"video2audio/domain/audio"
	"video2audio/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// ErrNotInteractive is returned when setup runs without a terminal
var ErrNotInteractive = errors.New("setup needs an interactive terminal")

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through storage directories, ffmpeg locations,
default audio settings, the web server and Google Drive publishing.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if !isInteractive(os.Stdin) {
		return ErrNotInteractive
	}
	path := cfgFile
	if path == "" {
		path = "config/config.yaml"
	}
	return RunSetupWithPrompter(DefaultPrompter, path, os.Stdout)
}

func isInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, output io.Writer) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm(filepath.Base(configPath)+" already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, "Welcome to video2audio setup!")
	fmt.Fprintln(output)

	cfg := config.Default()

	if err := promptPaths(prompter, cfg); err != nil {
		return err
	}
	if err := promptFFmpeg(prompter, cfg); err != nil {
		return err
	}
	if err := promptAudio(prompter, cfg); err != nil {
		return err
	}
	if err := promptServer(prompter, cfg); err != nil {
		return err
	}
	if err := promptGoogle(prompter, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Configuration saved to %s\n", configPath)
	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	uploads, err := prompter.Input("Where should uploaded videos be stored?", cfg.Paths.UploadsDirectory)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if uploads != "" {
		cfg.Paths.UploadsDirectory = uploads
	}

	processed, err := prompter.Input("Where should converted audio go?", cfg.Paths.ProcessedDirectory)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if processed != "" {
		cfg.Paths.ProcessedDirectory = processed
	}

	return nil
}

func promptFFmpeg(prompter Prompter, cfg *config.Config) error {
	ffmpegPath, err := prompter.Input("Path to ffmpeg?", cfg.FFmpeg.FFmpegPath)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffmpegPath != "" {
		cfg.FFmpeg.FFmpegPath = ffmpegPath
	}

	ffprobePath, err := prompter.Input("Path to ffprobe?", cfg.FFmpeg.FFprobePath)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if ffprobePath != "" {
		cfg.FFmpeg.FFprobePath = ffprobePath
	}

	return nil
}

func promptAudio(prompter Prompter, cfg *config.Config) error {
	names := make([]string, 0, len(audio.Profiles()))
	for _, p := range audio.Profiles() {
		names = append(names, p.Codec.String())
	}

	codec, err := prompter.Select("Default output codec?", names, cfg.Audio.Codec)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Audio.Codec = audio.ParseCodec(codec).String()

	if !audio.ParseCodec(codec).Profile().Lossless {
		bitrate, err := prompter.Input("Bitrate (empty picks one per file)?", cfg.Audio.Bitrate)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Audio.Bitrate = strings.TrimSpace(bitrate)
	}

	auto, err := prompter.Confirm("Probe each video to pick sample rate and channels?", true)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Audio.Auto = &auto

	loudnorm, err := prompter.Confirm("Normalize loudness?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Audio.Loudnorm = loudnorm

	return nil
}

func promptServer(prompter Prompter, cfg *config.Config) error {
	addr, err := prompter.Input("Web server listen address?", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if addr != "" {
		cfg.Server.Address = addr
	}

	workers, err := prompter.Input("How many batches may convert at once?", strconv.Itoa(cfg.Workers.MaxConcurrent))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil || n < 1 {
			return fmt.Errorf("concurrent batches must be a positive number")
		}
		cfg.Workers.MaxConcurrent = n
	}

	return nil
}

func promptGoogle(prompter Prompter, cfg *config.Config) error {
	publish, err := prompter.Confirm("Publish converted audio to Google Drive?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !publish {
		return nil
	}

	credentials, err := prompter.Input("Path to Google credentials file?", cfg.Google.CredentialsFile)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if credentials != "" {
		cfg.Google.CredentialsFile = credentials
	}

	folder, err := prompter.Input("Google Drive folder ID?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if folder == "" {
		return fmt.Errorf("folder ID is required")
	}
	cfg.Google.FolderID = folder

	return nil
}
