package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-proctor-inspector/internal/analyzer"
	"go-proctor-inspector/internal/config"
	apperrors "go-proctor-inspector/internal/errors"
	"go-proctor-inspector/internal/factory"
	"go-proctor-inspector/internal/logger"
	"go-proctor-inspector/internal/observer"
	"go-proctor-inspector/internal/video"
	"go-proctor-inspector/pkg/models"
	"go-proctor-inspector/pkg/validation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// errCheated signals a completed analysis with a positive verdict
var errCheated = errors.New("cheating detected")

// analyzeOptions holds flags for the analyze command
type analyzeOptions struct {
	InputPath   string
	Decoder     string
	Detector    string
	DetectorURL string
	Script      string
	PythonPath  string
	MaxFaces    int
	Pretty      bool
	Quiet       bool
	FailOnCheat bool
	Verbose     bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a recording and print the verdict as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context(), analyzeOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.InputPath, "input", "i", "", "Path to a .webm or .mp4 recording")
	analyzeCmd.Flags().StringVar(&analyzeOpts.Decoder, "decoder", "", "Decoder backend: ffmpeg or gocv (default from DECODER)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.Detector, "detector", "", "Landmark backend: python or websocket (default from DETECTOR)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.DetectorURL, "detector-url", "", "Landmark service URL for the websocket backend")
	analyzeCmd.Flags().StringVar(&analyzeOpts.Script, "script", "", "Path to the FaceMesh worker script")
	analyzeCmd.Flags().StringVar(&analyzeOpts.PythonPath, "python", "", "Python interpreter for the worker")
	analyzeCmd.Flags().IntVar(&analyzeOpts.MaxFaces, "max-faces", 0, "Maximum faces the model reports per frame")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Pretty, "pretty", false, "Indent the JSON output")
	analyzeCmd.Flags().BoolVarP(&analyzeOpts.Quiet, "quiet", "q", false, "Hide the progress bar")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.FailOnCheat, "fail-on-cheat", false, "Exit with status 2 when cheating is detected")
	analyzeCmd.Flags().BoolVarP(&analyzeOpts.Verbose, "verbose", "v", false, "Log analysis events to stderr")

	analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}

// applyFlags overrides env configuration with any flags that were set
func applyFlags(cfg *config.Config, opts analyzeOptions) {
	if opts.Decoder != "" {
		cfg.Decoder = strings.ToLower(strings.TrimSpace(opts.Decoder))
	}
	if opts.Detector != "" {
		cfg.Detector = strings.ToLower(strings.TrimSpace(opts.Detector))
	}
	if opts.DetectorURL != "" {
		cfg.DetectorURL = opts.DetectorURL
	}
	if opts.Script != "" {
		cfg.DetectorScript = opts.Script
	}
	if opts.PythonPath != "" {
		cfg.PythonPath = opts.PythonPath
	}
	if opts.MaxFaces > 0 {
		cfg.DetectorMaxFaces = opts.MaxFaces
	}
}

func runAnalyze(ctx context.Context, opts analyzeOptions, stdout, stderr io.Writer) error {
	if err := validation.NewUploadValidator().ValidateFilename(opts.InputPath); err != nil {
		return errors.New(apperrors.GetDetail(err))
	}
	if _, err := os.Stat(opts.InputPath); err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Discard()
	if opts.Verbose {
		log = logger.New(logger.Options{Level: "debug", Format: "text", Output: stderr})
	}

	decoder, err := factory.CreateDecoder(cfg, log)
	if err != nil {
		return err
	}
	detectors, err := factory.CreateDetectorFactory(cfg, log)
	if err != nil {
		return err
	}

	publisher := observer.NewEventPublisher(log)
	publisher.Subscribe(observer.NewLoggingObserver(log))
	if !opts.Quiet {
		total := estimateFrames(ctx, decoder, opts.InputPath, log)
		publisher.Subscribe(observer.NewProgressObserver(stderr, total, "Analyzing"))
	}

	a := analyzer.New(decoder, detectors, analyzer.WithPublisher(publisher), analyzer.WithLogger(log))
	result, err := a.Analyze(ctx, opts.InputPath)
	if err != nil {
		return errors.New(apperrors.GetDetail(err))
	}

	if err := writeResult(stdout, result, opts.Pretty); err != nil {
		return err
	}
	if opts.FailOnCheat && result.Cheated {
		return errCheated
	}
	return nil
}

// estimateFrames asks ffprobe for a frame count; zero means unknown
func estimateFrames(ctx context.Context, decoder video.Decoder, path string, log *logrus.Logger) int {
	ff, ok := decoder.(*video.FFmpegDecoder)
	if !ok {
		return 0
	}
	info, err := ff.Probe(ctx, path)
	if err != nil {
		log.WithError(err).Debug("frame count unavailable")
		return 0
	}
	return info.Frames
}

func writeResult(w io.Writer, result *models.AnalysisResult, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func exitCode(err error) int {
	if errors.Is(err, errCheated) {
		return 2
	}
	return 1
}
