package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"reelscribe/internal/adapters/ffmpeg"
	"reelscribe/internal/adapters/openai"
	"reelscribe/internal/adapters/ytdlp"
	"reelscribe/internal/config"
	"reelscribe/internal/core/domain"
	"reelscribe/internal/scratch"
	"reelscribe/internal/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		modelFlag   string
		outputFlag  string
		scratchFlag string
		verboseFlag bool
	)

	cmd := &cobra.Command{
		Use:   "reelscribe <instagram-url>",
		Short: "Fetch a short Instagram video and transcribe its audio",
		Long: `reelscribe downloads an Instagram reel, post or IGTV video, extracts
its audio track and transcribes it with the OpenAI speech API.

Examples:
  reelscribe https://www.instagram.com/reel/ABC123/
  reelscribe --model whisper-large-v3 --output text instagram.com/p/XYZ789`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Environment variables may also be set manually; a missing
			// .env file is fine.
			if err := godotenv.Load(); err != nil {
				fmt.Fprintln(os.Stderr, "No .env file found")
			}

			cfg := config.Load()
			if scratchFlag != "" {
				cfg.ScratchDir = scratchFlag
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration: %w", err)
			}

			level := slog.LevelWarn
			if verboseFlag {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			pipeline := service.NewPipeline(
				ytdlp.NewAcquirer(cfg.YtDlpPath, logger),
				ffmpeg.NewExtractor(cfg.FFmpegPath, cfg.ExtractTimeout, logger),
				openai.NewTranscriber(cfg.OpenAIKey, cfg.OpenAIBaseURL, logger),
				scratch.NewWorkspace(cfg.ScratchDir),
				logger,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := pipeline.Run(ctx, args[0], modelFlag)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), result, outputFlag)
		},
	}

	cmd.Flags().StringVarP(&modelFlag, "model", "m", openai.ModelWhisper1,
		fmt.Sprintf("transcription model (one of %v)", openai.SupportedModels))
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "json", "output format: json or text")
	cmd.Flags().StringVar(&scratchFlag, "scratch-dir", "", "override the scratch directory")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "log pipeline progress to stderr")

	return cmd
}

func render(w io.Writer, result *domain.TranscriptResult, format string) error {
	switch format {
	case "text":
		_, err := fmt.Fprintln(w, result.Transcript)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
