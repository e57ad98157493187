package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"uploadAI/config"
	"uploadAI/logger"
	"uploadAI/pipeline"
	"uploadAI/processors"
	"uploadAI/server"
	"uploadAI/storage"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "submit":
			runSubmit(cfg, log, os.Args[2:])
		case "generate":
			runGenerate(cfg, log, os.Args[2:])
		case "serve":
			runServer(cfg, log)
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
			fmt.Fprintln(os.Stderr, "usage:")
			fmt.Fprintln(os.Stderr, "  uploadAI [serve]                          start the HTTP API")
			fmt.Fprintln(os.Stderr, "  uploadAI submit [flags] <video>           convert, upload and transcribe a video")
			fmt.Fprintln(os.Stderr, "  uploadAI generate [flags] <id> <prompt>   stream a completion for a video")
			os.Exit(2)
		}
		return
	}

	runServer(cfg, log)
}

func runServer(cfg *config.Config, log *logger.Logger) {
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		log.WithError(err).Fatal("failed to create upload dir")
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open video store")
	}
	defer store.Close(ctx)
	log.WithField("store", cfg.Store).Info("video store ready")

	cli := processors.NewOpenAIClient(cfg)
	transcriber := processors.NewTranscriber(cfg, cli)
	completer := processors.NewCompleter(cfg, cli)

	srv := server.New(cfg, store, transcriber, completer, log)
	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// No WriteTimeout: completions stream for as long as the model talks.
	}

	go func() {
		log.WithField("addr", httpSrv.Addr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown did not complete cleanly")
	}
}

// runSubmit drives the client-side pipeline: convert the selected video to
// audio, upload it and request its transcription.
func runSubmit(cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:"+cfg.Port, "base URL of the API")
	prompt := fs.String("prompt", "", "comma-separated keywords mentioned in the video")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: uploadAI submit [flags] <video>")
		os.Exit(2)
	}

	p := pipeline.New(*serverURL, pipeline.NewTranscoder())
	p.OnStage = func(s pipeline.Stage) {
		log.WithField("stage", string(s)).Info("pipeline stage")
	}
	p.OnUploaded = func(id string) {
		fmt.Println(id)
	}

	if err := p.Submit(context.Background(), fs.Arg(0), *prompt); err != nil {
		log.WithError(err).WithField("stage", string(p.Stage())).Fatal("submission failed")
	}
}

// runGenerate streams a completion for an already transcribed video to stdout.
func runGenerate(cfg *config.Config, log *logger.Logger, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:"+cfg.Port, "base URL of the API")
	temperature := fs.Float64("temperature", 0.5, "sampling temperature in [0,1]")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: uploadAI generate [flags] <videoId> <prompt>")
		fmt.Fprintln(os.Stderr, "the prompt may contain {transcription} as a placeholder")
		os.Exit(2)
	}

	client := pipeline.NewClient(*serverURL)
	err := client.GenerateCompletion(context.Background(), fs.Arg(0), fs.Arg(1), float32(*temperature), os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("completion failed")
	}
	fmt.Println()
}
