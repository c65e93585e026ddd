package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vectorize/internal/infra"
	"vectorize/internal/providers/genai"
	"vectorize/internal/session"
	"vectorize/internal/storage"
	"vectorize/internal/styles"
	"vectorize/internal/upload"
)

func main() {
	var (
		inFlag    string
		styleFlag string
		outFlag   string
		listFlag  bool
	)
	flag.StringVar(&inFlag, "in", "", "Path of the photo to convert")
	flag.StringVar(&styleFlag, "style", "", "Style preset id (defaults to the first preset)")
	flag.StringVar(&outFlag, "out", ".", "Directory for the generated PNG")
	flag.BoolVar(&listFlag, "list", false, "List style presets and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	catalog, err := styles.Load(cfg.StylesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load styles: %v\n", err)
		os.Exit(1)
	}

	if listFlag {
		for _, p := range catalog.All() {
			fmt.Printf("%-10s %-20s %s\n", p.ID, p.Name, p.Description)
		}
		return
	}

	if strings.TrimSpace(inFlag) == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		flag.Usage()
		os.Exit(2)
	}

	preset := catalog.Default()
	if styleFlag != "" {
		if preset, err = catalog.Lookup(styleFlag); err != nil {
			fmt.Fprintf(os.Stderr, "unknown style %q; run with -list to see the presets\n", styleFlag)
			os.Exit(1)
		}
	}

	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "vectorize").Str("style", preset.ID).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, preset, inFlag, outFlag, &logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *infra.Config, preset styles.Preset, in, out string, logger *infra.Logger) error {
	file, err := readFile(in, cfg.MaxFileSizeBytes())
	if err != nil {
		return err
	}
	img, err := upload.Validate(file, cfg.MaxFileSizeBytes())
	if err != nil {
		return err
	}

	client, err := genai.NewClient(genai.Options{
		APIKey:    cfg.GeminiAPIKey,
		BaseURL:   cfg.GeminiBaseURL,
		Model:     cfg.GeminiModel,
		Transport: cfg.GenAITransport,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	uri, err := client.Generate(ctx, upload.Encode(img), preset.Prompt)
	if err != nil {
		logger.Debug().Str("kind", string(genai.KindOf(err))).Msg("generation failed")
		return errors.New(genai.DisplayMessage(err))
	}
	data, err := session.DecodeImageURL(uri)
	if err != nil {
		return err
	}

	store, err := storage.NewFileStore(out)
	if err != nil {
		return err
	}
	path, err := store.Write(ctx, session.DownloadFilename(time.Now()), data)
	if err != nil {
		return err
	}
	logger.Info().Str("path", path).Dur("elapsed", time.Since(start)).Msg("vector art written")
	fmt.Println(path)
	return nil
}

// readFile leaves Data empty for files above maxBytes so Validate rejects
// them without the bytes ever being loaded.
func readFile(path string, maxBytes int64) (upload.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return upload.File{}, fmt.Errorf("read input: %w", err)
	}
	if info.IsDir() {
		return upload.File{}, fmt.Errorf("read input: %s is a directory", path)
	}
	file := upload.File{
		Name:     filepath.Base(path),
		MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size:     info.Size(),
	}
	if info.Size() > maxBytes {
		return file, nil
	}
	if file.Data, err = os.ReadFile(path); err != nil {
		return upload.File{}, fmt.Errorf("read input: %w", err)
	}
	return file, nil
}
