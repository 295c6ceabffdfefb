package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/chat"
	"github.com/starford/ansuz/internal/convert"
	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/ragserver"
	"github.com/starford/ansuz/internal/store"
)

func newApp() (*internal.App, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return nil, err
	}
	app, err := internal.NewApp(internal.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	app.SetupLogging()
	return app, nil
}

// openIndexOptional opens the vector database if it was already built.
// The returned Index is a nil interface when no database exists yet.
func openIndexOptional(app *internal.App) (store.Index, func(), error) {
	db, err := app.OpenIndexIfExists()
	if err != nil {
		return nil, nil, err
	}
	if db == nil {
		return nil, func() {}, nil
	}
	return db, func() { db.Close() }, nil
}

func runConfig(ctx context.Context, cmd *cli.Command) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	cfg := app.Config()

	if cmd.Bool("show") {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
		fmt.Print(string(out))
		return nil
	}

	path, err := internal.SaveConfig(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	v, err := app.Vault()
	if err != nil {
		return err
	}
	db, err := app.OpenIndex()
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("force") {
		if err := db.Wipe(); err != nil {
			return fmt.Errorf("wipe index: %w", err)
		}
		fmt.Println("Index wiped, rebuilding from scratch.")
	}

	pipeline, err := app.Pipeline(v, db, true, cmd.Bool("extract"))
	if err != nil {
		return err
	}

	visited, indexed, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d of %d notes.\n", indexed, visited)
	if total, countErr := db.Count(); countErr == nil {
		fmt.Printf("Index now holds %d chunks.\n", total)
	}

	if cmd.Bool("watch") {
		fmt.Println("Watching for changes. Press Ctrl+C to stop.")
		return pipeline.Watch(ctx)
	}
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	source := cmd.Args().First()
	if source == "" {
		return fmt.Errorf("import: source file or directory is required")
	}

	app, err := newApp()
	if err != nil {
		return err
	}

	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = app.Config().Vault.Path
	}

	doExtract := cmd.Bool("extract")
	var ex extract.Extractor
	if doExtract {
		if app.Config().Extractor.Backend == internal.BackendNone {
			slog.Warn("extraction requested but extractor backend is none")
			doExtract = false
		} else {
			ex, err = app.Extractor()
			if err != nil {
				return err
			}
		}
	}

	importer := convert.NewImporter(ex, outputDir)

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if info.IsDir() {
		imported, found, err := importer.ImportDir(ctx, source, doExtract)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d of %d documents into %s\n", imported, found, outputDir)
		return nil
	}

	outPath, err := importer.ImportFile(ctx, source, doExtract)
	if err != nil {
		return err
	}
	fmt.Printf("Saved to %s\n", outPath)
	return nil
}

func runExtract(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("extract: file path is required")
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	if app.Config().Extractor.Backend == internal.BackendNone {
		return fmt.Errorf("extract: no extractor backend configured")
	}
	ex, err := app.Extractor()
	if err != nil {
		return err
	}

	meta, err := extract.ExtractFile(ctx, ex, path, cmd.Bool("update"), cmd.Bool("activate"))
	if err != nil {
		return err
	}

	fmt.Printf("Title:   %s\n", meta.Title)
	fmt.Printf("Authors: %s\n", strings.Join(meta.Authors, ", "))
	fmt.Printf("Tags:    %s\n", strings.Join(meta.Tags, ", "))
	fmt.Printf("Summary: %s\n", meta.Summary)
	if cmd.Bool("update") {
		fmt.Printf("Updated %s\n", path)
	}
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	v, err := app.Vault()
	if err != nil {
		return err
	}
	idx, closeIdx, err := openIndexOptional(app)
	if err != nil {
		return err
	}
	defer closeIdx()

	if addr := cmd.String("http"); addr != "" {
		handler := api.NewRouter(api.NewHandler(v, idx, app.Embedder()))
		return api.Serve(ctx, addr, handler)
	}

	srv := ragserver.New(v, idx, app.Embedder())
	return srv.ServeStdio()
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	useRAG := !cmd.Bool("no-rag")

	var idx store.Index
	closeIdx := func() {}
	if useRAG {
		idx, closeIdx, err = openIndexOptional(app)
		if err != nil {
			return err
		}
		if idx == nil {
			fmt.Println("Note: no index found. Run 'ansuz index' first to enable retrieval.")
		}
	}
	defer closeIdx()

	session, err := app.ChatSession(idx, useRAG, int(cmd.Int("context")))
	if err != nil {
		return err
	}

	fmt.Println("Chat started. Type 'help' for commands, 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit", "q":
			fmt.Println("Bye.")
			return nil
		case "clear":
			session.Clear()
			fmt.Println("Conversation cleared.")
			continue
		case "help":
			fmt.Println("Commands:")
			fmt.Println("  exit | quit | q  end the session")
			fmt.Println("  clear            forget the conversation so far")
			fmt.Println("  help             show this help")
			continue
		}

		reply, hits, err := session.Send(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("\nAssistant: %s\n", reply)
		if sources := chat.FormatSources(hits); sources != "" {
			fmt.Printf("\n%s\n", sources)
		}
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "ansuz",
		Usage: "Personal notes assistant with semantic search, document import, and RAG chat over a Markdown vault",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the current configuration to the user config file, or display it",
				Action: runConfig,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "show", Usage: "Print the effective configuration instead of saving"},
				},
			},
			{
				Name:   "index",
				Usage:  "Scan the vault and (re)build the vector search index",
				Action: runIndex,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Wipe the index and rebuild from scratch"},
					&cli.BoolFlag{Name: "watch", Usage: "Keep running and re-index files as they change"},
					&cli.BoolFlag{Name: "extract", Usage: "Run LLM metadata extraction while repairing incomplete notes"},
				},
			},
			{
				Name:      "import",
				Usage:     "Convert a document (or a directory of documents) into vault notes",
				ArgsUsage: "<file-or-directory>",
				Action:    runImport,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (defaults to the vault)"},
					&cli.BoolFlag{Name: "extract", Usage: "Run LLM metadata extraction and activate imported notes"},
				},
			},
			{
				Name:      "extract",
				Usage:     "Extract metadata from a markdown note using the configured LLM",
				ArgsUsage: "<file>",
				Action:    runExtract,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "update", Usage: "Rewrite the note's frontmatter with the extracted metadata"},
					&cli.BoolFlag{Name: "activate", Usage: "Set the note status to active when updating"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Expose retrieval tools over MCP stdio, or as an HTTP API with --http",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "http", Usage: "Listen address for the HTTP API (e.g. :8080); omit for MCP stdio"},
				},
			},
			{
				Name:   "chat",
				Usage:  "Interactive chat with retrieval from your notes",
				Action: runChat,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-rag", Usage: "Disable retrieval and chat with the bare model"},
					&cli.IntFlag{Name: "context", Usage: "Number of retrieved chunks per message"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
