package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkbound/xray/internal/analysis"
	"github.com/inkbound/xray/internal/cache"
	"github.com/inkbound/xray/internal/config"
	"github.com/inkbound/xray/internal/ingest"
	"github.com/inkbound/xray/internal/llmcall"
	"github.com/inkbound/xray/internal/providers"
)

var (
	analyzeTarget    int
	analyzeProvider  string
	analyzeChunkSize int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <book.epub>",
	Short: "Analyze a book up to a reading-progress percentage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, cm, err := setup()
		if err != nil {
			return err
		}
		cfg := cm.Get()

		book, err := ingest.OpenEPUB(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s — %s (%d bytes of text)\n", book.Title, book.Author, book.TotalBytes())

		registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
		cm.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
		})
		cm.WatchConfig()

		name := analyzeProvider
		if name == "" {
			name = cfg.Defaults.Provider
		}
		provider, err := registry.Get(name)
		if err != nil {
			return err
		}

		target := analyzeTarget
		if target == 0 {
			target = cfg.Defaults.TargetPercent
		}
		size := analyzeChunkSize
		if size == 0 {
			size = cfg.Defaults.ChunkSize
		}

		if err := h.EnsureAnalysisDir(book.Title, book.Author); err != nil {
			return err
		}
		store := cache.New(h.BookCacheDir(book.Title, book.Author))
		existing, err := store.LoadMain()
		if err != nil {
			return err
		}

		task := analysis.Run(cmd.Context(), &analysis.Request{
			Title:         book.Title,
			Author:        book.Author,
			Source:        book.Text,
			TargetPercent: target,
			Existing:      existing,
			Provider:      provider,
			Store:         store,
			Recorder:      llmcall.NewRecorder(h.CallLogPath()),
			ChunkSize:     size,
		})

		for ev := range task.Progress() {
			switch ev.State {
			case analysis.StateProcessing:
				fmt.Printf("  chunk %d/%d...\n", ev.ChunkIndex, ev.TotalChunks)
			case analysis.StatePersisting:
				fmt.Printf("  saved checkpoint at %d%%\n", ev.Percent)
			}
		}

		res := task.Wait()
		switch res.Status {
		case analysis.StatusCompleted:
			fmt.Printf("Completed to %d%%: %d characters, %d locations, %d themes, %d events\n",
				res.Snapshot.AnalysisProgress,
				len(res.Snapshot.Characters),
				len(res.Snapshot.Locations),
				len(res.Snapshot.Themes),
				len(res.Snapshot.Timeline))
			return nil
		case analysis.StatusAborted:
			fmt.Println("Aborted; partial snapshot saved")
			return nil
		default:
			return res.Err
		}
	},
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeTarget, "target", "t", 0, "reading progress to analyze up to, 1-100 (default from config)")
	analyzeCmd.Flags().StringVarP(&analyzeProvider, "provider", "p", "", "provider name from config (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeChunkSize, "chunk-size", 0, "chunk byte size (default from config)")
}
