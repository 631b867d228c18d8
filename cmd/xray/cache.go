package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inkbound/xray/internal/cache"
	"github.com/inkbound/xray/internal/ingest"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage per-book analysis caches",
}

var cacheListCmd = &cobra.Command{
	Use:   "list <book.epub>",
	Short: "List cached snapshot percents for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := bookStore(args[0])
		if err != nil {
			return err
		}

		percents, err := store.List()
		if err != nil {
			return err
		}
		if len(percents) == 0 {
			fmt.Println("no cached snapshots")
			return nil
		}
		for _, p := range percents {
			snap, err := store.Get(p)
			if err != nil || snap == nil {
				fmt.Printf("  %3d%%  (unreadable)\n", p)
				continue
			}
			fmt.Printf("  %3d%%  %d characters, %d locations, %d themes\n",
				p, len(snap.Characters), len(snap.Locations), len(snap.Themes))
		}
		if main, _ := store.LoadMain(); main != nil {
			fmt.Printf("  main  progress %d%%\n", main.AnalysisProgress)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <book.epub>",
	Short: "Remove all cached snapshots for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := bookStore(args[0])
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("cache cleared")
		return nil
	},
}

// bookStore opens the EPUB just far enough to derive the sidecar
// directory for its cache.
func bookStore(path string) (*cache.Store, error) {
	h, _, err := setup()
	if err != nil {
		return nil, err
	}
	book, err := ingest.OpenEPUB(path)
	if err != nil {
		return nil, err
	}
	return cache.New(h.BookCacheDir(book.Title, book.Author)), nil
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
