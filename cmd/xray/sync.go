package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inkbound/xray/internal/cache"
	"github.com/inkbound/xray/internal/config"
	"github.com/inkbound/xray/internal/home"
	"github.com/inkbound/xray/internal/ingest"
	xsync "github.com/inkbound/xray/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Move analysis caches to and from the remote sync folder",
}

var syncPushCmd = &cobra.Command{
	Use:   "push <book.epub>",
	Short: "Upload a book's cached snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, client, remoteDir, err := syncSetup(args[0])
		if err != nil {
			return err
		}

		var uploaded int
		percents, err := store.List()
		if err != nil {
			return err
		}
		for _, p := range percents {
			local := filepath.Join(store.AnalysisDir(), fmt.Sprintf("%d%%.json", p))
			remote := path.Join(remoteDir, home.AnalysisDirName, fmt.Sprintf("%d%%.json", p))
			if _, err := client.UploadFile(cmd.Context(), local, remote); err != nil {
				return err
			}
			uploaded++
		}
		if _, err := os.Stat(store.MainPath()); err == nil {
			remote := path.Join(remoteDir, cache.MainFileName)
			if _, err := client.UploadFile(cmd.Context(), store.MainPath(), remote); err != nil {
				return err
			}
			uploaded++
		}

		fmt.Printf("uploaded %d files\n", uploaded)
		return nil
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull <book.epub>",
	Short: "Download a book's cached snapshots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, client, remoteDir, err := syncSetup(args[0])
		if err != nil {
			return err
		}

		files, err := client.ListRemoteFiles(cmd.Context(), path.Join(remoteDir, home.AnalysisDirName))
		if err != nil {
			return err
		}
		var downloaded int
		for _, f := range files {
			local := filepath.Join(store.AnalysisDir(), f.Name)
			if _, err := client.DownloadFile(cmd.Context(), f.Path, local); err != nil {
				return err
			}
			downloaded++
		}
		// Main cache is optional on the remote side.
		remoteMain := path.Join(remoteDir, cache.MainFileName)
		if _, err := client.DownloadFile(cmd.Context(), remoteMain, store.MainPath()); err == nil {
			downloaded++
		}

		fmt.Printf("downloaded %d files\n", downloaded)
		return nil
	},
}

// syncSetup resolves the book's local store, the sync client and the
// book's remote directory.
func syncSetup(epubPath string) (*cache.Store, xsync.Client, string, error) {
	h, cm, err := setup()
	if err != nil {
		return nil, nil, "", err
	}
	cfg := cm.Get()
	if !cfg.Sync.Enabled || cfg.Sync.URL == "" {
		return nil, nil, "", errors.New("sync is not configured; set sync.url and sync.enabled in config")
	}

	book, err := ingest.OpenEPUB(epubPath)
	if err != nil {
		return nil, nil, "", err
	}

	store := cache.New(h.BookCacheDir(book.Title, book.Author))
	client := xsync.NewWebDAVClient(xsync.WebDAVConfig{
		BaseURL:  cfg.Sync.URL,
		Username: cfg.Sync.Username,
		Password: config.ResolveEnvVars(cfg.Sync.Password),
	})
	remoteDir := path.Join(cfg.Sync.Folder, home.SDRName(book.Title, book.Author))
	return store, client, remoteDir, nil
}

func init() {
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncPullCmd)
}
