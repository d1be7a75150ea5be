package cmd

import (
	"context"
	"net/url"
	"os"

	"github.com/kasuboski/nfosync/config"
	"github.com/kasuboski/nfosync/pkg/catalog/plex"
	nfohttp "github.com/kasuboski/nfosync/pkg/http"
	"github.com/kasuboski/nfosync/pkg/library"
	"github.com/kasuboski/nfosync/pkg/logger"
	"github.com/kasuboski/nfosync/pkg/match"
	"github.com/kasuboski/nfosync/pkg/runner"
	"github.com/kasuboski/nfosync/pkg/storage"
	"github.com/kasuboski/nfosync/pkg/storage/sqlite"
	"github.com/mattn/go-isatty"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:        "sync [path]",
	Short:      "reconcile sidecar files under a scan path",
	Long:       `reconcile sidecar files under a scan path`,
	Args:       cobra.MaximumNArgs(1),
	ArgAliases: []string{"path to scan"},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		log := logger.Get()
		ctx = logger.WithCtx(ctx, log)

		cfg, err := config.New(viper.GetViper())
		if err != nil {
			log.Fatalw("failed to read configurations", "error", err)
		}

		if len(args) > 0 {
			cfg.Sync.ScanPath = args[0]
		}

		attended := !cfg.Sync.Unattended && isatty.IsTerminal(os.Stdin.Fd())
		if cfg.Sync.ScanPath == "" && attended {
			cfg.Sync.ScanPath = askScanPath(os.Stdin, os.Stdout)
		}

		if err := cfg.Validate(); err != nil {
			log.Fatalw("invalid configuration", "error", err)
		}

		u := url.URL{
			Scheme: cfg.Plex.Scheme,
			Host:   cfg.Plex.Host,
		}

		var httpOpts []nfohttp.ClientOption
		if cfg.Plex.MaxRetries > 0 {
			httpOpts = append(httpOpts, nfohttp.WithMaxRetries(cfg.Plex.MaxRetries))
		}
		if cfg.Plex.BaseBackoff > 0 {
			httpOpts = append(httpOpts, nfohttp.WithBaseBackoff(cfg.Plex.BaseBackoff))
		}

		client, err := plex.New(u.String(), cfg.Plex.Token, plex.WithHTTPClient(nfohttp.NewRateLimitedHTTPClient(httpOpts...)))
		if err != nil {
			log.Fatalw("failed to create plex client", "error", err)
		}

		if err := client.Ping(ctx); err != nil {
			log.Fatalw("couldn't reach plex server", "error", err)
		}

		var resolverOpts []match.ResolverOption
		if attended {
			resolverOpts = append(resolverOpts, match.WithChooser(newPrompter(os.Stdin, os.Stdout)))
		}
		resolver := match.NewResolver(client, resolverOpts...)

		var store storage.RunStorage
		if cfg.Storage.FilePath != "" {
			store, err = sqlite.New(cfg.Storage.FilePath)
			if err != nil {
				log.Fatalw("failed to create storage connection", "error", err)
			}
			if err := store.Init(ctx); err != nil {
				log.Fatalw("failed to init database", "error", err)
			}
		}

		lib := library.New(cfg.Sync.ScanPath)

		r := runner.New(client, resolver, lib, store, runner.Options{
			DryRun:              cfg.Sync.DryRun,
			AllowUnlock:         cfg.Sync.AllowUnlock,
			UpdateArtwork:       cfg.Artwork.Update,
			AlwaysUpdateArtwork: cfg.Artwork.AlwaysUpdate,
			Delay:               cfg.Sync.Delay,
			ArtworkExtensions:   cfg.Artwork.Extensions,
		})

		results, err := r.Run(ctx)
		if results != nil {
			results.RenderSummary(os.Stdout)
		}
		if err != nil {
			log.Fatalw("run did not complete", "error", err)
		}
	},
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "log planned edits without applying them")
	syncCmd.Flags().Bool("allow-unlock", false, "edit fields even when they are locked")
	syncCmd.Flags().Bool("unattended", false, "never prompt; skip ambiguous matches")
	syncCmd.Flags().Bool("update-art", true, "upload sibling artwork and theme files")
	syncCmd.Flags().Bool("always-update-art", false, "check artwork even when no fields changed")
	syncCmd.Flags().String("scan-path", "", "root directory to scan for sidecar files")

	viper.BindPFlag("sync.dryRun", syncCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("sync.scanPath", syncCmd.Flags().Lookup("scan-path"))
	viper.BindPFlag("sync.allowUnlock", syncCmd.Flags().Lookup("allow-unlock"))
	viper.BindPFlag("sync.unattended", syncCmd.Flags().Lookup("unattended"))
	viper.BindPFlag("artwork.update", syncCmd.Flags().Lookup("update-art"))
	viper.BindPFlag("artwork.alwaysUpdate", syncCmd.Flags().Lookup("always-update-art"))

	rootCmd.AddCommand(syncCmd)
}
