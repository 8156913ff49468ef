package main

import (
	"context"
	"errors"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/autotest/internal/archive"
	"github.com/alexisbeaulieu97/autotest/internal/assemble"
	"github.com/alexisbeaulieu97/autotest/internal/config"
	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/scoring"
	"github.com/alexisbeaulieu97/autotest/internal/store"
)

// appContext carries what every subcommand loads first: settings, the
// scoring profile and a logger writing to the command's error stream.
type appContext struct {
	settings *config.Settings
	profile  *scoring.Profile
	log      *logger.Logger
}

// loadAppContext reads settings and the scoring profile. quiet silences
// info logs, which would otherwise tear through the interactive dashboard.
func loadAppContext(cmd *cobra.Command, flags *rootFlags, quiet bool) (*appContext, error) {
	level := "info"
	switch {
	case flags.verbose:
		level = "debug"
	case quiet:
		level = "warn"
	}

	var w io.Writer = cmd.ErrOrStderr()
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true, Writer: w})
	if err != nil {
		return nil, err
	}

	settings, err := config.LoadSettings(flags.configPath)
	if err != nil {
		return nil, err
	}
	profile, err := config.LoadProfile(settings.Profile)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{"scoreProc": profile.ScoreProc, "version": profile.Version}).Debug("profile loaded")
	return &appContext{settings: settings, profile: profile, log: log}, nil
}

func (a *appContext) reportStore() (*store.FileStore, error) {
	return store.NewFileStore(filepath.Join(a.settings.ReportDir, store.JSONDir), a.log)
}

func (a *appContext) docDir() string {
	return filepath.Join(a.settings.ReportDir, store.DocDir)
}

func (a *appContext) templates() *assemble.TemplateSet {
	return assemble.NewTemplateSet(a.settings.TemplateDir, a.profile.CategoryNames())
}

func (a *appContext) assembler() *assemble.Assembler {
	return assemble.New(assemble.Options{Profile: a.profile})
}

// archiveOutput commits written files when archiving is enabled.
func (a *appContext) archiveOutput(ctx context.Context, message string, paths []string) error {
	settings := a.settings.Archive
	if !settings.Enabled || len(paths) == 0 {
		return nil
	}

	arc, err := archive.Open(archive.Options{
		Dir:         settings.Dir,
		AuthorName:  settings.AuthorName,
		AuthorEmail: settings.AuthorEmail,
		Logger:      a.log,
	})
	if err != nil {
		return err
	}
	if _, err := arc.Commit(ctx, message, paths); err != nil {
		if errors.Is(err, archive.ErrNothingToCommit) {
			a.log.Info("archive already up to date")
			return nil
		}
		return err
	}
	return nil
}
