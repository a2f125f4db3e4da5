package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/iudanet/steamguard/internal/client/accounts"
	clientapi "github.com/iudanet/steamguard/internal/client/api"
	"github.com/iudanet/steamguard/internal/client/cli"
	"github.com/iudanet/steamguard/internal/client/iocli"
	"github.com/iudanet/steamguard/internal/client/storage/boltdb"
	"github.com/iudanet/steamguard/internal/timesync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	dbPath := flag.String("db", "steamguard.db", "Path to the local account vault")
	communityURL := flag.String("community-url", clientapi.DefaultCommunityURL, "Steam community base URL")
	apiURL := flag.String("api-url", clientapi.DefaultAPIURL, "Steam Web API base URL")
	timeURL := flag.String("time-url", timesync.DefaultURL, "Steam time service URL")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	io := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.New(io, nil, nil, nil, logger).PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	ctx := context.Background()

	// Открываем BoltDB хранилище аккаунтов
	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open vault: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close vault", "error", err)
		}
	}()

	// Создаем транспорт к сервисам Steam
	apiClient, err := clientapi.NewClient(*communityURL, *apiURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create API client: %v\n", err)
		os.Exit(1)
	}

	timeSync := timesync.New(*timeURL, logger)
	accountService := accounts.NewService(boltStorage)

	app := cli.New(io, accountService, apiClient, timeSync, logger)
	if err := app.Run(ctx, command, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("SteamGuard Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
