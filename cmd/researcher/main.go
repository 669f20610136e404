package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ResearchDesk/internal/config"
	"ResearchDesk/internal/notifier"
	"ResearchDesk/internal/report"
	"ResearchDesk/internal/scheduler"

	"github.com/rs/zerolog/log"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}

	flag.StringVar(&cfgPath, "config", cfgPath, "path to the YAML config file")
	sessionID := flag.String("session-id", "", "resume an existing conversation session")
	userID := flag.String("user-id", "", "user owning the session (default from config)")
	export := flag.String("export", "md", "comma separated export formats: md, html, pdf")
	bot := flag.Bool("bot", false, "run the Telegram bot and scheduled watchlist research")
	offline := flag.Bool("offline", false, "use generated market data instead of Yahoo Finance")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logFile, err := setupLogging(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	validate := cfg.Validate
	if *bot {
		validate = cfg.ValidateBot
	}
	if err := validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	if *userID != "" {
		cfg.App.DefaultUserID = *userID
	}
	formats, err := report.ParseFormats(*export)
	if err != nil {
		log.Fatal().Err(err).Msg("parse -export")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg, *sessionID, formats, *offline)
	if err != nil {
		log.Fatal().Err(err).Msg("init")
	}
	defer app.Close()

	switch {
	case *bot:
		runBot(ctx, cfg, app)
	case flag.NArg() > 0:
		if err := app.research(ctx, strings.Join(flag.Args(), " ")); err != nil {
			log.Error().Err(err).Msg("research failed")
			app.Close()
			os.Exit(1)
		}
	default:
		interactive(ctx, app)
	}
	app.printMetrics()
}

func runBot(ctx context.Context, cfg *config.Config, app *app) {
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	sched := scheduler.NewScheduler(ctx, app.desk, app.toolkit, tn, app.recorder, cfg.Schedule.Watchlist)
	if err := sched.RegisterAll(cfg.Schedule.WatchlistCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, researching watchlist now")
		go sched.RunWatchlistNow()
	}

	log.Info().Msg("research desk bot is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
}

func interactive(ctx context.Context, app *app) {
	fmt.Println("Financial Research Assistant")
	fmt.Println("Ask about one or more stocks, e.g. \"Compare Tesla and Ford\".")
	fmt.Println("Type 'new' to start a new session, 'exit' to quit.")
	fmt.Printf("Session: %s\n", app.sessionID())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("\n> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return
		case "new":
			if err := app.newSession(ctx); err != nil {
				log.Error().Err(err).Msg("new session")
				continue
			}
			fmt.Printf("Started new session: %s\n", app.sessionID())
			continue
		}

		if err := app.research(ctx, line); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}
