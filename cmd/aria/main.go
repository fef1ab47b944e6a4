package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"go.uber.org/zap"

	"github.com/gmsas95/aria/internal/app"
	"github.com/gmsas95/aria/internal/config"
	"github.com/gmsas95/aria/internal/onboarding"
	"github.com/gmsas95/aria/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	textMode   = flag.Bool("text", false, "Run the text REPL instead of voice mode")
	message    = flag.String("m", "", "Handle one message and exit")
	serverMode = flag.Bool("server", false, "Run the dashboard server")
	onboard    = flag.Bool("onboard", false, "Run the setup wizard")
	version    = "dev"
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		log.Printf("Warning: failed to load .env files: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "onboard":
			runOnboarding()
			return
		case "version", "--version", "-v":
			fmt.Printf("Aria version %s\n", version)
			return
		}
	}

	flag.Parse()

	if onboarding.CheckFirstRun() && !*onboard && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Println("Welcome to Aria!")
		fmt.Println()
		fmt.Println("It looks like this is your first time running Aria.")
		fmt.Print("Run the setup wizard? (Y/n): ")

		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response == "" || response == "y" || response == "yes" {
			runOnboarding()
			return
		}
	}

	if *onboard {
		runOnboarding()
		return
	}

	application := initApp()
	defer application.Store.Close()

	switch {
	case *serverMode:
		application.RunServer()
	case *textMode || *message != "":
		application.RunText(*message)
	default:
		application.RunVoice()
	}
}

func runOnboarding() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	wizard := onboarding.NewWizard(logger)
	if err := wizard.Run(); err != nil {
		fmt.Printf("\nOnboarding failed: %v\n", err)
		os.Exit(1)
	}
}

func initApp() *app.App {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("Starting Aria",
		zap.String("version", version),
		zap.String("mode", getMode()),
	)

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	st, err := store.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	application, err := app.New(cfg, st, logger, version)
	if err != nil {
		logger.Fatal("Failed to assemble application", zap.Error(err))
	}

	return application
}

func getMode() string {
	switch {
	case *serverMode:
		return "server"
	case *textMode || *message != "":
		return "text"
	default:
		return "voice"
	}
}
