package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"speakpanel/internal/app"
	"speakpanel/internal/cli/scheme/colours"
	"speakpanel/internal/config"
)

func main() {
	var sp *app.SpeakPanel

	// Build the app once flags are parsed so they can override the config.
	setup := func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.SetupLogging(cfg.Log); err != nil {
			return err
		}

		engine, err := app.NewEngine(cfg)
		if err != nil {
			return fmt.Errorf("failed to create tts engine: %w", err)
		}
		sp = app.New(cfg, engine, os.Stdin, os.Stdout)

		// Setup signal handling for graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			sp.Stop()
		}()
		return nil
	}

	rootCmd := &cobra.Command{
		Use:   "speakpanel",
		Short: "🗣️ A text-to-speech control panel",
		Long: `
┌─────────────────────────────────────┐
│  🗣️  Welcome to Speak Panel! 🔊     │
│  Type it, pick a voice, hear it     │
└─────────────────────────────────────┘

Speak Panel reads text aloud through your platform's speech engine.
Run it bare for the terminal panel, or "serve" for the browser panel.
		`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sp.RunTerminal(cmd, args)
		},
	}

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "🌐 Serve the panel to a browser",
		Long:  "Start a web server with the speech panel and a /metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sp.Serve(cmd, args)
		},
	}

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🔍 List available voices",
		Long:  "List the engine's voices and show which one the locale selects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sp.ListVoices(cmd, args)
		},
	}

	// Say command
	sayCmd := &cobra.Command{
		Use:   "say [text]",
		Short: "📢 Speak text once",
		Long:  "Speak the given text, or standard input when none is given, and wait until it finishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sp.Say(cmd, args)
		},
	}

	// Engines command
	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "🔧 List speech engines",
		Long:  "List the speech engines usable on this platform",
		// no engine is needed to list them
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			app.ListEngines(os.Stdout)
		},
	}

	// Add flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("engine", "e", "", "Speech engine (auto, mock, espeak, sapi, avfoundation, googleclassic)")
	flags.StringP("locale", "l", "", "Language tag fragment used to pick a voice")
	flags.Float64("rate", 0, "Initial speaking rate")
	flags.Float64("pitch", 0, "Initial pitch")
	flags.String("log-level", "", "Log level")
	serveCmd.Flags().StringP("addr", "a", "", "Listen address")
	sayCmd.Flags().StringP("voice", "v", "", "Voice to use. See voices for options")

	bind := map[string]string{
		"tts.type":   "engine",
		"tts.locale": "locale",
		"tts.rate":   "rate",
		"tts.pitch":  "pitch",
		"log.level":  "log-level",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logrus.WithError(err).Fatal("failed to bind flag")
		}
	}
	if err := viper.BindPFlag("web.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		logrus.WithError(err).Fatal("failed to bind flag")
	}

	rootCmd.AddCommand(serveCmd, voicesCmd, sayCmd, enginesCmd)

	if err := config.Init(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}

	err := rootCmd.Execute()
	if sp != nil {
		if cerr := sp.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("failed to close tts engine")
		}
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye!"))
	}
	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
