package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/livesub/internal/bus"
	"github.com/leonardotrapani/livesub/internal/clipboard"
	"github.com/leonardotrapani/livesub/internal/config"
	"github.com/leonardotrapani/livesub/internal/daemon"
	"github.com/leonardotrapani/livesub/internal/deps"
	"github.com/leonardotrapani/livesub/internal/display"
	"github.com/leonardotrapani/livesub/internal/models"
	"github.com/leonardotrapani/livesub/internal/notify"
	"github.com/leonardotrapani/livesub/internal/provider"
	"github.com/leonardotrapani/livesub/internal/recording"
	"github.com/leonardotrapani/livesub/internal/session"
	"github.com/leonardotrapani/livesub/internal/subtitle"
	"github.com/leonardotrapani/livesub/internal/tui"
)

var (
	logLevel   string
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "livesub",
	Short:         "Live subtitles from your microphone",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := resolveLogLevel(logLevel)
		if err != nil {
			return err
		}
		setupLogging(lvl)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (env "+logLevelEnv+")")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/livesub/config.toml)")

	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		statusCmd(),
		captionCmd(),
		stopCmd(),
		versionCmd(),
		runCmd(),
		configureCmd(),
		modelCmd(),
		devicesCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return daemon.New(mgr, daemon.Options{}).Run()
		},
	}
}

// sendCommand sends cmd to the daemon and prints the reply payload.
func sendCommand(cmd byte, action string) error {
	resp, err := bus.SendCommand(cmd)
	if err != nil {
		return fmt.Errorf("failed to %s (is `livesub serve` running?): %w", action, err)
	}
	payload, err := bus.ParseReply(resp)
	if err != nil {
		return err
	}
	if payload != "" {
		fmt.Println(payload)
	}
	return nil
}

func toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Start or stop listening",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(bus.CmdToggle, "toggle listening")
		},
	}
}

func statusCmd() *cobra.Command {
	var checkDeps bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkDeps {
				printDeps(deps.CheckAll())
				return nil
			}
			return sendCommand(bus.CmdStatus, "get status")
		},
	}

	cmd.Flags().BoolVar(&checkDeps, "deps", false, "check external programs instead of querying the daemon")
	return cmd
}

func printDeps(reports []deps.Report) {
	for _, r := range reports {
		mark := "[ ]"
		detail := "not found"
		if r.Installed {
			mark = "[x]"
			detail = r.Path
			if r.Version != "" {
				detail += " (" + r.Version + ")"
			}
		}
		fmt.Printf("%s %-12s %s - %s\n", mark, r.Name, r.Purpose, detail)
	}
}

func captionCmd() *cobra.Command {
	var copyText bool
	cmd := &cobra.Command{
		Use:   "caption",
		Short: "Print the caption currently on screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !copyText {
				return sendCommand(bus.CmdCaption, "get caption")
			}
			resp, err := bus.SendCommand(bus.CmdCaption)
			if err != nil {
				return fmt.Errorf("failed to get caption (is `livesub serve` running?): %w", err)
			}
			text, err := bus.ParseReply(resp)
			if err != nil {
				return err
			}
			if text == "" {
				fmt.Println("No caption on screen")
				return nil
			}
			if err := clipboard.Copy(cmd.Context(), text, clipboard.DefaultTimeout); err != nil {
				return fmt.Errorf("failed to copy caption: %w", err)
			}
			fmt.Println(text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyText, "copy", false, "Also copy the caption to the clipboard")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(bus.CmdVersion, "get version")
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendCommand(bus.CmdQuit, "stop daemon")
		},
	}
}

func runCmd() *cobra.Command {
	var input string
	var realtime bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Listen in the foreground without a daemon",
		Long: `Run a single listening session in the foreground and print captions.
With --input, a WAV file is subtitled instead of the microphone and the
command exits once every caption has been shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd.Context(), input, realtime)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "subtitle a WAV file instead of the microphone")
	cmd.Flags().BoolVar(&realtime, "realtime", true, "replay --input at its natural speed")
	return cmd
}

func runForeground(ctx context.Context, input string, realtime bool) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if input != "" {
		cfg.Recording.Backend = recording.BackendFile
		cfg.Recording.InputFile = input
		cfg.Recording.Realtime = realtime
	}

	sc, err := daemon.SessionConfig(cfg)
	if err != nil {
		return err
	}

	sinks := []subtitle.Sink{display.NewStdoutTerminal()}
	if cfg.Overlay.Enabled {
		overlay := display.NewOverlay(cfg.Overlay.Addr)
		if err := overlay.Start(ctx); err != nil {
			return fmt.Errorf("start overlay: %w", err)
		}
		defer overlay.Stop()
		sinks = append(sinks, overlay)
	}

	s, err := session.New(sc, session.Dependencies{
		Notifier: notify.New(cfg.Notifications.Enabled, cfg.Notifications.Type),
		Sinks:    sinks,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.Start(ctx); err != nil {
		return err
	}

	select {
	case <-s.Done():
	case <-s.Drained():
		s.PlayOut(ctx)
	}
	s.Stop()
	return s.Err()
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration menu for livesub.
This will guide you through setting up:
- The speech recognition backend, model and language
- Provider API keys (OpenAI, Groq, Mistral, Deepgram)
- Audio input and segmentation
- Subtitle timing, terminal output and the browser overlay
- The hallucination filter and notifications`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	if err := config.SaveTo(path, result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps(result.Config, path)
	return nil
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func showNextSteps(cfg *config.Config, path string) {
	serviceRunning := false
	if err := exec.Command("systemctl", "--user", "is-active", "--quiet", "livesub.service").Run(); err == nil {
		serviceRunning = true
	}

	fmt.Println("Next Steps:")
	step := 1
	if p := provider.Get(cfg.Transcription.Provider); p != nil && p.Local {
		if store, err := cfg.ModelStore(); err == nil {
			model := cfg.Transcription.Model
			if model == "" {
				model = p.DefaultModel
			}
			if _, err := store.Resolve(model); err != nil {
				fmt.Printf("%d. Download the model: livesub model download %s\n", step, model)
				step++
			}
		}
	}
	if serviceRunning {
		fmt.Printf("%d. Changes are picked up by the running daemon on the next toggle\n", step)
	} else {
		fmt.Printf("%d. Start the daemon: livesub serve (or systemctl --user start livesub.service)\n", step)
	}
	step++
	fmt.Printf("%d. Start listening: livesub toggle\n", step)
	if cfg.Overlay.Enabled {
		step++
		fmt.Printf("%d. Open the overlay: http://%s\n", step, cfg.Overlay.Addr)
	}
	fmt.Println()

	fmt.Printf("Config file location: %s\n", path)
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local whisper.cpp models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())

	return cmd
}

func openStore() (*models.Store, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.ModelStore()
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whisper.cpp models and cloud provider models",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			fmt.Print(formatModelList(store))
			return nil
		},
	}
}

// formatModelList renders the local catalogue with install markers, then
// the cloud providers' models.
func formatModelList(store *models.Store) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nlocal (%s):\n", store.Dir)
	for _, m := range models.List() {
		mark := "[ ]"
		if store.IsInstalled(m.ID) {
			mark = "[x]"
		}
		langs := "multilingual"
		if !m.Multilingual {
			langs = "english only"
		}
		line := fmt.Sprintf("  %s %s - %s [%s, %s]", mark, m.ID, m.Name, m.Size, langs)
		if m.ID == models.DefaultModel {
			line += " (default)"
		}
		b.WriteString(line + "\n")
	}

	for _, name := range provider.List() {
		p := provider.Get(name)
		if p.Local {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", name)
		for _, m := range p.Models {
			fmt.Fprintf(&b, "  %s - %s\n", m.ID, m.Description)
		}
	}

	b.WriteString("\n")
	return b.String()
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-name>",
		Short: "Download a whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runModelDownload(ctx, args[0])
		},
	}
}

func runModelDownload(ctx context.Context, modelName string) error {
	m, ok := models.Get(modelName)
	if !ok {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	if store.IsInstalled(modelName) {
		path, _ := store.Path(modelName)
		fmt.Printf("model '%s' is already installed at %s\n", modelName, path)
		return nil
	}

	fmt.Printf("downloading %s (%s)...\n", modelName, m.Size)

	var lastPercent int
	err = store.Download(ctx, modelName, func(downloaded, total int64) {
		if total <= 0 {
			total = m.SizeBytes
		}
		percent := int(downloaded * 100 / total)
		if percent >= lastPercent+10 {
			fmt.Printf("%d%% ", percent)
			lastPercent = percent
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	path, _ := store.Path(modelName)
	fmt.Printf("\ndownload complete: %s\n", path)
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-name>",
		Short: "Remove a downloaded whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return fmt.Errorf("failed to remove model: %w", err)
			}
			fmt.Printf("model '%s' removed successfully\n", args[0])
			return nil
		},
	}
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices (miniaudio backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := recording.ListCaptureDevices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("no capture devices found")
				return nil
			}
			for _, d := range devices {
				suffix := ""
				if d.IsDefault {
					suffix = " (default)"
				}
				fmt.Printf("%s%s\n", d.Name, suffix)
			}
			log.Debug().Int("count", len(devices)).Msg("CLI: listed capture devices")
			return nil
		},
	}
}
