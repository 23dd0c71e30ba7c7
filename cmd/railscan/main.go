package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qubelabs/railscan/internal/bus"
	"github.com/qubelabs/railscan/internal/config"
	"github.com/qubelabs/railscan/internal/daemon"
	"github.com/qubelabs/railscan/internal/deps"
	"github.com/qubelabs/railscan/internal/recognize"
	"github.com/qubelabs/railscan/internal/speech"
	"github.com/qubelabs/railscan/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "railscan",
	Short: "Camera-based asset code detection for the rail asset service",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		scanCmd(),
		cancelCmd(),
		statusCmd(),
		versionCmd(),
		stopCmd(),
		uploadCmd(),
		lookupCmd(),
		noteCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := daemon.New()
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Toggle the live detection session on/off",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.Send(bus.CmdToggle)
			if err != nil {
				return fmt.Errorf("failed to toggle scan: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the current detection session",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.Send(bus.CmdCancel)
			if err != nil {
				return fmt.Errorf("failed to cancel: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.Send(bus.CmdStatus)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.Send(bus.CmdVersion)
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.Send(bus.CmdQuit)
			if err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Detect an asset code in an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			adapter := recognize.NewFileAdapter(recognize.NewClient(cfg.ToRecognizeConfig()))
			out, err := adapter.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printOutcome(out)
		},
	}
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup TEXT",
		Short: "Resolve a manually entered code payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			adapter := recognize.NewTextAdapter(recognize.NewClient(cfg.ToRecognizeConfig()))
			out, err := adapter.Submit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printOutcome(out)
		},
	}
}

func noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note",
		Short: "Record a voice note and print the transcription (Ctrl-C to stop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.Speech.Enabled {
				return fmt.Errorf("voice notes disabled: set speech.enabled in the config")
			}

			speechCfg := cfg.ToSpeechConfig()
			transcriber, err := speech.NewTranscriber(speechCfg)
			if err != nil {
				return err
			}

			recorder := speech.NewRecorder(speechCfg.SampleRate, speechCfg.MaxDuration)
			recCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := recorder.Start(recCtx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Recording... press Ctrl-C to finish")
			<-recCtx.Done()

			pcm := recorder.Stop()
			fmt.Fprintln(os.Stderr, "Transcribing...")

			text, err := transcriber.Transcribe(context.Background(), pcm)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := config.Load()
			if err != nil {
				existing = config.DefaultConfig()
			}

			result, err := tui.Run(existing)
			if err != nil {
				return err
			}
			if result.Cancelled {
				fmt.Println("Configuration unchanged.")
				return nil
			}
			if err := result.Config.Validate(); err != nil {
				return err
			}
			if err := config.Save(result.Config); err != nil {
				return err
			}
			fmt.Println("Configuration saved.")
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := []struct {
				name   string
				status deps.Status
				needed string
			}{
				{"ffmpeg", deps.CheckFFmpeg(), "live camera capture"},
				{"pw-record", deps.CheckPwRecord(), "voice notes"},
				{"notify-send", deps.CheckNotifySend(), "desktop notifications"},
			}
			for _, r := range report {
				mark := "missing"
				if r.status.Installed {
					mark = r.status.Path
				}
				fmt.Printf("%-12s %-40s (%s)\n", r.name, mark, r.needed)
			}
			return nil
		},
	}
}

func printOutcome(out recognize.Outcome) error {
	switch out.Kind {
	case recognize.OutcomeMatched:
		fmt.Printf("matched asset %s\n", out.AssetID)
		if len(out.Asset) > 0 {
			var pretty map[string]any
			if json.Unmarshal(out.Asset, &pretty) == nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(pretty)
			}
		}
		return nil
	case recognize.OutcomeNotFound:
		return fmt.Errorf("no code detected")
	case recognize.OutcomeAssetUnresolved:
		return fmt.Errorf("code recognized but no matching asset: %v", out.Err)
	default:
		return fmt.Errorf("recognition failed: %v", out.Err)
	}
}
