package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/qubelabs/railscan/internal/config"
)

// ConfigureResult holds the configuration result from the wizard
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// Run walks the user through the configuration sections and returns the
// edited config, or Cancelled when they back out.
func Run(existing *config.Config) (*ConfigureResult, error) {
	cfg := *existing

	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	intervalMS := strconv.Itoa(int(cfg.Session.Interval / time.Millisecond))
	transientLimit := strconv.Itoa(cfg.Session.TransientLimit)
	notifyType := cfg.Notifications.Type
	if notifyType == "" {
		notifyType = "desktop"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Recognition service URL").
				Description("Base URL of the asset service").
				Value(&cfg.Recognition.BaseURL),
			huh.NewInput().
				Title("API token").
				Description("Leave empty if the service runs without authentication").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Recognition.Token),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Camera device").
				Description("v4l2 device node").
				Value(&cfg.Capture.Device),
			huh.NewInput().
				Title("Sampling interval (ms)").
				Description("How often a frame is shipped for recognition").
				Value(&intervalMS).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Transient failure limit").
				Description("Consecutive network failures before the scan gives up").
				Value(&transientLimit).
				Validate(validatePositiveInt),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Desktop notifications").
				Value(&cfg.Notifications.Enabled),
			huh.NewSelect[string]().
				Title("Notification style").
				Options(
					huh.NewOption("Desktop", "desktop"),
					huh.NewOption("Log only", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&notifyType),
			huh.NewConfirm().
				Title("Voice notes").
				Description("Record spoken maintenance notes with pw-record").
				Value(&cfg.Speech.Enabled),
		),
	)

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return &ConfigureResult{Cancelled: true}, nil
		}
		return nil, err
	}

	ms, _ := strconv.Atoi(intervalMS)
	cfg.Session.Interval = time.Duration(ms) * time.Millisecond
	limit, _ := strconv.Atoi(transientLimit)
	cfg.Session.TransientLimit = limit
	cfg.Notifications.Type = notifyType

	if err := cfg.Validate(); err != nil {
		fmt.Println(errorLine(err))
		return &ConfigureResult{Cancelled: true}, nil
	}

	return &ConfigureResult{Config: &cfg, Cancelled: false}, nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("enter a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
