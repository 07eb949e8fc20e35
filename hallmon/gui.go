package main

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gohall/pkg/config"
	"github.com/itohio/gohall/pkg/scope"
)

// appState holds the window state. Fields are touched on the Fyne goroutine only.
type appState struct {
	cfg        *config.Config
	configPath string
	useMock    bool
	logger     *slog.Logger

	window     fyne.Window
	scope      *scope.Scope
	connectBtn *widget.Button
	status     *widget.Label

	session *session
}

func runGUI(cfg *config.Config, configPath string, useMock bool, logger *slog.Logger) {
	application := app.NewWithID("com.itohio.gohall")

	window := application.NewWindow("Hall Sensor Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: configPath,
		useMock:    useMock,
		logger:     logger,
		window:     window,
		scope:      scope.New(cfg.Acquisition.Units),
	}

	toolbar := createToolbar(state)
	window.SetContent(container.NewBorder(toolbar, nil, nil, nil, state.scope.Content()))
	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.ShowAndRun()
}

// createToolbar creates the toolbar with the Connect and Settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.status = widget.NewLabel("Disconnected")

	return container.NewBorder(nil, nil, container.NewHBox(connectBtn, settingsBtn), state.status, nil)
}

// handleConnect toggles the acquisition session.
func handleConnect(state *appState) {
	if state.session != nil {
		disconnect(state)
		return
	}

	s, err := startSession(context.Background(), state.cfg, state.useMock, state.logger, state.scope)
	if err != nil {
		source := state.cfg.Serial.Port
		if state.useMock {
			source = "mocked sensor"
		}
		dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", source, err), state.window)
		return
	}
	state.session = s
	state.connectBtn.SetIcon(theme.LogoutIcon())
	state.status.SetText(sourceName(state))

	// A failing loop ends the session and reports why
	go func() {
		<-s.Done()
		fyne.Do(func() {
			if state.session != s {
				return
			}
			if err := s.Err(); err != nil {
				state.logger.Error("acquisition failed", slog.Any("error", err))
				dialog.ShowError(err, state.window)
			}
			disconnect(state)
		})
	}()
}

func disconnect(state *appState) {
	if state.session == nil {
		return
	}
	s := state.session
	state.session = nil

	if err := s.Stop(); err != nil {
		state.logger.Warn("session stopped with error", slog.Any("error", err))
	}
	if state.connectBtn != nil {
		state.connectBtn.SetIcon(theme.LoginIcon())
	}
	if state.status != nil {
		state.status.SetText("Disconnected")
	}
}

func sourceName(state *appState) string {
	if state.useMock {
		return "Mock (" + state.cfg.Mock.Format + ")"
	}
	return state.cfg.Serial.Port
}

// reconnect restarts a running session so new settings take effect.
func reconnect(state *appState) {
	if state.session == nil {
		return
	}
	disconnect(state)
	handleConnect(state)
}
