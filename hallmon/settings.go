package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gohall/pkg/config"
	"github.com/itohio/gohall/pkg/hall"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createAcquisitionTab(state),
		createDisplayTab(state),
		createOutputTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// applySettings validates edited settings, saves them and restarts a running
// session. On validation failure the previous settings are restored.
func applySettings(state *appState, previous config.Config) {
	if err := state.cfg.Validate(); err != nil {
		*state.cfg = previous
		dialog.ShowError(err, state.window)
		return
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}
	reconnect(state)
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := hall.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Display name to port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	} else {
		state.logger.Warn("listing serial ports failed", "error", err)
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			previous := *state.cfg
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
				state.cfg.Serial.Port = selectedPort
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil {
				state.cfg.Serial.BaudRate = baud
			}
			applySettings(state, previous)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createAcquisitionTab creates the sampling and spectral estimation tab.
func createAcquisitionTab(state *appState) *container.TabItem {
	acq := &state.cfg.Acquisition

	capacityEntry := widget.NewEntry()
	capacityEntry.SetText(strconv.Itoa(acq.Capacity))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(fmt.Sprintf("%g", acq.SampleRate))

	sensitivityEntry := widget.NewEntry()
	sensitivityEntry.SetText(fmt.Sprintf("%g", acq.Sensitivity))

	unitsEntry := widget.NewEntry()
	unitsEntry.SetText(acq.Units)

	overlapEntry := widget.NewEntry()
	overlapEntry.SetText(fmt.Sprintf("%g", acq.Overlap))

	maxSegmentEntry := widget.NewEntry()
	maxSegmentEntry.SetText(strconv.Itoa(acq.MaxSegment))

	tickEntry := widget.NewEntry()
	tickEntry.SetText(acq.TickInterval.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "History (samples)", Widget: capacityEntry},
			{Text: "Sample Rate (Hz)", Widget: sampleRateEntry},
			{Text: "Sensitivity (mV/mT)", Widget: sensitivityEntry},
			{Text: "Units", Widget: unitsEntry},
			{Text: "Segment Overlap", Widget: overlapEntry},
			{Text: "Max Segment", Widget: maxSegmentEntry},
			{Text: "Refresh Interval", Widget: tickEntry},
		},
		OnSubmit: func() {
			previous := *state.cfg
			if n, err := strconv.Atoi(capacityEntry.Text); err == nil {
				acq.Capacity = n
			}
			if fs, err := strconv.ParseFloat(sampleRateEntry.Text, 64); err == nil {
				acq.SampleRate = fs
			}
			if k, err := strconv.ParseFloat(sensitivityEntry.Text, 64); err == nil {
				acq.Sensitivity = k
			}
			if unitsEntry.Text != "" {
				acq.Units = unitsEntry.Text
			}
			if o, err := strconv.ParseFloat(overlapEntry.Text, 64); err == nil {
				acq.Overlap = o
			}
			if n, err := strconv.Atoi(maxSegmentEntry.Text); err == nil {
				acq.MaxSegment = n
			}
			if d, err := time.ParseDuration(tickEntry.Text); err == nil {
				acq.TickInterval = d
			}
			applySettings(state, previous)
		},
	}

	return container.NewTabItem("Acquisition", form)
}

// createDisplayTab creates the Display configuration tab.
func createDisplayTab(state *appState) *container.TabItem {
	maxPointsEntry := widget.NewEntry()
	maxPointsEntry.SetText(strconv.Itoa(state.cfg.Display.MaxPoints))

	smoothingEntry := widget.NewEntry()
	smoothingEntry.SetText(strconv.Itoa(state.cfg.Display.Smoothing))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Max Points", Widget: maxPointsEntry},
			{Text: "Smoothing (0=off)", Widget: smoothingEntry},
		},
		OnSubmit: func() {
			previous := *state.cfg
			if n, err := strconv.Atoi(maxPointsEntry.Text); err == nil {
				state.cfg.Display.MaxPoints = n
			}
			if n, err := strconv.Atoi(smoothingEntry.Text); err == nil {
				state.cfg.Display.Smoothing = n
			}
			applySettings(state, previous)
		},
	}

	return container.NewTabItem("Display", form)
}

// createOutputTab creates the Output files tab. Empty paths disable a file.
func createOutputTab(state *appState) *container.TabItem {
	samplesEntry := widget.NewEntry()
	samplesEntry.SetText(state.cfg.Output.SamplesFile)

	psdEntry := widget.NewEntry()
	psdEntry.SetText(state.cfg.Output.PSDFile)

	historyEntry := widget.NewEntry()
	historyEntry.SetText(state.cfg.Output.HistoryDB)
	historyEntry.SetPlaceHolder("disabled")

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Samples CSV", Widget: samplesEntry},
			{Text: "PSD CSV", Widget: psdEntry},
			{Text: "History Database", Widget: historyEntry},
		},
		OnSubmit: func() {
			previous := *state.cfg
			state.cfg.Output.SamplesFile = samplesEntry.Text
			state.cfg.Output.PSDFile = psdEntry.Text
			state.cfg.Output.HistoryDB = historyEntry.Text
			applySettings(state, previous)
		},
	}

	return container.NewTabItem("Output", form)
}

// createMockTab creates the Mock sensor configuration tab.
func createMockTab(state *appState) *container.TabItem {
	mock := &state.cfg.Mock

	formatSelect := widget.NewSelect([]string{"csv", "labeled", "bare"}, nil)
	formatSelect.SetSelected(mock.Format)

	frequencyEntry := widget.NewEntry()
	frequencyEntry.SetText(fmt.Sprintf("%g", mock.Frequency))

	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%g", mock.Amplitude))

	offsetEntry := widget.NewEntry()
	offsetEntry.SetText(fmt.Sprintf("%g", mock.Offset))

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%g", mock.NoiseLevel))

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(mock.SampleRate.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Line Format", Widget: formatSelect},
			{Text: "Tone (Hz)", Widget: frequencyEntry},
			{Text: "Amplitude (mV)", Widget: amplitudeEntry},
			{Text: "Offset (mV)", Widget: offsetEntry},
			{Text: "Noise Level (mV)", Widget: noiseLevelEntry},
			{Text: "Sample Interval", Widget: sampleRateEntry},
		},
		OnSubmit: func() {
			previous := *state.cfg
			if formatSelect.Selected != "" {
				mock.Format = formatSelect.Selected
			}
			if f, err := strconv.ParseFloat(frequencyEntry.Text, 64); err == nil {
				mock.Frequency = f
			}
			if a, err := strconv.ParseFloat(amplitudeEntry.Text, 64); err == nil {
				mock.Amplitude = a
			}
			if o, err := strconv.ParseFloat(offsetEntry.Text, 64); err == nil {
				mock.Offset = o
			}
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				mock.NoiseLevel = nl
			}
			if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil {
				mock.SampleRate = sr
			}
			applySettings(state, previous)
		},
	}

	return container.NewTabItem("Mock", form)
}
