package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gopxl/beep/v2"

	"skyvario/pkg/audio"
	"skyvario/pkg/clock"
	"skyvario/pkg/config"
	"skyvario/pkg/probe"
)

// initToneDevice returns nil when audio is disabled.
func initToneDevice(cfg *config.Config) audio.ToneDevice {
	if !cfg.Audio.Enabled {
		return nil
	}
	if cfg.Audio.Device == "null" {
		return audio.NewNullDevice(clock.Real())
	}
	return audio.NewBeepDevice(audio.BeepOptions{
		SampleRate: beep.SampleRate(cfg.Audio.SampleRate),
		Headset:    cfg.Audio.Headset.Enabled,
		LowCutoff:  cfg.Audio.Headset.LowCutoff,
		HighCutoff: cfg.Audio.Headset.HighCutoff,
	})
}

func preflight(cfg *config.Config, dev audio.ToneDevice) []probe.Probe {
	probes := []probe.Probe{
		{
			Name:     "Flight log directory",
			Critical: cfg.Export.Auto,
			Check: func(ctx context.Context) error {
				return checkWritable(cfg.Export.Dir)
			},
		},
	}

	if dev != nil {
		probes = append(probes, probe.Probe{
			Name: "Audio output",
			Check: func(ctx context.Context) error {
				if err := dev.Open(); err != nil {
					return err
				}
				dev.Suspend()
				return nil
			},
		})
	}

	if cfg.Sensors.Provider == "hardware" && cfg.Sensors.GPS.Enabled {
		probes = append(probes, probe.Probe{
			Name: "GPS serial port",
			Check: func(ctx context.Context) error {
				_, err := os.Stat(cfg.Sensors.GPS.Port)
				return err
			},
		})
	}
	return probes
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
