// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/ClusterCockpit/scanhub-edge/internal/config"
	"github.com/ClusterCockpit/scanhub-edge/internal/metrics"
	"github.com/ClusterCockpit/scanhub-edge/internal/ports"
	"github.com/ClusterCockpit/scanhub-edge/internal/scanner"
	"github.com/ClusterCockpit/scanhub-edge/internal/store"
	"github.com/ClusterCockpit/scanhub-edge/internal/spool"
	"github.com/ClusterCockpit/scanhub-edge/internal/runtimeenv"
	"github.com/ClusterCockpit/scanhub-edge/pkg/log"
)

func main() {
	var flagConfigFile string
	var flagGops bool
	var flagLogLevel string
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to the service config file")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of: debug, info, warn, err, crit")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing '.env' file failed: %s", err)
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		log.Fatalf("loading config %s: %s", flagConfigFile, err)
	}

	if cfg.LogFilePath != "" {
		f, err := log.SetOutputFile(cfg.LogFilePath)
		if err != nil {
			log.Fatalf("opening log file %s: %s", cfg.LogFilePath, err)
		}
		defer f.Close()
	}

	resolver := ports.DeviceResolver{
		ConfiguredPath: cfg.ScannerInputDevice,
		DeviceFilter:   cfg.ScannerDeviceFilter,
		UserMap:        cfg.ScannerUserMap,
	}
	devicePath := resolver.ResolveScannerDevice()
	userID := resolver.ResolveUser(devicePath)

	entries, err := scanner.NewEntrySequence(cfg.StateFile, cfg.StartingEntryNo)
	if err != nil {
		log.Fatalf("loading entry-no state file %s: %s", cfg.StateFile, err)
	}

	spoolWriter, err := spool.OpenWriter(cfg.SpoolFile)
	if err != nil {
		log.Fatalf("opening spool file %s: %s", cfg.SpoolFile, err)
	}
	defer spoolWriter.Close()

	var audio ports.AudioPort = ports.NullAudioPort{}
	if cfg.SpeakerEnabled && len(cfg.VoiceFiles) > 0 {
		audio = ports.NewChannelAudioPort(32)
	}

	hub := &ports.ScanHub{}

	device := &scanner.Device{
		Path:     devicePath,
		DeviceID: cfg.DeviceID,
		UserID:   userID,
		Spool:    spoolWriter,
		Entries:  entries,
		Audio:    audio,
		Buzzer:   ports.NullBuzzerPort{},
		Hub:      hub,
	}

	driver, dsn, err := cfg.ResolveConnectionString()
	if err != nil {
		log.Fatalf("resolving database connection: %s", err)
	}

	offsetPath := cfg.SpoolOffsetFile
	if offsetPath == "" {
		offsetPath = cfg.SpoolFile + ".offset"
	}

	worker := &store.Worker{
		Driver:            driver,
		DSN:               dsn,
		Table:             cfg.TableName,
		SpoolPath:         cfg.SpoolFile,
		Offsets:           spool.NewOffsetStore(offsetPath),
		FlushInterval:     time.Duration(cfg.FlushIntervalSec * float64(time.Second)),
		HeartbeatInterval: time.Duration(cfg.HeartbeatInterval * float64(time.Second)),
		Audio:             audio,
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr)

	// Privileges are dropped before the Scanner task starts, so the device
	// is opened, and reopened after every failure, with the permissions of
	// process_user/process_group; it is not opened as root first.
	if err := runtimeenv.DropPrivileges(cfg.ProcessUser, cfg.ProcessGroup); err != nil {
		log.Warnf("drop privileges: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := device.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("scanner task exited: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("flush worker exited: %v", err)
		}
	}()

	if metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsServer.Run(ctx); err != nil {
				log.Errorf("metrics server exited: %v", err)
			}
		}()
	}

	runtimeenv.SystemdNotify(true, "running")
	<-ctx.Done()
	runtimeenv.SystemdNotify(false, "shutting down")

	wg.Wait()
	log.Info("graceful shutdown completed")
}
