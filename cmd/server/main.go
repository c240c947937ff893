package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"sandbox-server/internal/agent"
	"sandbox-server/internal/config"
	"sandbox-server/internal/data"
	"sandbox-server/internal/engine"
	"sandbox-server/internal/executor"
	"sandbox-server/internal/interaction"
	"sandbox-server/internal/perception"
	"sandbox-server/internal/server"
	"sandbox-server/internal/storage"
	"sandbox-server/internal/version"
	"sandbox-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Конфигурация
	var configPath string
	var dataDir string
	var seed int64
	var replayPath string
	var ticks int
	flag.StringVar(&configPath, "config", "config.toml", "Path to TOML config")
	flag.StringVar(&dataDir, "data", "", "World data directory (overrides config)")
	flag.Int64Var(&seed, "seed", 0, "Run seed (0 = from config)")
	flag.StringVar(&replayPath, "replay", "", "Path to .sbrp tape to replay (headless)")
	flag.IntVar(&ticks, "ticks", 0, "Run N ticks headless and exit (0 = serve)")
	flag.Parse()

	logger.Log.Info("Starting sandbox server...")
	logger.Log.Info(version.String())

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Log.Fatal("Config error: ", err)
	}
	if dataDir != "" {
		cfg.Data.Dir = dataDir
	}
	if seed != 0 {
		cfg.Simulation.Seed = seed
	}

	// 2. Загрузка определений и сборка мира
	loader := data.NewLoader(cfg.Data.Dir)
	bundle, err := loader.Load()
	if err != nil {
		logger.Log.Fatal("Failed to load world definitions: ", err)
	}
	ws, err := loader.BuildWorld(bundle)
	if err != nil {
		logger.Log.Fatal("Failed to build world: ", err)
	}

	// 3. Сборка ядра
	resolver := perception.NewResolver()
	matcher, err := interaction.NewEngine(bundle.Recipes, resolver)
	if err != nil {
		logger.Log.Fatal("Recipe engine error: ", err)
	}
	exec := executor.New(bundle.Builder, bundle.Recipes)
	sim := engine.NewSimulation(ws, exec, matcher, resolver)
	sim.Scheduler().RegisterProvider("policy/simple", agent.DefaultPolicy())

	// РЕЖИМ РЕПЛЕЯ: та же лента против того же мира обязана дать
	// идентичный журнал
	if replayPath != "" {
		runReplay(sim, replayPath)
		return
	}

	var recorder *storage.Recorder
	if cfg.Simulation.RecordReplay {
		recorder = storage.NewRecorder(cfg.Simulation.Seed, bundle.WorldName)
		sim.SetRecorder(recorder)
	}

	// BATCH-режим: фиксированное число тиков без сервера
	if ticks > 0 {
		sim.RunTicks(ticks)
		logger.Log.Infof("Finished %d ticks, %d events in log", ticks, len(ws.EventLog()))
		saveTape(recorder, cfg.Data.ReplayDir)
		return
	}

	// 4. Сервер + цикл тиков
	ctx, cancel := context.WithCancel(context.Background())
	go sim.Run(ctx, cfg.TickInterval())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	srv := server.New(sim, cfg.Server.Addr)
	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("Server start error: ", err)
		}
	}()

	<-stop
	logger.Log.Info("Shutting down...")
	cancel()

	saveTape(recorder, cfg.Data.ReplayDir)
	logger.Log.Info("Done.")
}

// runReplay проигрывает ленту запросов против свежесобранного мира
func runReplay(sim *engine.Simulation, path string) {
	logger.Log.Info("Mode: Replay Simulation")

	tape := storage.NewTapeService(".")
	session, err := tape.Load(path)
	if err != nil {
		logger.Log.Fatal("Failed to load tape: ", err)
	}
	logger.Log.Infof("Tape: world=%s seed=%d requests=%d",
		session.WorldName, session.Seed, len(session.Requests))

	engine.Replay(sim, session)

	logger.Log.Infof("Replay finished at tick %d, %d events in log",
		sim.Tick(), len(sim.Store().EventLog()))
}

func saveTape(recorder *storage.Recorder, dir string) {
	if recorder == nil || recorder.Count() == 0 {
		return
	}
	tape := storage.NewTapeService(dir)
	path, err := tape.Save(recorder.Session())
	if err != nil {
		logger.Log.Error("Failed to save tape: ", err)
		return
	}
	logger.Log.Infof("Tape saved: %s (%d requests)", path, recorder.Count())
}
