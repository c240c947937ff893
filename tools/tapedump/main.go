package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"sandbox-server/internal/domain"
	"sandbox-server/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		return
	}

	switch os.Args[1] {
	case "info":
		if len(os.Args) < 3 {
			fmt.Println("Usage: tapedump info <file.sbrp>")
			return
		}
		session := load(os.Args[2])
		fmt.Printf("world:    %s\n", session.WorldName)
		fmt.Printf("seed:     %d\n", session.Seed)
		fmt.Printf("recorded: %d\n", session.Timestamp)
		fmt.Printf("requests: %d\n", len(session.Requests))
		if n := len(session.Requests); n > 0 {
			fmt.Printf("ticks:    %d..%d\n", session.Requests[0].Tick, session.Requests[n-1].Tick)
		}
	case "dump":
		if len(os.Args) < 3 {
			fmt.Println("Usage: tapedump dump <file.sbrp>")
			return
		}
		session := load(os.Args[2])
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, req := range session.Requests {
			if err := enc.Encode(req); err != nil {
				fmt.Printf("Encode error: %v\n", err)
				return
			}
		}
	case "gametime":
		if len(os.Args) < 3 {
			fmt.Println("Usage: tapedump gametime <ticks>")
			return
		}
		ticks, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Printf("Invalid tick count: %v\n", err)
			return
		}
		gt := domain.GameTime{TotalTicks: ticks}
		fmt.Println(gt.String())
	default:
		printHelp()
	}
}

func load(path string) *domain.ReplaySession {
	svc := storage.NewTapeService(".")
	session, err := svc.Load(path)
	if err != nil {
		fmt.Printf("Failed to load tape: %v\n", err)
		os.Exit(1)
	}
	return session
}

func printHelp() {
	fmt.Println(`Tape Utility - инспекция лент реплея (.sbrp)
Commands:
  info <file>       - метаданные ленты (мир, сид, диапазон тиков)
  dump <file>       - запросы ленты в JSON
  gametime <ticks>  - перевод тиков в игровой календарь`)
}
