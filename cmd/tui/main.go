package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shortsmith/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	defaultServer := "http://localhost:8080"
	if port := os.Getenv("PORT"); port != "" {
		defaultServer = "http://localhost:" + port
	}
	serverURL := flag.String("server", defaultServer, "shortsmith API base URL")
	source := flag.String("url", "", "submit this video as a job on start")
	flag.Parse()

	program := tea.NewProgram(tui.NewModel(*serverURL, *source))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
