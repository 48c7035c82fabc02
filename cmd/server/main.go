package main

import (
	"github.com/OFFIS-RIT/ris/internal/server"
	"github.com/OFFIS-RIT/ris/internal/util"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnv("LOG_FORMAT") == "json",
	})
	logger.Init(consoleLogger)

	server.Init()
}
