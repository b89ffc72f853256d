// Command webserv is the process entry point, matching original_source's
// main.cpp: open the log file, build the config (searching the default
// location when no path is given), then hand off to the event loop.
package main

import (
	"fmt"
	"os"

	"github.com/ribana-b/webserv/internal/config"
	"github.com/ribana-b/webserv/internal/logging"
	"github.com/ribana-b/webserv/internal/mux"
	"github.com/ribana-b/webserv/internal/router"
)

// logFileName matches main.cpp's std::ofstream("webserv.log", std::ios::app).
const logFileName = "webserv.log"

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [CONFIG_FILE]\n", args[0])
		return 1
	}

	logger, logFile, err := logging.NewFileLogger(logFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", logFileName, err)
		return 1
	}
	defer logFile.Close()

	configPath := ""
	if len(args) == 1 {
		path, err := config.SearchConfigFile(args[0])
		if err != nil {
			logger.Error().Err(err).Msg("failed to locate default configuration file")
			return 1
		}
		configPath = path
	} else {
		configPath = args[1]
	}

	model, err := config.Load(configPath, logger.Warnf)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("failed to load configuration")
		return 1
	}

	rt := router.New(model, logger)
	multiplexer := mux.New(model, rt, logger)
	if err := multiplexer.Init(); err != nil {
		logger.Error().Err(err).Msg("failed to initialize multiplexer")
		return 1
	}

	logger.Info().Msg("webserv starting")
	multiplexer.Run()
	logger.Info().Msg("webserv shut down")
	return 0
}
