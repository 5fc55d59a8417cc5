package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/academia/core"
	logsvc "github.com/trezcool/academia/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds), conf)
	logger.Enable(!conf.Debug)

	// set up DB & services
	cli, err := newCommandLine(conf, logger, os.Stdout)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up: %v", err), err)
	}
	defer cli.close()

	// start CLI
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		cli.close()
		os.Exit(1)
	}
}
