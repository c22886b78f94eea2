package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/temirov/gitfeed/internal/cli"
	"github.com/temirov/gitfeed/internal/utils"
)

// main is the entry point for the gitfeed command.
func main() {
	os.Exit(run())
}

// run executes gitfeed and returns the process exit status.
func run() int {
	logLevel := zap.NewAtomicLevelAt(zap.InfoLevel)
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(logLevel)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer func() { _ = loggerInstance.Sync() }()

	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		loggerInstance.Error(utils.WorkingDirectoryFailedMessage, zap.Error(workingDirectoryError))
		return cli.ExitCode(workingDirectoryError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	applicationExecutionError := cli.Execute(ctx, cli.Dependencies{
		Logger:           loggerInstance,
		LogLevel:         &logLevel,
		WorkingDirectory: workingDirectory,
	})
	if applicationExecutionError != nil {
		loggerInstance.Error(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
	return cli.ExitCode(applicationExecutionError)
}
