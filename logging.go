package gateAuth

import "github.com/charmbracelet/log"

func defaultLogger() *log.Logger {
	return log.Default().WithPrefix("gateAuth")
}
