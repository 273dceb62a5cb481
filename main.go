package main

import (
	"tripfluence-api/core/logger"
	"tripfluence-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", "error", err)
	}
}
