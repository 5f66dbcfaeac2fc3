package main

import (
	"github.com/pushkindt/pushkind-crawlers/cmd/cmd"
	"github.com/pushkindt/pushkind-crawlers/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
