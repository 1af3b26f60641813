package main

import (
	"context"
	"os"

	"github.com/klokku/workout-planner/pkg/commands"
	log "github.com/sirupsen/logrus"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	if err := commands.New().ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}
