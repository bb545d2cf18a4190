package main

import (
	"fmt"
	"os"
	"wqd/internal/di"
	"wqd/internal/structures"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	flags := &structures.CliFlags{}
	flag.StringVarP(&flags.ConfigPath, "config", "c", "/etc/wqd/config.yaml", "path to the yaml config file")
	flag.BoolVarP(&flags.DebugMode, "debug", "d", false, "mirror logs to stdout")
	flag.Parse()

	app, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wqd: %s\n", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "wqd: %s\n", err)
		os.Exit(1)
	}
}
