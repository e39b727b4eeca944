package main

import (
	"context"
	"fmt"
	"os"

	"stem-service/app"
)

func main() {
	cfg, closeLogger, err := app.Bootstrap("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
	defer closeLogger()

	if err := app.Run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		closeLogger()
		os.Exit(1)
	}
}
