package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hitoshi/soapbox/internal/app"
)

func main() {
	// .envはローカル開発用。存在しなければ環境変数のみで動く。
	_ = godotenv.Load()

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "soapbox: %v\n", err)
		os.Exit(1)
	}
}
