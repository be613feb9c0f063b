package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/dataprep/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dataprep:", err)
		os.Exit(1)
	}
}
