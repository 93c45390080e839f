package main

import (
	"fmt"
	"os"

	"github.com/jonesrussell/north-cloud/search-admin/internal/bootstrap"
)

func main() {
	if err := bootstrap.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "search-admin: %v\n", err)
		os.Exit(1)
	}
}
