package main

import (
	"fmt"
	"os"

	"github.com/sandeepkv93/event-credential-service/internal/tools/issuer"
)

func main() {
	if err := issuer.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
