package main

import (
	"os"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
