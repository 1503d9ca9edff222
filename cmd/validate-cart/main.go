package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Gunvolt24/gomarketplace_cart/pkg/validate"
)

// CLI-приложение для проверки дампа корзины (.json) или потока товаров (.jsonl).
func main() {
	inputPath := flag.String("in", "", "path to input (.json cart dump or .jsonl items). If empty, reads items from stdin.")
	formatStr := flag.String("format", "auto", "input format: auto|json|jsonl")
	flag.Parse()

	ctx := context.Background()
	itemValidator := validate.NewItemValidator()

	format := validate.InputFormat(*formatStr)
	path := *inputPath

	// stdin: по умолчанию поток описаний товаров
	if path == "" {
		path = "/dev/stdin"
		if format == validate.FormatAuto {
			format = validate.FormatJSONL
		}
	}

	summary, err := validate.ValidateFile(ctx, itemValidator, path, format, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "validation: %v (%s)\n", err, summary)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "validation ok (%s)\n", summary)
}
