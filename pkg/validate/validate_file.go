package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gunvolt24/gomarketplace_cart/internal/codec"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

// InputFormat допустимые значения.
type InputFormat string

const (
	FormatAuto  InputFormat = "auto"
	FormatJSON  InputFormat = "json"  // дамп корзины: JSON-массив позиций
	FormatJSONL InputFormat = "jsonl" // описания товаров, по одному на строку
)

// ValidateFile — валидирует файл и пишет канонический вывод в writer.
// Возвращает краткую сводку для человека.
func ValidateFile(ctx context.Context, validator ports.ItemValidator, filePath string, format InputFormat, ow io.Writer) (string, error) {
	if format == FormatAuto {
		format = detectFormat(filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	switch format {
	case FormatJSON:
		raw, err := io.ReadAll(file)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		items, err := ValidateCartDump(raw)
		if err != nil {
			return "cart invalid", err
		}
		canonical, err := codec.Encode(items)
		if err != nil {
			return "", err
		}
		if _, err := ow.Write(append(canonical, '\n')); err != nil {
			return "", fmt.Errorf("write json: %w", err)
		}
		return fmt.Sprintf("cart ok: %d line items", len(items)), nil

	case FormatJSONL:
		result, err := ValidateJSONLStream(ctx, validator, file, ow)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d valid / %d invalid", result.ValidLinesCount, result.InvalidLinesCount), nil

	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// detectFormat — формат по расширению; по умолчанию JSON.
func detectFormat(filePath string) InputFormat {
	if strings.EqualFold(filepath.Ext(filePath), ".jsonl") {
		return FormatJSONL
	}
	return FormatJSON
}
