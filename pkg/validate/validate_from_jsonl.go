package validate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

// JSONLResult — статистика валидации потока JSONL.
type JSONLResult struct {
	ValidLinesCount   int
	InvalidLinesCount int
}

// ValidateJSONLStream — читает JSONL с описаниями товаров, валидирует каждую строку,
// валидные пишет в writer одной строкой канонического JSON. Пустые строки пропускаются.
func ValidateJSONLStream(ctx context.Context, validator ports.ItemValidator, ir io.Reader, ow io.Writer) (JSONLResult, error) {
	var res JSONLResult

	scanner := bufio.NewScanner(ir)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	for scanner.Scan() {
		lineBytes := scanner.Bytes()
		if len(strings.TrimSpace(string(lineBytes))) == 0 {
			continue
		}

		item, err := ValidateItemFromJSON(ctx, validator, lineBytes)
		if err != nil {
			res.InvalidLinesCount++
			continue
		}

		marshal, _ := json.Marshal(item)
		if _, err := ow.Write(append(marshal, '\n')); err != nil {
			return res, fmt.Errorf("write valid line: %w", err)
		}
		res.ValidLinesCount++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("scan: %w", err)
	}
	return res, nil
}
