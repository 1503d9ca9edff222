package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
)

// cartCommand — команда корзины из Kafka.
//
//	{"op":"add","item":{"id":"1","title":"...","image_url":"...","price":10}}
//	{"op":"increment","id":"1"}
//	{"op":"decrement","id":"1"}
//	{"op":"clear"}
type cartCommand struct {
	Op   string                 `json:"op"`
	ID   string                 `json:"id,omitempty"`
	Item *domain.ItemDescriptor `json:"item,omitempty"`
}

// ApplyMessage — разобрать команду (raw JSON) и применить её к корзине.
// Нераспознанная команда — domain.ErrInvalidCommand, невалидный товар — validate.ErrInvalidItem.
func (s *CartStore) ApplyMessage(ctx context.Context, raw []byte) error {
	cmd, err := decodeCommand(raw)
	if err != nil {
		s.log.Warnf(ctx, "cart command rejected err=%v", err)
		return err
	}

	var snap domain.Snapshot
	switch cmd.Op {
	case opAdd:
		snap, err = s.AddToCart(ctx, *cmd.Item)
	case opIncrement:
		snap, err = s.Increment(ctx, cmd.ID)
	case opDecrement:
		snap, err = s.Decrement(ctx, cmd.ID)
	case opClear:
		snap, err = s.Clear(ctx)
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", cmd.Op, err)
	}

	s.log.Infof(ctx, "cart command applied op=%s version=%d items=%d", cmd.Op, snap.Version, snap.Len())
	return nil
}

func decodeCommand(raw []byte) (cartCommand, error) {
	var cmd cartCommand
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return cmd, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidCommand, err)
	}
	if err := dec.Decode(new(struct{})); err != io.EOF {
		return cmd, fmt.Errorf("%w: invalid json: trailing data", domain.ErrInvalidCommand)
	}

	cmd.Op = strings.ToLower(strings.TrimSpace(cmd.Op))
	switch cmd.Op {
	case opAdd:
		if cmd.Item == nil {
			return cmd, fmt.Errorf("%w: add requires item", domain.ErrInvalidCommand)
		}
	case opIncrement, opDecrement:
		if strings.TrimSpace(cmd.ID) == "" {
			return cmd, fmt.Errorf("%w: %s requires id", domain.ErrInvalidCommand, cmd.Op)
		}
	case opClear:
	default:
		return cmd, fmt.Errorf("%w: unknown op %q", domain.ErrInvalidCommand, cmd.Op)
	}
	return cmd, nil
}
