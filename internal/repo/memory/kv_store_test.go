package memory

import (
	"context"
	"testing"
)

func TestSaveLoad_HitMiss(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	// miss
	if _, found, err := s.Load(ctx, "k"); found || err != nil {
		t.Fatalf("expected miss before Save, found=%v err=%v", found, err)
	}

	if err := s.Save(ctx, "k", []byte(`[]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, found, err := s.Load(ctx, "k")
	if err != nil || !found || string(raw) != `[]` {
		t.Fatalf("expected hit, got raw=%q found=%v err=%v", raw, found, err)
	}
}

func TestSave_Overwrites(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	_ = s.Save(ctx, "k", []byte("v1"))
	_ = s.Save(ctx, "k", []byte("v2"))

	raw, _, _ := s.Load(ctx, "k")
	if string(raw) != "v2" || s.Len() != 1 {
		t.Fatalf("expected single key with v2, got %q len=%d", raw, s.Len())
	}
}

func TestDelete_MissingIsNotError(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	if err := s.Delete(ctx, "nope"); err != nil {
		t.Fatalf("delete of missing key: %v", err)
	}
	_ = s.Save(ctx, "k", []byte("v"))
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found, _ := s.Load(ctx, "k"); found {
		t.Fatalf("expected key removed")
	}
}

func TestCloneImmutability(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	in := []byte("abc")
	_ = s.Save(ctx, "k", in)
	in[0] = 'X' // меняем исходный буфер

	out, _, _ := s.Load(ctx, "k")
	out[1] = 'Y' // меняем то, что вернул Load

	again, _, _ := s.Load(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}
