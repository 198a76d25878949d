package storage

import "testing"

func TestMemoryStore_SetGetDelete(t *testing.T) {
	s := NewMemoryStore()

	if v, err := s.Get("key"); err != nil || v != nil {
		t.Fatalf("Get() = (%q, %v), want (nil, nil)", v, err)
	}

	if err := s.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, err := s.Get("key")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(v) != "value" {
		t.Errorf("Get() = %q, want %q", v, "value")
	}

	if err := s.Delete("key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v, err := s.Get("key"); err != nil || v != nil {
		t.Errorf("Get() after Delete = (%q, %v), want (nil, nil)", v, err)
	}
}

// TestMemoryStore_GetReturnsCopy は取得した値の変更が内部状態に影響しないことを検証する。
func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set("key", []byte("abc")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	v, _ := s.Get("key")
	v[0] = 'x'

	again, _ := s.Get("key")
	if string(again) != "abc" {
		t.Errorf("Get() = %q, want %q", again, "abc")
	}
}
