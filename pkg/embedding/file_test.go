package embedding

import (
	"context"
	"reflect"
	"testing"
)

func TestParseOpenKE(t *testing.T) {
	ids := []byte("3\nalice\t0\nacme\t1\nbob\t2\n")
	vecs := []byte("1\t0\n0\t1\n0.5\t0.5\n")

	store, err := ParseOpenKE(ids, vecs)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	vec, ok, err := store.Lookup(context.Background(), "acme")
	if err != nil || !ok {
		t.Fatalf("expected acme to be present, got ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(vec, []float32{0, 1}) {
		t.Fatalf("expected [0 1], got %v", vec)
	}
	if store.Dim() != 2 {
		t.Fatalf("expected dim 2, got %d", store.Dim())
	}
}

func TestParseOpenKEMissingVectors(t *testing.T) {
	store, err := ParseOpenKE([]byte("2\na\t0\nb\t1\n"), []byte("1 2 3\n"))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if _, ok, _ := store.Lookup(context.Background(), "b"); ok {
		t.Fatal("expected b to have no vector")
	}
}

func TestParseOpenKEErrors(t *testing.T) {
	if _, err := ParseOpenKE([]byte("not-a-count\n"), nil); err == nil {
		t.Fatal("expected error for missing header count")
	}
	if _, err := ParseOpenKE([]byte("1\na\t0\n"), []byte("1\tx\n")); err == nil {
		t.Fatal("expected error for non-numeric component")
	}
	if _, err := ParseOpenKE([]byte("2\na\t0\nb\t1\n"), []byte("1\t2\n3\n")); err == nil {
		t.Fatal("expected error for inconsistent dimensions")
	}
}

func TestNoneStore(t *testing.T) {
	if _, ok, err := (None{}).Lookup(context.Background(), "x"); ok || err != nil {
		t.Fatalf("expected absent vector, got ok=%v err=%v", ok, err)
	}
}
