package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrEthical07/tokenguard/internal/userdir"
)

var cheap = []string{"-memory", "8192", "-time", "1", "-parallelism", "1"}

func TestHashThenVerify(t *testing.T) {
	var out bytes.Buffer
	if err := run(cheap, strings.NewReader("correct-horse-battery\n"), &out); err != nil {
		t.Fatalf("hash: %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash %q", hash)
	}

	out.Reset()
	args := append(append([]string{}, cheap...), "-verify", hash)
	if err := run(args, strings.NewReader("correct-horse-battery"), &out); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if strings.TrimSpace(out.String()) != "ok" {
		t.Fatalf("unexpected verify output %q", out.String())
	}

	err := run(args, strings.NewReader("wrong-horse-battery\n"), &out)
	if !errors.Is(err, errMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestSeedEntryLoadsIntoDirectory(t *testing.T) {
	var out bytes.Buffer
	args := append(append([]string{}, cheap...), "-identifier", "Alice@Example.com", "-name", "Alice", "-role", "admin")
	if err := run(args, strings.NewReader("correct-horse-battery\n"), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	path := filepath.Join(t.TempDir(), "users.yaml")
	if err := os.WriteFile(path, out.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	dir := userdir.New()
	n, err := dir.LoadFile(path)
	if err != nil || n != 1 {
		t.Fatalf("LoadFile: n=%d err=%v\n%s", n, err, out.String())
	}
	rec, err := dir.LookupByIdentifier(t.Context(), "alice@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.Role != "ADMIN" || rec.Name != "Alice" {
		t.Fatalf("unexpected record %+v", rec.Principal)
	}
}

func TestRejectsEmptySecretAndShortSecret(t *testing.T) {
	var out bytes.Buffer
	if err := run(cheap, strings.NewReader("\n"), &out); err == nil {
		t.Fatal("expected empty secret error")
	}
	if err := run(cheap, strings.NewReader("short\n"), &out); err == nil {
		t.Fatal("expected short secret error")
	}
}
