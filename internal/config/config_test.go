package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.MemSize == 0 {
		t.Fatal("default MemSize must be nonzero")
	}
	if c.DescriptorStart != 3 {
		t.Fatalf("default DescriptorStart = %d, want 3", c.DescriptorStart)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c.MemSize != Default().MemSize {
		t.Fatalf("MemSize = %d, want default", c.MemSize)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "mem_size: 4096\nhost_call_deadline: 2s\ndescriptor_start: 5\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.MemSize != 4096 {
		t.Fatalf("MemSize = %d, want 4096", c.MemSize)
	}
	if c.HostCallDeadline != 2*time.Second {
		t.Fatalf("HostCallDeadline = %s, want 2s", c.HostCallDeadline)
	}
	if c.DescriptorStart != 5 {
		t.Fatalf("DescriptorStart = %d, want 5", c.DescriptorStart)
	}
}
