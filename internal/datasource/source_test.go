package datasource

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSourceReplaysExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flight.log")
	content := "Pressure: 101325.5 Pa\nRaw altitude: -12.3 m\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	if src.Name() != path {
		t.Errorf("Name() = %q, want %q", src.Name(), path)
	}

	// Drain with a small buffer to exercise partial reads.
	var got []byte
	buf := make([]byte, 7)
	for {
		n, err := src.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != content {
		t.Errorf("read %q, want %q", got, content)
	}
}

func TestFileSourceSeesAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flight.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	buf := make([]byte, 64)

	// Nothing yet: a quiet source reads 0 without error.
	n, err := src.Read(buf)
	if err != nil {
		t.Fatalf("Read empty: %v", err)
	}
	if n != 0 {
		t.Errorf("Read empty = %d bytes, want 0", n)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile append: %v", err)
	}
	if _, err := f.WriteString("MPU Temp: 23.4 C\n"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	f.Close()

	n, err = src.Read(buf)
	if err != nil {
		t.Fatalf("Read after append: %v", err)
	}
	if string(buf[:n]) != "MPU Temp: 23.4 C\n" {
		t.Errorf("read %q after append", buf[:n])
	}
}

func TestOpenFileMissing(t *testing.T) {
	_, err := OpenFile("/nonexistent/flight.log")
	if err == nil {
		t.Error("OpenFile should fail for a missing capture file")
	}
}

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Skipf("port enumeration unavailable: %v", err)
	}
	// An empty list is fine on machines with no serial hardware.
	t.Logf("found %d serial ports", len(ports))
}
