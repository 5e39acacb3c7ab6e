package loader

import (
	"bytes"
	"testing"
)

func TestLoadHexBasic(t *testing.T) {
	got, err := LoadHex("13 05 00 00")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x13, 0x05, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestLoadHexStripsWhitespace(t *testing.T) {
	got, err := LoadHex("1305\n0000\t")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x13, 0x05, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestLoadHexOddLength(t *testing.T) {
	if _, err := LoadHex("130"); err == nil {
		t.Fatal("expected error for odd-length hex blob")
	}
}

func TestLoadHexInvalidDigit(t *testing.T) {
	if _, err := LoadHex("zz00"); err == nil {
		t.Fatal("expected error for invalid hex digit")
	}
}
