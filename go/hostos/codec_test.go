package hostos

import (
	"bytes"
	"testing"
)

func TestRequestFrameRoundTrip(t *testing.T) {
	req := Request{Syscall: SyscallWrite, A0: 4, A1: 1, A2: 2, A3: 3, Payload: []byte("payload")}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &req); err != nil {
		t.Fatal(err)
	}
	got, err := ReadRequest(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Syscall != req.Syscall || got.A0 != req.A0 || string(got.Payload) != "payload" {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestResponseFrameRoundTrip(t *testing.T) {
	resp := Response{Status: -5, Payload: []byte("data")}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, &resp); err != nil {
		t.Fatal(err)
	}
	got, err := ReadResponse(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != resp.Status || string(got.Payload) != "data" {
		t.Fatalf("got %+v, want %+v", got, resp)
	}
}
