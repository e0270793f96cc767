package wire

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"
)

func TestEncodeRequestGetHasNoBody(t *testing.T) {
	req, err := EncodeRequest(GetInstanceInfo())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	s := string(req)
	if !strings.HasPrefix(s, "GET / HTTP/1.1\r\n") {
		t.Fatalf("unexpected request line: %q", s)
	}
	if !strings.Contains(s, "Content-Length: 0\r\n") {
		t.Fatalf("expected Content-Length: 0, got %q", s)
	}
	if strings.Contains(s, "Content-Type") {
		t.Fatalf("GET with empty body should not set Content-Type: %q", s)
	}
}

func TestEncodeRequestPutHasBody(t *testing.T) {
	req, err := EncodeRequest(PutBootSource(BootSource{KernelImagePath: "/vmlinux"}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	s := string(req)
	if !strings.HasPrefix(s, "PUT /boot-source HTTP/1.1\r\n") {
		t.Fatalf("unexpected request line: %q", s)
	}
	if !strings.Contains(s, "Content-Type: application/json\r\n") {
		t.Fatalf("expected Content-Type header: %q", s)
	}
	if !strings.Contains(s, `"kernel_image_path":"/vmlinux"`) {
		t.Fatalf("expected encoded body, got %q", s)
	}
}

func TestDecodeSuccessBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 47\r\n" +
		"\r\n" +
		`{"firecracker_version":"1.7.0","bogus":"field"}`

	r := bufio.NewReader(strings.NewReader(raw))
	outcome, err := Decode(r, GetVersion())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Fault != nil {
		t.Fatalf("expected success, got fault: %+v", outcome.Fault)
	}

	info, ok := outcome.Success.(VersionInfo)
	if !ok {
		t.Fatalf("unexpected success type: %T", outcome.Success)
	}
	if info.FirecrackerVersion != "1.7.0" {
		t.Fatalf("unexpected version: %q", info.FirecrackerVersion)
	}
}

func TestDecodeFaultBody(t *testing.T) {
	body := `{"fault_message":"drive id already exists"}`
	raw := "HTTP/1.1 400 Bad Request\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n" +
		"\r\n" + body

	r := bufio.NewReader(strings.NewReader(raw))
	outcome, err := Decode(r, PutDrive(Drive{DriveID: "root"}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Fault == nil {
		t.Fatalf("expected fault, got success: %+v", outcome.Success)
	}
	if outcome.Fault.FaultMessage != "drive id already exists" {
		t.Fatalf("unexpected fault message: %q", outcome.Fault.FaultMessage)
	}
}

func TestDecodeNoContentIsEmptySuccess(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	outcome, err := Decode(r, PutAction("InstanceStart"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if outcome.Status != 204 {
		t.Fatalf("unexpected status: %d", outcome.Status)
	}
	if outcome.Fault != nil || outcome.Success != nil {
		t.Fatalf("expected no success/fault for empty body, got %+v", outcome)
	}
}

func TestReadResponseHonorsContentLengthExactly(t *testing.T) {
	// Two responses back to back in the same stream; a body read that
	// over-consumes the first would corrupt the second.
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello" +
		"HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nworld"

	r := bufio.NewReader(strings.NewReader(raw))

	first, err := ReadResponse(r)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	if string(first.Body) != "hello" {
		t.Fatalf("unexpected first body: %q", first.Body)
	}

	second, err := ReadResponse(r)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if string(second.Body) != "world" {
		t.Fatalf("unexpected second body: %q", second.Body)
	}
}

func TestReadResponseRejectsOversizedHeaders(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 200 OK\r\n")
	for i := 0; i < maxHeaderCount+1; i++ {
		buf.WriteString("X-Pad: value\r\n")
	}
	buf.WriteString("\r\n")

	r := bufio.NewReader(&buf)
	if _, err := ReadResponse(r); err == nil {
		t.Fatal("expected error for header count exceeding bound")
	}
}

