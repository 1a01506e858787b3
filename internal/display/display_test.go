package display

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// bandedFrame returns a full-size frame where every strip has its own
// solid color, so slicing mistakes are visible per pixel.
func bandedFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	for i := 0; i < StripCount; i++ {
		c := color.RGBA{R: uint8(40 * i), G: uint8(255 - 40*i), B: uint8(i), A: 255}
		for y := i * StripHeight; y < (i+1)*StripHeight; y++ {
			for x := 0; x < FrameWidth; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return img
}

func TestSliceFrame(t *testing.T) {
	strips := SliceFrame(bandedFrame())

	if len(strips) != StripCount {
		t.Fatalf("expected %d strips, got %d", StripCount, len(strips))
	}
	for i, strip := range strips {
		b := strip.Bounds()
		if b.Dx() != StripWidth || b.Dy() != StripHeight {
			t.Errorf("strip %d is %dx%d", i, b.Dx(), b.Dy())
		}
		want := color.RGBA{R: uint8(40 * i), G: uint8(255 - 40*i), B: uint8(i), A: 255}
		if got := strip.RGBAAt(100, 30); got != want {
			t.Errorf("strip %d center pixel = %v, want %v", i, got, want)
		}
	}
}

func TestSliceFrame_ResizesOddDimensions(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 64, 96))
	strips := SliceFrame(small)

	if len(strips) != StripCount {
		t.Fatalf("expected %d strips, got %d", StripCount, len(strips))
	}
	for i, strip := range strips {
		b := strip.Bounds()
		if b.Dx() != StripWidth || b.Dy() != StripHeight {
			t.Errorf("strip %d is %dx%d after resize", i, b.Dx(), b.Dy())
		}
	}
}

func TestBlackStrip(t *testing.T) {
	strip := BlackStrip()
	b := strip.Bounds()
	if b.Dx() != StripWidth || b.Dy() != StripHeight {
		t.Fatalf("black strip is %dx%d", b.Dx(), b.Dy())
	}
	if got := strip.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("corner pixel = %v", got)
	}
}

func TestEncodePixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 0})
	img.SetRGBA(1, 0, color.RGBA{R: 200, G: 100, B: 50, A: 128})

	got := EncodePixels(img)
	want := []byte{10, 20, 30, 255, 200, 100, 50, 255}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodePixels = %v, want %v", got, want)
	}
}

func TestEncodeFrame(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	frame, err := EncodeFrame(CmdShowData, payload)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	if !bytes.HasPrefix(frame, []byte("multiverse:")) {
		t.Errorf("frame missing magic: %v", frame[:16])
	}
	size := binary.BigEndian.Uint32(frame[11:15])
	if size != uint32(len(payload)) {
		t.Errorf("payload length = %d, want %d", size, len(payload))
	}
	if string(frame[15:19]) != CmdShowData {
		t.Errorf("command = %q", frame[15:19])
	}
	if !bytes.Equal(frame[19:], payload) {
		t.Errorf("payload = %v", frame[19:])
	}
}

func TestEncodeFrame_RejectsBadCommand(t *testing.T) {
	if _, err := EncodeFrame("toolong", nil); err == nil {
		t.Fatal("expected error for 7-byte command")
	}
	if _, err := EncodeFrame("abc", nil); err == nil {
		t.Fatal("expected error for 3-byte command")
	}
}

func TestTCPSender_Send(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	addr := ln.Addr().(*net.TCPAddr)

	sender := &TCPSender{Port: addr.Port}
	if err := sender.Send(context.Background(), "127.0.0.1", CmdShowData, img); err != nil {
		t.Fatalf("Send: %v", err)
	}

	data := <-received
	want, err := EncodeFrame(CmdShowData, EncodePixels(img))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if !bytes.Equal(data, want) {
		t.Errorf("wire bytes differ: got %d bytes, want %d", len(data), len(want))
	}
}

func TestTCPSender_ConnectionRefused(t *testing.T) {
	// Grab a port that is certainly closed.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	sender := &TCPSender{Port: addr.Port}
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := sender.Send(context.Background(), "127.0.0.1", CmdShowData, img); err == nil {
		t.Fatal("expected connection error")
	}
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return path
}

func TestHTTPLoader_LocalFile(t *testing.T) {
	path := writePNG(t, bandedFrame())

	loader := &HTTPLoader{}
	strips, err := loader.LoadStrips(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadStrips: %v", err)
	}
	if len(strips) != StripCount {
		t.Fatalf("expected %d strips, got %d", StripCount, len(strips))
	}
}

func TestHTTPLoader_URL(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, bandedFrame()); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	loader := &HTTPLoader{Client: srv.Client()}
	strips, err := loader.LoadStrips(context.Background(), srv.URL+"/frame.png")
	if err != nil {
		t.Fatalf("LoadStrips: %v", err)
	}
	if len(strips) != StripCount {
		t.Fatalf("expected %d strips, got %d", StripCount, len(strips))
	}
}

func TestHTTPLoader_MissingFile(t *testing.T) {
	loader := &HTTPLoader{}
	if _, err := loader.LoadStrips(context.Background(), "/does/not/exist.png"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
