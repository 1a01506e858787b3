package display

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"net"
	"strconv"
)

// DefaultPort is the Multiverse controller's listening port.
const DefaultPort = 54321

// CmdShowData tells a controller to display the frame that follows.
const CmdShowData = "sdat"

// frameMagic prefixes every wire frame.
var frameMagic = []byte("multiverse:")

// EncodePixels flattens an image into the controller's pixel format:
// four bytes per pixel, row-major, alpha forced opaque.
func EncodePixels(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			out = append(out, row[x*4], row[x*4+1], row[x*4+2], 0xff)
		}
	}
	return out
}

// EncodeFrame builds a complete wire frame: magic, big-endian payload
// length, 4-byte command, payload. The command must be exactly 4 bytes.
func EncodeFrame(command string, payload []byte) ([]byte, error) {
	if len(command) != 4 {
		return nil, fmt.Errorf("command %q must be exactly 4 bytes", command)
	}

	var buf bytes.Buffer
	buf.Grow(len(frameMagic) + 8 + len(payload))
	buf.Write(frameMagic)
	binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.WriteString(command)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Sender streams frames to controllers.
type Sender interface {
	Send(ctx context.Context, host, command string, img *image.RGBA) error
}

// TCPSender is the production Sender.
type TCPSender struct {
	// Port overrides DefaultPort when non-zero.
	Port   int
	Dialer net.Dialer
}

// Send connects to the controller, writes one frame, and half-closes
// the write side so the controller sees a clean end of stream.
func (s *TCPSender) Send(ctx context.Context, host, command string, img *image.RGBA) error {
	frame, err := EncodeFrame(command, EncodePixels(img))
	if err != nil {
		return err
	}

	port := s.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := s.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("sending frame to %s: %w", addr, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return fmt.Errorf("closing write side to %s: %w", addr, err)
		}
	}
	return nil
}
