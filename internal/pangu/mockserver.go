package pangu

import (
	"fmt"
	"log"
	"math"
	"net"
	"sync"
)

// Pose mirrors the six camera parameters of SetViewpointByDegreesD as the
// mock server last received them.
type Pose struct {
	X, Y, Z          float64
	Yaw, Pitch, Roll float64
}

// MockServer is an in-process render server implementing the protocol
// subset the engine drives: handshake, GetCameraProperties,
// SetViewpointByDegreesD, GetImage, Echo, Quit and Goodbye. It exists for
// tests and for dev mode, where no real terrain server is available.
//
// Rendered images carry the same two-line textual preamble a real server
// produces, followed by Width*Height grayscale bytes produced by Render.
type MockServer struct {
	Width  uint32
	Height uint32
	HFov   float64
	VFov   float64

	// Render produces the pixel payload for the current pose. When nil,
	// a flat mid-grey field is rendered.
	Render func(pose Pose, frame int) []byte

	listener net.Listener
	mu       sync.Mutex
	pose     Pose
	frames   int
	closed   bool
}

// NewMockServer starts a mock render server on a random localhost port.
func NewMockServer(width, height uint32) (*MockServer, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s := &MockServer{
		Width:    width,
		Height:   height,
		HFov:     30.0,
		VFov:     22.5,
		listener: l,
	}
	go s.acceptLoop()
	return s, nil
}

// Addr returns the host:port the mock server listens on.
func (s *MockServer) Addr() string {
	return s.listener.Addr().String()
}

// LastPose returns the most recent pose received from a client.
func (s *MockServer) LastPose() Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose
}

// FramesServed returns how many images the server has rendered.
func (s *MockServer) FramesServed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Close shuts the listener down. In-flight sessions end when their
// connection breaks.
func (s *MockServer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.listener.Close()
}

func (s *MockServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				log.Printf("mock render server accept failed: %v", err)
			}
			return
		}
		go s.serve(conn)
	}
}

func (s *MockServer) serve(conn net.Conn) {
	defer conn.Close()

	// Handshake: version token, then Okay.
	version, err := ReadU32(conn)
	if err != nil {
		return
	}
	if version != ProtocolVersion {
		WriteU32(conn, uint32(MsgError))
		WriteI32(conn, 1)
		WriteString(conn, fmt.Sprintf("unsupported protocol version %#x", version))
		return
	}
	if err := WriteU32(conn, uint32(MsgOkay)); err != nil {
		return
	}

	for {
		code, err := ReadU32(conn)
		if err != nil {
			return
		}
		switch ClientMessage(code) {
		case MsgGoodbye:
			return

		case MsgQuit:
			WriteU32(conn, uint32(MsgOkay))
			return

		case MsgGetCameraProperties:
			if _, err := ReadU32(conn); err != nil { // camera id; every id gets the same camera
				return
			}
			WriteU32(conn, uint32(MsgCameraProperties))
			WriteU32(conn, uint32(cameraPropertiesSize))
			WriteU32(conn, s.Width)
			WriteU32(conn, s.Height)
			WriteF64(conn, s.HFov)
			WriteF64(conn, s.VFov)
			for i := 0; i < 3; i++ {
				WriteF64(conn, 0)
			}
			WriteF64(conn, 1)
			for i := 0; i < 3; i++ {
				WriteF64(conn, 0)
			}

		case MsgSetViewpointByDegD:
			var vals [6]float64
			bad := false
			for i := range vals {
				if vals[i], err = ReadF64(conn); err != nil {
					return
				}
				bad = bad || math.IsNaN(vals[i]) || math.IsInf(vals[i], 0)
			}
			if bad {
				WriteU32(conn, uint32(MsgError))
				WriteI32(conn, 2)
				WriteString(conn, "viewpoint parameters must be finite")
				continue
			}
			s.mu.Lock()
			s.pose = Pose{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}
			s.mu.Unlock()
			WriteU32(conn, uint32(MsgOkay))

		case MsgGetViewpointByDegD:
			s.mu.Lock()
			p := s.pose
			s.mu.Unlock()
			WriteU32(conn, uint32(MsgDoubleArray))
			WriteU32(conn, 6)
			for _, v := range [6]float64{p.X, p.Y, p.Z, p.Yaw, p.Pitch, p.Roll} {
				WriteF64(conn, v)
			}

		case MsgGetImage:
			s.mu.Lock()
			pose := s.pose
			frame := s.frames
			s.frames++
			render := s.Render
			s.mu.Unlock()

			var pixels []byte
			if render != nil {
				pixels = render(pose, frame)
			} else {
				pixels = make([]byte, s.Width*s.Height)
				for i := range pixels {
					pixels[i] = 128
				}
			}
			preamble := fmt.Sprintf("P5\n%d %d 255\n", s.Width, s.Height)
			body := append([]byte(preamble), pixels...)
			WriteU32(conn, uint32(MsgImage))
			WriteU32(conn, uint32(len(body)))
			if err := writeFull(conn, body); err != nil {
				return
			}

		case MsgEcho:
			n, err := ReadU32(conn)
			if err != nil {
				return
			}
			data := make([]byte, n)
			if err := readFull(conn, data); err != nil {
				return
			}
			WriteU32(conn, uint32(MsgEchoReply))
			WriteU32(conn, n)
			if err := writeFull(conn, data); err != nil {
				return
			}

		default:
			WriteU32(conn, uint32(MsgError))
			WriteI32(conn, 3)
			WriteString(conn, fmt.Sprintf("unsupported request %d", code))
		}
	}
}
