package pangu

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func dialMock(t *testing.T, s *MockServer) *Client {
	t.Helper()
	c, err := Dial(s.Addr(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return c
}

func newMock(t *testing.T) *MockServer {
	t.Helper()
	s, err := NewMockServer(64, 48)
	if err != nil {
		t.Fatalf("NewMockServer: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClientHandshake(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	defer c.Close()
}

func TestGetCameraProperties(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	defer c.Close()

	props, err := c.GetCameraProperties(0)
	if err != nil {
		t.Fatalf("GetCameraProperties: %v", err)
	}
	if props == nil {
		t.Fatal("expected properties for camera 0, got nil")
	}
	if props.Width != 64 || props.Height != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", props.Width, props.Height)
	}
	if props.HFovDeg != 30.0 {
		t.Errorf("HFovDeg = %v, want 30", props.HFovDeg)
	}
	if props.Attitude[0] != 1 {
		t.Errorf("attitude scalar term = %v, want 1", props.Attitude[0])
	}
}

func TestSetViewpointAndReadBack(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	defer c.Close()

	if err := c.SetViewpointByDegreesD(10.5, -20.25, 30, 45, -5, 0.125); err != nil {
		t.Fatalf("SetViewpointByDegreesD: %v", err)
	}
	got := s.LastPose()
	want := Pose{10.5, -20.25, 30, 45, -5, 0.125}
	if got != want {
		t.Errorf("server received pose %+v, want %+v", got, want)
	}

	x, y, z, yaw, pitch, roll, err := c.GetViewpointByDegreesD()
	if err != nil {
		t.Fatalf("GetViewpointByDegreesD: %v", err)
	}
	if x != 10.5 || y != -20.25 || z != 30 || yaw != 45 || pitch != -5 || roll != 0.125 {
		t.Errorf("read back (%v %v %v %v %v %v)", x, y, z, yaw, pitch, roll)
	}
}

func TestGetImage(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	defer c.Close()

	img, err := c.GetImage()
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	// Two-line preamble followed by Width*Height pixels.
	newlines := bytes.Count(img, []byte{'\n'})
	if newlines < 2 {
		t.Fatalf("image preamble has %d newlines, want at least 2", newlines)
	}
	second := bytes.IndexByte(img[bytes.IndexByte(img, '\n')+1:], '\n')
	offset := bytes.IndexByte(img, '\n') + 1 + second + 1
	if len(img)-offset != 64*48 {
		t.Errorf("pixel payload = %d bytes, want %d", len(img)-offset, 64*48)
	}
	for _, p := range img[offset:] {
		if p != 128 {
			t.Fatalf("default render produced pixel %d, want 128", p)
		}
	}
}

func TestEcho(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	defer c.Close()

	payload := []byte{0x00, 0x01, 0xfe, 0xff}
	reply, err := c.Echo(payload)
	if err != nil {
		t.Fatalf("Echo: %v", err)
	}
	if !bytes.Equal(reply, payload) {
		t.Errorf("echo reply = %x, want %x", reply, payload)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	defer c.Close()

	// The mock rejects requests it does not implement with an Error reply.
	if err := c.request(MsgSetSkyType); err != nil {
		t.Fatalf("request: %v", err)
	}
	err := c.want(MsgOkay)
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *ServerError, got %v", err)
	}
	if serr.Message == "" {
		t.Error("server error carried no message")
	}
}

func TestUnexpectedMessageSurfaced(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	defer c.Close()

	// Ask for an image but wait for the wrong reply code.
	if err := c.request(MsgGetImage); err != nil {
		t.Fatalf("request: %v", err)
	}
	err := c.want(MsgOkay)
	var uerr *UnexpectedMessageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnexpectedMessageError, got %v", err)
	}
	if uerr.Got != MsgImage || uerr.Want != MsgOkay {
		t.Errorf("got/want = %v/%v", uerr.Got, uerr.Want)
	}
}

func TestQuit(t *testing.T) {
	s := newMock(t)
	c := dialMock(t, s)
	if err := c.Quit(); err != nil {
		t.Fatalf("Quit: %v", err)
	}
}
