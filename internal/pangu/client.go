package pangu

import (
	"fmt"
	"net"
	"time"
)

// ServerError is a failure reported by the render server itself through an
// Error reply carrying a numeric code and a message.
type ServerError struct {
	Code    int32
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// UnexpectedMessageError reports a reply whose message code did not match
// the code the client was waiting for.
type UnexpectedMessageError struct {
	Got  ServerMessage
	Want ServerMessage
}

func (e *UnexpectedMessageError) Error() string {
	return fmt.Sprintf("received message type %d when expecting message type %d", uint32(e.Got), uint32(e.Want))
}

// CameraProperties describes the camera the server renders with.
type CameraProperties struct {
	Width    uint32
	Height   uint32
	HFovDeg  float64
	VFovDeg  float64
	Position [3]float64
	Attitude [4]float64 // quaternion, scalar term first
}

// Client is a session with a render server over a stream socket. It is not
// safe for concurrent use; the frame pump owns its client exclusively.
type Client struct {
	conn net.Conn
}

// Dial connects to a render server and performs the protocol handshake:
// the client writes the 32-bit version token and the server acknowledges
// with Okay. The connection is closed again if the handshake fails.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to render server at %s: %w", addr, err)
	}
	c := &Client{conn: conn}
	if err := c.start(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("protocol handshake failed: %w", err)
	}
	return c, nil
}

// start writes the protocol version token and waits for the Okay reply.
func (c *Client) start() error {
	if err := WriteU32(c.conn, ProtocolVersion); err != nil {
		return err
	}
	return c.want(MsgOkay)
}

// want reads the next server message code and checks it against the
// expected code. A mismatch is surfaced as *ServerError when the server
// sent an Error reply, and as *UnexpectedMessageError otherwise.
func (c *Client) want(expect ServerMessage) error {
	code, err := ReadU32(c.conn)
	if err != nil {
		return err
	}
	got := ServerMessage(code)
	if got == expect {
		return nil
	}
	if got == MsgError {
		ecode, err := ReadI32(c.conn)
		if err != nil {
			return err
		}
		emsg, err := ReadString(c.conn)
		if err != nil {
			return err
		}
		return &ServerError{Code: ecode, Message: emsg}
	}
	return &UnexpectedMessageError{Got: got, Want: expect}
}

// request writes a client message code.
func (c *Client) request(m ClientMessage) error {
	return WriteU32(c.conn, uint32(m))
}

// Close ends the session with a Goodbye message and closes the socket.
// No reply is expected for Goodbye.
func (c *Client) Close() error {
	werr := c.request(MsgGoodbye)
	cerr := c.conn.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

// Quit asks the remote server to shut itself down. The server acknowledges
// with Okay before exiting. The socket is closed afterwards.
func (c *Client) Quit() error {
	if err := c.request(MsgQuit); err != nil {
		c.conn.Close()
		return err
	}
	err := c.want(MsgOkay)
	c.conn.Close()
	return err
}

// GetImage requests a render of the current viewpoint. The reply body is a
// 32-bit length followed by that many bytes of opaque image data, returned
// verbatim; interpreting the preamble is the caller's concern.
func (c *Client) GetImage() ([]byte, error) {
	if err := c.request(MsgGetImage); err != nil {
		return nil, err
	}
	if err := c.want(MsgImage); err != nil {
		return nil, err
	}
	size, err := ReadU32(c.conn)
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if err := readFull(c.conn, data); err != nil {
		return nil, err
	}
	return data, nil
}

// cameraPropertiesSize is the byte count of a camera-properties reply body:
// two u32 dimensions, two f64 fields of view, a 3-vector position and a
// 4-component attitude quaternion.
const cameraPropertiesSize = 2*4 + 2*8 + 3*8 + 4*8

// GetCameraProperties queries the dimensions, field of view, position and
// attitude of the given camera. A nil result with nil error means the
// camera id was invalid (the server signals this with a zero-length body).
func (c *Client) GetCameraProperties(cameraID uint32) (*CameraProperties, error) {
	if err := c.request(MsgGetCameraProperties); err != nil {
		return nil, err
	}
	if err := WriteU32(c.conn, cameraID); err != nil {
		return nil, err
	}
	if err := c.want(MsgCameraProperties); err != nil {
		return nil, err
	}
	n, err := ReadU32(c.conn)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	var props CameraProperties
	if props.Width, err = ReadU32(c.conn); err != nil {
		return nil, err
	}
	if props.Height, err = ReadU32(c.conn); err != nil {
		return nil, err
	}
	if props.HFovDeg, err = ReadF64(c.conn); err != nil {
		return nil, err
	}
	if props.VFovDeg, err = ReadF64(c.conn); err != nil {
		return nil, err
	}
	for i := range props.Position {
		if props.Position[i], err = ReadF64(c.conn); err != nil {
			return nil, err
		}
	}
	for i := range props.Attitude {
		if props.Attitude[i], err = ReadF64(c.conn); err != nil {
			return nil, err
		}
	}

	// Drain any trailing bytes a newer server may append to the reply.
	for read := uint32(cameraPropertiesSize); read < n; read++ {
		if _, err := ReadU8(c.conn); err != nil {
			return nil, err
		}
	}
	return &props, nil
}

// SetViewpointByDegreesD positions the camera for the next render. The six
// values are the position (x, y, z) and attitude (yaw, pitch, roll) with
// angles in degrees.
func (c *Client) SetViewpointByDegreesD(x, y, z, yaw, pitch, roll float64) error {
	if err := c.request(MsgSetViewpointByDegD); err != nil {
		return err
	}
	for _, v := range [6]float64{x, y, z, yaw, pitch, roll} {
		if err := WriteF64(c.conn, v); err != nil {
			return err
		}
	}
	return c.want(MsgOkay)
}

// GetViewpointByDegreesD reads the camera pose back from the server as six
// doubles in a DoubleArray reply.
func (c *Client) GetViewpointByDegreesD() (x, y, z, yaw, pitch, roll float64, err error) {
	if err = c.request(MsgGetViewpointByDegD); err != nil {
		return
	}
	if err = c.want(MsgDoubleArray); err != nil {
		return
	}
	var n uint32
	if n, err = ReadU32(c.conn); err != nil {
		return
	}
	vals := make([]float64, n)
	for i := range vals {
		if vals[i], err = ReadF64(c.conn); err != nil {
			return
		}
	}
	if n != 6 {
		err = fmt.Errorf("viewpoint reply carried %d values, want 6", n)
		return
	}
	return vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], nil
}

// Echo sends a byte array to the server and returns the server's copy.
func (c *Client) Echo(data []byte) ([]byte, error) {
	if err := c.request(MsgEcho); err != nil {
		return nil, err
	}
	if err := WriteU32(c.conn, uint32(len(data))); err != nil {
		return nil, err
	}
	if err := writeFull(c.conn, data); err != nil {
		return nil, err
	}
	if err := c.want(MsgEchoReply); err != nil {
		return nil, err
	}
	size, err := ReadU32(c.conn)
	if err != nil {
		return nil, err
	}
	reply := make([]byte, size)
	if err := readFull(c.conn, reply); err != nil {
		return nil, err
	}
	return reply, nil
}
