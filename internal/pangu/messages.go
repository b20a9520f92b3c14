package pangu

import "fmt"

// ClientMessage identifies a request sent from the client to the render
// server. The low range (0-35) covers queries and session control; the
// 256-299 range covers configuration setters.
type ClientMessage uint32

const (
	MsgGoodbye             ClientMessage = 0
	MsgGetImage            ClientMessage = 1
	MsgGetElevation        ClientMessage = 2
	MsgGetElevations       ClientMessage = 3
	MsgLookupPoint         ClientMessage = 4
	MsgLookupPoints        ClientMessage = 5
	MsgGetPoint            ClientMessage = 6
	MsgGetPoints           ClientMessage = 7
	MsgEcho                ClientMessage = 8
	MsgGetRangeImage       ClientMessage = 9
	MsgGetRangeTexture     ClientMessage = 10
	MsgGetViewpointByDegS  ClientMessage = 11
	MsgGetViewpointByQuatS ClientMessage = 12
	MsgGetViewpointByDegD  ClientMessage = 16
	MsgGetViewpointByQuatD ClientMessage = 17
	MsgQuit                ClientMessage = 27
	MsgGetCameraProperties ClientMessage = 29
	MsgGetTimeTag          ClientMessage = 33

	MsgSetViewpointByDegS ClientMessage = 256
	MsgSetAmbientLight    ClientMessage = 258
	MsgSetSkyType         ClientMessage = 260
	MsgSetFieldOfViewDeg  ClientMessage = 261
	MsgSetAspectRatio     ClientMessage = 262
	MsgSetViewpointByDegD ClientMessage = 268
	MsgSetSunByDegrees    ClientMessage = 271
	MsgSelectCamera       ClientMessage = 288
)

// ServerMessage identifies a reply sent from the render server. The reply
// space is a separate enum from the request space.
type ServerMessage uint32

const (
	MsgOkay             ServerMessage = 0
	MsgError            ServerMessage = 1
	MsgImage            ServerMessage = 2
	MsgFloat            ServerMessage = 3
	MsgFloatArray       ServerMessage = 4
	MsgPoint3D          ServerMessage = 5
	MsgPoint3DArray     ServerMessage = 6
	MsgMemoryBlock      ServerMessage = 7
	MsgEchoReply        ServerMessage = 8
	MsgLidarPulseResult ServerMessage = 9
	MsgLidarMeasurement ServerMessage = 10
	MsgRadarResponse    ServerMessage = 11
	MsgDouble           ServerMessage = 12
	MsgDoubleArray      ServerMessage = 13
	MsgJointList        ServerMessage = 14
	MsgFrameList        ServerMessage = 15
	MsgCameraProperties ServerMessage = 16
	MsgRawImage         ServerMessage = 17
)

// ProtocolVersion is the 32-bit version token written at session start
// (protocol 1.20).
const ProtocolVersion uint32 = 0x00000114

// DefaultServerAddr is the address a render server listens on by default.
const DefaultServerAddr = "localhost:10363"

func (m ClientMessage) String() string {
	switch m {
	case MsgGoodbye:
		return "Goodbye"
	case MsgGetImage:
		return "GetImage"
	case MsgEcho:
		return "Echo"
	case MsgQuit:
		return "Quit"
	case MsgGetCameraProperties:
		return "GetCameraProperties"
	case MsgGetViewpointByDegD:
		return "GetViewpointByDegreesD"
	case MsgSetViewpointByDegD:
		return "SetViewpointByDegreesD"
	}
	return fmt.Sprintf("ClientMessage(%d)", uint32(m))
}

func (m ServerMessage) String() string {
	switch m {
	case MsgOkay:
		return "Okay"
	case MsgError:
		return "Error"
	case MsgImage:
		return "Image"
	case MsgEchoReply:
		return "EchoReply"
	case MsgCameraProperties:
		return "CameraProperties"
	case MsgRawImage:
		return "RawImage"
	}
	return fmt.Sprintf("ServerMessage(%d)", uint32(m))
}
