// Command pansniff decodes a captured render-protocol conversation from a
// pcap file: it reassembles the client and server TCP payload streams and
// prints the message codes (with the interesting payload fields) in
// capture order. Useful when a server misbehaves and all you have is a
// tcpdump of the session.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/terrain-data/feature.track/internal/pangu"
)

var (
	pcapPath   = flag.String("pcap", "", "pcap/pcapng file to decode (required)")
	serverPort = flag.Int("port", 10363, "Render server TCP port")
)

func main() {
	flag.Parse()
	if *pcapPath == "" {
		log.Fatal("-pcap is required")
	}

	clientStream, serverStream, err := extractStreams(*pcapPath, uint16(*serverPort))
	if err != nil {
		log.Fatalf("failed to extract streams: %v", err)
	}

	fmt.Println("--- client requests ---")
	decodeClientStream(bytes.NewReader(clientStream))
	fmt.Println("--- server replies ---")
	decodeServerStream(bytes.NewReader(serverStream))
}

// extractStreams concatenates the TCP payloads travelling to the server
// port (client stream) and from it (server stream). Retransmissions and
// reordering are not handled; captures of a clean localhost session do
// not need them.
func extractStreams(path string, port uint16) (client, server []byte, err error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pcap file: %w", err)
	}
	defer handle.Close()

	source := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range source.Packets() {
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			continue
		}
		tcp := tcpLayer.(*layers.TCP)
		if len(tcp.Payload) == 0 {
			continue
		}
		switch {
		case uint16(tcp.DstPort) == port:
			client = append(client, tcp.Payload...)
		case uint16(tcp.SrcPort) == port:
			server = append(server, tcp.Payload...)
		}
	}
	return client, server, nil
}

// decodeClientStream walks the client byte stream request by request.
func decodeClientStream(r io.Reader) {
	// The stream opens with the protocol version word.
	version, err := pangu.ReadU32(r)
	if err != nil {
		fmt.Println("  (empty stream)")
		return
	}
	fmt.Printf("  version %#010x\n", version)

	for {
		code, err := pangu.ReadU32(r)
		if err != nil {
			return
		}
		msg := pangu.ClientMessage(code)
		switch msg {
		case pangu.MsgSetViewpointByDegD:
			var vals [6]float64
			for i := range vals {
				if vals[i], err = pangu.ReadF64(r); err != nil {
					return
				}
			}
			fmt.Printf("  %v(%g, %g, %g, %g, %g, %g)\n", msg, vals[0], vals[1], vals[2], vals[3], vals[4], vals[5])
		case pangu.MsgGetCameraProperties:
			cid, err := pangu.ReadU32(r)
			if err != nil {
				return
			}
			fmt.Printf("  %v(camera=%d)\n", msg, cid)
		case pangu.MsgEcho:
			n, err := pangu.ReadU32(r)
			if err != nil {
				return
			}
			if err := skip(r, int64(n)); err != nil {
				return
			}
			fmt.Printf("  %v(%d bytes)\n", msg, n)
		default:
			// Requests the engine never sends carry payloads this decoder
			// does not model; report the code and stop rather than
			// misparse the rest of the stream.
			fmt.Printf("  %v\n", msg)
			if msg != pangu.MsgGoodbye && msg != pangu.MsgQuit && msg != pangu.MsgGetImage && msg != pangu.MsgGetViewpointByDegD {
				fmt.Println("  (unmodelled payload, stopping)")
				return
			}
		}
	}
}

// decodeServerStream walks the server byte stream reply by reply.
func decodeServerStream(r io.Reader) {
	for {
		code, err := pangu.ReadU32(r)
		if err != nil {
			return
		}
		msg := pangu.ServerMessage(code)
		switch msg {
		case pangu.MsgOkay:
			fmt.Printf("  %v\n", msg)
		case pangu.MsgError:
			ecode, err := pangu.ReadI32(r)
			if err != nil {
				return
			}
			emsg, err := pangu.ReadString(r)
			if err != nil {
				return
			}
			fmt.Printf("  %v(code=%d, %q)\n", msg, ecode, emsg)
		case pangu.MsgImage, pangu.MsgEchoReply, pangu.MsgCameraProperties:
			n, err := pangu.ReadU32(r)
			if err != nil {
				return
			}
			if err := skip(r, int64(n)); err != nil {
				return
			}
			fmt.Printf("  %v(%d bytes)\n", msg, n)
		case pangu.MsgDoubleArray:
			n, err := pangu.ReadU32(r)
			if err != nil {
				return
			}
			vals := make([]float64, n)
			for i := range vals {
				if vals[i], err = pangu.ReadF64(r); err != nil {
					return
				}
			}
			fmt.Printf("  %v%v\n", msg, vals)
		default:
			fmt.Printf("  %v (unmodelled payload, stopping)\n", msg)
			return
		}
	}
}

func skip(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
