/*
Package stream carries bus messages over a byte stream such as a serial port.

Every message travels in one frame:

	START [Length][Header(10)][Body(0-244)][CRC-16] END

The Length byte equals len(Header) + len(Body). The CRC-16-CCITT covers the
Length byte, the header and the body and is sent big-endian. Everything
between START (0x7E) and END (0x7F) is byte-stuffed: START, END and ESC
(0x7D) are replaced by ESC followed by the byte XOR 0x20.

The 10-byte header is:

	byte 0-1  R-bit (0x8000) and 15-bit endpoint id, big-endian
	byte 2    frame kind, 0x80 set on acks flagging attention required
	byte 3    message type
	byte 4-5  sequence number
	byte 6-7  reference number, zero on commands
	byte 8    nack reason
	byte 9    answer type of a response

The R-bit is clear on frames sent by the host and set on frames sent by an
endpoint, so a host reading its own transmissions back from a half-duplex
line can drop them.

A Transport implements bus.Transmitter on top of any io.ReadWriteCloser and
feeds inbound replies into a Sink, normally the *bus.Bus:

	port, err := stream.OpenSerial("/dev/ttyUSB0", 115200)
	if err != nil {
		return err
	}
	tr := stream.NewTransport(port)
	b, err := bus.New(tr, cfg)
	if err != nil {
		return err
	}
	go tr.Run(ctx, b)
*/
package stream
