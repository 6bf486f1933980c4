package stream

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate is the line speed used when none is configured.
const DefaultBaudRate = 115200

// OpenSerial opens serial port name at baud with 8N1 framing.
func OpenSerial(name string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("stream: open serial port %s: %w", name, err)
	}

	return port, nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("stream: list serial ports: %w", err)
	}

	return ports, nil
}
