package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/arloliu/go-peribus/bus"
	"github.com/arloliu/go-peribus/command"
	"github.com/arloliu/go-peribus/config"
	"github.com/arloliu/go-peribus/logger"
	"github.com/arloliu/go-peribus/message"
	"github.com/arloliu/go-peribus/stream"
	"github.com/spf13/cobra"
)

var (
	sendEndpoint       string
	sendType           string
	sendPayloadHex     string
	sendExpectResponse bool
	sendDefaultHex     string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one command and print its outcome",
	Long: `Send one command to an endpoint and wait for its Ack, Response or Nack.

Examples:
  peribusctl send -p /dev/ttyUSB0 --endpoint 3 --type 0x21 --payload-hex 01
  peribusctl send -p /dev/ttyUSB0 --endpoint 3 --type 0x40 --expect-response --default-hex 00`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendEndpoint, "endpoint", "e", "", "Endpoint id (decimal or 0x-prefixed)")
	sendCmd.Flags().StringVarP(&sendType, "type", "t", "", "Message type (decimal or 0x-prefixed)")
	sendCmd.Flags().StringVar(&sendPayloadHex, "payload-hex", "", "Payload as hex bytes")
	sendCmd.Flags().BoolVarP(&sendExpectResponse, "expect-response", "r", false, "Wait for a response instead of an ack")
	sendCmd.Flags().StringVar(&sendDefaultHex, "default-hex", "", "Response returned when the type is unsupported and fallback is allowed")
	_ = sendCmd.MarkFlagRequired("endpoint")
	_ = sendCmd.MarkFlagRequired("type")

	rootCmd.AddCommand(sendCmd)
}

// sendRequest is the parsed form of the send flags.
type sendRequest struct {
	endpoint        bus.EndpointID
	msgType         message.Type
	payload         []byte
	expectsResponse bool
	defaultResponse []byte
	hasDefault      bool
}

func parseSendRequest() (*sendRequest, error) {
	id, err := config.ParseEndpoint(sendEndpoint)
	if err != nil {
		return nil, err
	}
	if id > stream.MaxEndpointID {
		return nil, fmt.Errorf("endpoint %d out of range, max %d", id, stream.MaxEndpointID)
	}

	typ, err := config.ParseType(sendType)
	if err != nil {
		return nil, err
	}

	payload, err := decodeHex(sendPayloadHex)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	req := &sendRequest{
		endpoint:        id,
		msgType:         typ,
		payload:         payload,
		expectsResponse: sendExpectResponse,
	}

	if sendDefaultHex != "" {
		if !sendExpectResponse {
			return nil, errors.New("--default-hex requires --expect-response")
		}
		req.defaultResponse, err = decodeHex(sendDefaultHex)
		if err != nil {
			return nil, fmt.Errorf("default response: %w", err)
		}
		req.hasDefault = true
	}

	return req, nil
}

// decodeHex accepts "0a1b", "0a 1b" and "0x0a1b".
func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil, nil
	}

	return hex.DecodeString(s)
}

func runSend(cmd *cobra.Command, _ []string) error {
	req, err := parseSendRequest()
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Port == "" {
		return errNoPort
	}

	port, err := stream.OpenSerial(cfg.Port, cfg.Baud)
	if err != nil {
		return err
	}

	tr := stream.NewTransport(port)
	defer tr.Close()

	b, err := newBus(cfg, tr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	go func() {
		if err := tr.Run(ctx, b); err != nil && ctx.Err() == nil {
			logger.Error("peribusctl: read loop stopped", "error", err)
		}
	}()

	return execute(ctx, cmd, b, req)
}

// newBus builds a bus on tr from cfg and installs its capability table.
func newBus(cfg *config.Config, tr *stream.Transport) (*bus.Bus, error) {
	opts, err := cfg.BusOptions()
	if err != nil {
		return nil, err
	}

	caps, err := cfg.EndpointCapabilities()
	if err != nil {
		return nil, err
	}
	for id, types := range caps {
		tr.SetCapabilities(id, types...)
	}

	busCfg, err := bus.NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	return bus.New(tr, busCfg)
}

func execute(ctx context.Context, cmd *cobra.Command, b *bus.Bus, req *sendRequest) error {
	out := cmd.OutOrStdout()
	ep := b.Endpoint(req.endpoint)

	if !req.expectsResponse {
		c := command.NewAck(ep, req.msgType, req.payload)
		if err := c.Send(ctx); err != nil {
			return err
		}

		fmt.Fprintf(out, "ack endpoint=%d seq=%d attention=%t\n", ep.ID(), c.Seq(), c.AttentionRequired())

		return nil
	}

	var opts []command.Option[[]byte]
	if req.hasDefault {
		opts = append(opts, command.WithDefaultResponse(req.defaultResponse))
	}

	c := command.New(ep, req.msgType, req.payload, true, opts...)
	resp, err := c.SendAndReceive(ctx)
	if err != nil {
		return err
	}

	if o, ok := c.Outcome(); ok && o.Kind != command.OutcomeResponse {
		fmt.Fprintf(out, "default endpoint=%d seq=%d payload=%x\n", ep.ID(), c.Seq(), resp)
		return nil
	}

	fmt.Fprintf(out, "response endpoint=%d seq=%d payload=%x\n", ep.ID(), c.Seq(), resp)

	return nil
}
