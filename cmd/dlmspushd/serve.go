package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/cybroslabs/dlms-push-listener/codec"
	"github.com/cybroslabs/dlms-push-listener/config"
	"github.com/cybroslabs/dlms-push-listener/message"
	"github.com/cybroslabs/dlms-push-listener/serial"
	"github.com/cybroslabs/dlms-push-listener/sink"
	"github.com/cybroslabs/dlms-push-listener/tcp"
	"github.com/cybroslabs/dlms-push-listener/udp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var (
		tcpPorts     []int
		udpPorts     []int
		serialDevice string
		serialBaud   int
		saveDir      string
		logDir       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Listen for pushes and acknowledge them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cfg := config.Load(configFile, logger.Sugar())
			cfg.EnvOverride(nil, logger.Sugar())
			f := cmd.Flags()
			if f.Changed("tcp") {
				cfg.TCPPorts = tcpPorts
			}
			if f.Changed("udp") {
				cfg.UDPPorts = udpPorts
			}
			if f.Changed("serial") {
				cfg.SerialDevice = serialDevice
			}
			if f.Changed("baud") {
				cfg.SerialBaud = serialBaud
			}
			if f.Changed("save-dir") {
				cfg.SaveDataDir = saveDir
			}
			if f.Changed("log-dir") {
				cfg.LogDir = logDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().IntSliceVar(&tcpPorts, "tcp", nil, "TCP ports to listen on")
	cmd.Flags().IntSliceVar(&udpPorts, "udp", nil, "UDP ports to listen on")
	cmd.Flags().StringVar(&serialDevice, "serial", "", "serial device to read pushes from")
	cmd.Flags().IntVar(&serialBaud, "baud", 0, "serial baud rate")
	cmd.Flags().StringVar(&saveDir, "save-dir", "", "directory of the daily JSON files")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory of the daily operator log")
	return cmd
}

func listeners(cfg *config.Config, processor base.Processor) ([]base.Listener, error) {
	var ls []base.Listener
	fail := func(err error) ([]base.Listener, error) {
		for _, l := range ls {
			_ = l.Close()
		}
		return nil, err
	}
	for _, p := range cfg.TCPPorts {
		l, err := tcp.New(net.JoinHostPort(cfg.Host, strconv.Itoa(p)), processor, cfg.IdleTimeout())
		if err != nil {
			return fail(err)
		}
		ls = append(ls, l)
	}
	for _, p := range cfg.UDPPorts {
		l, err := udp.New(net.JoinHostPort(cfg.Host, strconv.Itoa(p)), processor)
		if err != nil {
			return fail(err)
		}
		ls = append(ls, l)
	}
	if cfg.SerialDevice != "" {
		ls = append(ls, serial.New(cfg.Serial(), processor))
	}
	return ls, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.LogDir != "" {
		df, err := sink.NewDailyFile(cfg.LogDir)
		if err != nil {
			return err
		}
		defer df.Close()
		logger = sink.Tee(logger, df, zap.InfoLevel)
	}
	log := logger.Sugar()

	decoder := codec.NewHDLCDecoder(cfg.Verify())
	decoder.SetLogger(log)
	handler := sink.NewHandler(sink.New(cfg.SaveDataDir, log), log)
	processor := message.NewProcessor(decoder, handler,
		message.WithLogger(log),
		message.WithDeviation(cfg.Deviation()),
		message.WithFCSBigEndian(cfg.FCSBigEndian),
	)

	ls, err := listeners(cfg, processor)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	errs := make(chan error, len(ls))
	for _, l := range ls {
		l.SetLogger(log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Serve(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", l.Addr(), err)
				cancel()
			}
		}()
	}
	log.Infof("saving pushes to %s", cfg.SaveDataDir)
	wg.Wait()
	close(errs)

	var all []error
	for err := range errs {
		all = append(all, err)
	}
	for _, l := range ls {
		s := l.Stats()
		log.Infof("%s: received %d, answered %d, failed %d", l.Addr(), s.Received, s.Answered, s.Failed)
	}
	return errors.Join(all...)
}
