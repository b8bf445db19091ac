// binary5kbd turns a five-contact chord keyboard into a standard USB
// HID keyboard: read raw contacts from an FT232H-attached sampler,
// debounce them into chords, resolve chords through the codetable and
// modifier engine, map the result to HID keycodes, and report them to
// the kernel's /dev/uhid.
//
// Usage: binary5kbd [keysw|touchpad]
//        binary5kbd install    (register a systemd --user autostart unit)
//        binary5kbd uninstall  (remove it)
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shirosf/binary5kbd/internal/autostart"
	"github.com/shirosf/binary5kbd/internal/codetable"
	"github.com/shirosf/binary5kbd/internal/config"
	"github.com/shirosf/binary5kbd/internal/debouncer"
	"github.com/shirosf/binary5kbd/internal/diag"
	"github.com/shirosf/binary5kbd/internal/ftdi"
	"github.com/shirosf/binary5kbd/internal/modifier"
	"github.com/shirosf/binary5kbd/internal/pipeline"
	"github.com/shirosf/binary5kbd/internal/sampler"
	"github.com/shirosf/binary5kbd/internal/uhid"
	"github.com/shirosf/binary5kbd/hid"
)

func main() {
	os.Exit(run())
}

func run() int {
	switch {
	case len(os.Args) > 1 && os.Args[1] == "install":
		return runAutostart(autostart.Enable, "installed")
	case len(os.Args) > 1 && os.Args[1] == "uninstall":
		return runAutostart(autostart.Disable, "removed")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("[binary5kbd] config: %v", err)
		return 1
	}

	backend := cfg.GetBackend()
	if len(os.Args) > 1 {
		backend = os.Args[1]
	}

	doc, err := os.Open(cfg.GetCodetablePath())
	if err != nil {
		log.Printf("[binary5kbd] open codetable: %v", err)
		return 1
	}
	table, err := codetable.Parse(doc)
	doc.Close()
	if err != nil {
		var perr *codetable.ParseError
		if errors.As(err, &perr) {
			log.Printf("[binary5kbd] codetable: %v", perr)
		} else {
			log.Printf("[binary5kbd] codetable: %v", err)
		}
		return 1
	}

	bridge, err := ftdi.Open()
	if err != nil {
		log.Printf("[binary5kbd] ftdi: %v", err)
		return 1
	}
	defer bridge.Close()

	samp, err := newSampler(backend, bridge)
	if err != nil {
		log.Printf("[binary5kbd] %v", err)
		return 1
	}
	if err := samp.Probe(); err != nil {
		log.Printf("[binary5kbd] probe: %v", err)
		return 1
	}

	sink, err := uhid.Open(hid.VendorID, hid.ProductID, hid.DeviceName, hid.ReportDescriptor)
	if err != nil {
		log.Printf("[binary5kbd] uhid: %v", err)
		return 1
	}
	defer sink.Close()

	d := debouncer.New(samp)
	m := modifier.New(table)
	reporter := hid.NewReporter(sink)
	p := pipeline.New(d, m, reporter, backend, log.Default())

	diagSrv := diag.New(func() diag.Status { return p.Status(table) })
	if url, err := diagSrv.Start(cfg.GetDiagAddr()); err != nil {
		log.Printf("[binary5kbd] diag server: %v", err)
	} else {
		log.Printf("[binary5kbd] diagnostics at %s", url)
	}
	defer diagSrv.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	log.Printf("[binary5kbd] running with %s backend, layer %s", backend, table.ActiveLayer())
	err = p.Run(ctx)
	var perr *pipeline.Error
	if errors.As(err, &perr) && perr.Kind == pipeline.Cancelled {
		log.Printf("[binary5kbd] shutting down")
		return 0
	}
	if err != nil {
		log.Printf("[binary5kbd] runtime error: %v", err)
		return 2
	}
	return 0
}

// runAutostart runs an autostart.Enable/Disable action and reports the
// outcome, giving the carried-over autostart package a real entry
// point now that the teacher's tray UI (its own caller) is gone.
func runAutostart(action func() error, verb string) int {
	if err := action(); err != nil {
		log.Printf("[binary5kbd] autostart: %v", err)
		return 1
	}
	log.Printf("[binary5kbd] autostart unit %s", verb)
	return 0
}

func newSampler(backend string, bridge *ftdi.Bridge) (sampler.Sampler, error) {
	switch backend {
	case "keysw":
		return sampler.NewSwitch(bridge), nil
	case "touchpad":
		return sampler.NewTouchpad(bridge), nil
	default:
		return nil, errors.New("unknown backend: " + backend)
	}
}
