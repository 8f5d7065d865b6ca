/*
 * lc3-vm - Command-line entry point.
 *
 * Usage: lc3 [-l logfile] [-v] image-file1 [image-file2 ...]
 *
 * Loads each image into a single Machine in argument order (later
 * images overwrite overlapping regions), puts the controlling TTY into
 * raw mode, and runs the fetch-decode-execute loop until HALT or an
 * illegal opcode. Terminal state is restored on every exit path.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/skypartan/lc3-vm/internal/cpu"
	"github.com/skypartan/lc3-vm/internal/hexfmt"
	"github.com/skypartan/lc3-vm/internal/image"
	"github.com/skypartan/lc3-vm/internal/logger"
	"github.com/skypartan/lc3-vm/internal/machine"
	"github.com/skypartan/lc3-vm/internal/term"
)

func main() {
	optLogFile := getopt.StringLong("log", 'l', "", "Diagnostic log file")
	optVerbose := getopt.BoolLong("verbose", 'v', "Raise diagnostic logging to debug level")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	os.Exit(run(getopt.Args(), *optLogFile, *optVerbose))
}

// run executes the VM against already-parsed command-line inputs. It is
// kept separate from flag parsing so it can be driven directly from
// tests without touching the process-global getopt state.
func run(images []string, logPath string, verbose bool) int {
	if len(images) < 1 {
		fmt.Println("lc3 [image-file1] ...")
		return 2
	}

	var logFile *os.File
	if logPath != "" {
		f, err := os.Create(logPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		logFile = f
	}
	log := logger.New(logFile, verbose)

	adapter := term.New()
	m := machine.New(adapter, os.Stdout)
	for _, path := range images {
		if err := image.LoadFile(m, path); err != nil {
			fmt.Println(err.Error())
			return 1
		}
		log.Info("loaded image", slog.String("path", path))
	}
	m.Reset()

	if err := adapter.Start(); err != nil {
		log.Warn("failed to set raw terminal mode", slog.String("error", err.Error()))
	}
	defer adapter.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		adapter.Stop()
		os.Exit(-2)
	}()

	if err := cpu.Run(m); err != nil {
		var illegal *cpu.IllegalOpcodeError
		if errors.As(err, &illegal) {
			fmt.Printf("Bad opcode %s\n", hexfmt.Binary(illegal.Instr, 16))
			log.Error("illegal opcode", slog.String("instr", hexfmt.Hex16(illegal.Instr)))
			return 1
		}
		var hostIO *cpu.HostIOError
		if errors.As(err, &hostIO) {
			log.Error("terminal I/O failure", slog.String("error", hostIO.Error()))
			return 1
		}
		log.Error("machine stopped on error", slog.String("error", err.Error()))
		return 1
	}

	return 0
}
