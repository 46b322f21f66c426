// Command wchisp is the CLI front-end of spec.md §6: a thin dispatcher
// over the core flashing/chipdb/codec packages. It owns argument
// parsing, logging, and exit codes only — none of the protocol logic.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wchisp/wchisp/internal/chipdb"
	"github.com/wchisp/wchisp/internal/codec"
	"github.com/wchisp/wchisp/internal/configregs"
	"github.com/wchisp/wchisp/internal/flashing"
	"github.com/wchisp/wchisp/internal/image"
	"github.com/wchisp/wchisp/internal/transport"
)

// Exit codes, spec.md §6.
const (
	exitOK             = 0
	exitNoDevice       = 1
	exitProtocolError  = 2
	exitImageError     = 2
	exitVerifyMismatch = 3
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitProtocolError)
	}
	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "probe":
		err = runProbe(os.Args[2:])
	case "flash":
		err = runFlash(os.Args[2:])
	case "erase":
		err = runErase(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "enable-debug":
		err = runSetDebug(os.Args[2:], true)
	case "disable-debug":
		err = runSetDebug(os.Args[2:], false)
	case "eeprom":
		err = runEEPROM(os.Args[2:])
	default:
		usage()
		os.Exit(exitProtocolError)
	}
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(exitCodeFor(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: wchisp <command> [flags]

commands:
  info                      identify the connected device
  probe                     enumerate candidate devices
  flash <path>              write a firmware image
  erase                     erase the chip's minimum erase unit
  config info|reset         read or reset configuration registers
  enable-debug|disable-debug
  eeprom dump|erase|write`)
}

func exitCodeFor(err error) int {
	switch err.(type) {
	case *flashing.VerifyMismatchError:
		return exitVerifyMismatch
	case *image.FormatError, *image.TooLargeError:
		return exitImageError
	case *transport.TransportOpenError:
		return exitNoDevice
	default:
		return exitProtocolError
	}
}

func commonFlags(fs *flag.FlagSet) (device *int, serial *bool, port *string, retry *int, jsonOut *bool) {
	device = fs.Int("d", 0, "device index")
	serial = fs.Bool("serial", false, "use the serial transport instead of USB")
	fs.BoolVar(serial, "s", false, "use the serial transport instead of USB (shorthand)")
	port = fs.String("port", "", "serial port path (with --serial)")
	fs.StringVar(port, "p", "", "serial port path (shorthand)")
	retry = fs.Int("retry", 0, "identify/set-key retry budget")
	jsonOut = fs.Bool("json", false, "emit machine-readable JSON")
	return
}

func openTransport(useSerial bool, port string, idx int) (transport.Transport, error) {
	if useSerial {
		if port == "" {
			return nil, fmt.Errorf("--port is required with --serial")
		}
		return transport.NewSerialTransport(port), nil
	}
	return transport.NewUSBTransport(idx)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	device, serial, port, retry, jsonOut := commonFlags(fs)
	fs.Parse(args)

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	info, err := flashing.Identify(tr, db, flashing.Retry{Attempts: *retry})
	if err != nil {
		return err
	}
	if *jsonOut {
		return json.NewEncoder(os.Stdout).Encode(infoView(info))
	}
	printInfo(info)
	return nil
}

type infoJSON struct {
	Family     string `json:"family"`
	Variant    string `json:"variant"`
	FlashSize  uint32 `json:"flash_size"`
	EEPROMSize uint32 `json:"eeprom_size,omitempty"`
	BTVER      string `json:"btver"`
	UID        string `json:"uid"`
}

func infoView(info *chipdb.ChipInfo) infoJSON {
	return infoJSON{
		Family:     info.FamilyName,
		Variant:    info.VariantName,
		FlashSize:  info.FlashSize,
		EEPROMSize: info.EEPROMSize,
		BTVER:      codec.FormatBTVER(info.BTVER),
		UID:        codec.FormatUID(info.UID),
	}
}

func printInfo(info *chipdb.ChipInfo) {
	fmt.Printf("chip:   %s (%s)\n", info.VariantName, info.FamilyName)
	fmt.Printf("flash:  %d bytes\n", info.FlashSize)
	if info.HasEEPROM {
		fmt.Printf("eeprom: %d bytes @ 0x%08x\n", info.EEPROMSize, info.EEPROMStartAddr)
	}
	fmt.Printf("btver:  %s\n", codec.FormatBTVER(info.BTVER))
	fmt.Printf("uid:    %s\n", codec.FormatUID(info.UID))
}

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	checkDB := fs.Bool("check-db", false, "validate the embedded chip database and exit")
	fs.Parse(args)

	if *checkDB {
		if _, err := chipdb.Load(); err != nil {
			return err
		}
		fmt.Println("chip database OK")
		return nil
	}

	candidates, err := transport.EnumerateCandidates()
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("no devices found")
		os.Exit(exitNoDevice)
	}
	for _, c := range candidates {
		fmt.Printf("[%d] %s\n", c.Index, c.Description)
	}
	return nil
}

func runFlash(args []string) error {
	fs := flag.NewFlagSet("flash", flag.ExitOnError)
	device, serial, port, retry, _ := commonFlags(fs)
	noErase := fs.Bool("no-erase", false, "skip erase")
	noVerify := fs.Bool("no-verify", false, "skip verify")
	noReset := fs.Bool("no-reset", false, "skip reset")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("flash: missing image path")
	}
	path := fs.Arg(0)

	raw, err := os.ReadFile(path)
	if err != nil {
		return &image.FormatError{Path: path, Reason: err.Error()}
	}

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}

	// flash_size isn't known until identify talks to the chip, so the
	// image is parsed and padded here against an unbounded budget; an
	// oversized write still surfaces as a chip-rejected status during
	// Flash rather than as ImageTooLarge.
	src, err := image.Load(path, raw, 0)
	if err != nil {
		return err
	}

	opts := flashing.Options{
		NoErase:  *noErase,
		NoVerify: *noVerify,
		NoReset:  *noReset,
		Retry:    flashing.Retry{Attempts: *retry},
		Progress: func(stage string, offset, total int) {
			log.Printf("%s: %d/%d bytes", stage, offset, total)
		},
	}
	info, err := flashing.Flash(tr, db, src, opts)
	if err != nil {
		return err
	}
	fmt.Printf("flashed %d bytes to %s (%s)\n", src.Len(), info.VariantName, info.FamilyName)
	return nil
}

func runErase(args []string) error {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	device, serial, port, retry, _ := commonFlags(fs)
	fs.Parse(args)

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	info, err := flashing.Erase(tr, db, flashing.Retry{Attempts: *retry})
	if err != nil {
		return err
	}
	fmt.Printf("erased %s\n", info.VariantName)
	return nil
}

func runConfig(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("config: expected info|reset")
	}
	switch args[0] {
	case "info":
		return runConfigInfo(args[1:])
	case "reset":
		return runConfigReset(args[1:])
	default:
		return fmt.Errorf("config: unknown subcommand %q", args[0])
	}
}

func runConfigInfo(args []string) error {
	fs := flag.NewFlagSet("config info", flag.ExitOnError)
	device, serial, port, retry, jsonOut := commonFlags(fs)
	fs.Parse(args)

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	_, dumps, err := flashing.ConfigInfo(tr, db, flashing.Retry{Attempts: *retry})
	if err != nil {
		return err
	}
	if *jsonOut {
		return json.NewEncoder(os.Stdout).Encode(dumps)
	}
	fmt.Print(configregs.Render(dumps))
	return nil
}

func runConfigReset(args []string) error {
	fs := flag.NewFlagSet("config reset", flag.ExitOnError)
	device, serial, port, retry, _ := commonFlags(fs)
	fs.Parse(args)

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	if _, err := flashing.ConfigReset(tr, db, flashing.Retry{Attempts: *retry}); err != nil {
		return err
	}
	fmt.Println("config reset")
	return nil
}

func runSetDebug(args []string, enable bool) error {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	device, serial, port, retry, _ := commonFlags(fs)
	fs.Parse(args)

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	if _, err := flashing.SetDebug(tr, db, flashing.Retry{Attempts: *retry}, enable); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func runEEPROM(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("eeprom: expected dump|erase|write")
	}
	switch args[0] {
	case "dump":
		return runEEPROMDump(args[1:])
	case "erase":
		return runEEPROMErase(args[1:])
	case "write":
		return runEEPROMWrite(args[1:])
	default:
		return fmt.Errorf("eeprom: unknown subcommand %q", args[0])
	}
}

func runEEPROMDump(args []string) error {
	fs := flag.NewFlagSet("eeprom dump", flag.ExitOnError)
	device, serial, port, retry, _ := commonFlags(fs)
	length := fs.Int("length", 0, "bytes to dump (0 = whole EEPROM)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("eeprom dump: missing output path")
	}
	out := fs.Arg(0)

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	_, data, err := flashing.EEPROMDump(tr, db, flashing.Retry{Attempts: *retry}, uint32(*length))
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0o644)
}

func runEEPROMErase(args []string) error {
	fs := flag.NewFlagSet("eeprom erase", flag.ExitOnError)
	device, serial, port, retry, _ := commonFlags(fs)
	fs.Parse(args)

	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	_, err = flashing.EEPROMErase(tr, db, flashing.Retry{Attempts: *retry})
	return err
}

func runEEPROMWrite(args []string) error {
	fs := flag.NewFlagSet("eeprom write", flag.ExitOnError)
	device, serial, port, retry, _ := commonFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("eeprom write: missing input path")
	}
	path := fs.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tr, err := openTransport(*serial, *port, *device)
	if err != nil {
		return err
	}
	db, err := chipdb.Load()
	if err != nil {
		return err
	}
	_, err = flashing.EEPROMWrite(tr, db, flashing.Retry{Attempts: *retry}, data)
	return err
}

