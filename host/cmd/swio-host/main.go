package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"swiolink/host/gpiolink"
	"swiolink/host/probe"
	"swiolink/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path of the debug bridge")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	gpioPin = flag.String("gpio", "", "Bit-bang SWIO directly on this GPIO pin instead of using a bridge")
	tickUs  = flag.Int("tick", 10, "GPIO tick period in microseconds (with -gpio)")
)

// bus is the subset of operations shared by the serial probe and the
// direct GPIO link.
type bus interface {
	WriteReg(reg uint8, value uint32) error
	ReadReg(reg uint8) (uint32, error)
}

func main() {
	flag.Parse()

	fmt.Println("SWIO Host - Debug Bridge Console")
	fmt.Println("================================")

	var b bus
	var p *probe.Probe

	if *gpioPin != "" {
		cfg := gpiolink.DefaultConfig(*gpioPin)
		cfg.TickPeriod = time.Duration(*tickUs) * time.Microsecond
		link, err := gpiolink.Open(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to open GPIO link: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Attaching on %s...\n", *gpioPin)
		if err := link.Attach(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Attach failed: %v\n", err)
			os.Exit(1)
		}
		b = link
	} else {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud

		fmt.Printf("Connecting to bridge on %s...\n", *device)
		var err error
		p, err = probe.OpenWithConfig(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
			os.Exit(1)
		}
		defer p.Close()

		fmt.Println("Waiting for the bridge greeting...")
		if err := p.WaitGreeting(5 * time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Bridge ready!")
		b = p
	}

	// Interactive command loop
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]

		switch cmd {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "test":
			if p == nil {
				fmt.Println("test needs a bridge connection (not available with -gpio)")
				continue
			}
			if err := p.SelfTest(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			} else {
				fmt.Println("Bridge OK")
			}

		case "on", "off":
			if p == nil {
				fmt.Println("power control needs a bridge connection (not available with -gpio)")
				continue
			}
			if err := p.SetPower(cmd == "on"); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			} else {
				fmt.Printf("Target power %s\n", cmd)
			}

		case "rd":
			if len(parts) != 2 {
				fmt.Println("Usage: rd <reg>")
				continue
			}
			reg, err := parseReg(parts[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			value, err := b.ReadReg(reg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("reg 0x%02x = 0x%08x\n", reg, value)

		case "wr":
			if len(parts) != 3 {
				fmt.Println("Usage: wr <reg> <value>")
				continue
			}
			reg, err := parseReg(parts[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			value, err := strconv.ParseUint(strings.TrimPrefix(parts[2], "0x"), 16, 32)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: bad value %q: %v\n", parts[2], err)
				continue
			}
			if err := b.WriteReg(reg, uint32(value)); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("reg 0x%02x <- 0x%08x\n", reg, uint32(value))

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help            - Show this help message")
	fmt.Println("  test            - Run the bridge self-test")
	fmt.Println("  on / off        - Switch target power")
	fmt.Println("  rd <reg>        - Read a debug register (hex)")
	fmt.Println("  wr <reg> <val>  - Write a debug register (hex)")
	fmt.Println("  quit/exit/q     - Exit the program")
	fmt.Println()
}

func parseReg(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("bad register %q: %w", s, err)
	}
	if v > 0x7f {
		return 0, fmt.Errorf("register 0x%02x out of range (7 bits)", v)
	}
	return uint8(v), nil
}
