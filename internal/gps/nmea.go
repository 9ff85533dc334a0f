package gps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ErrNoFix is returned while the receiver has not reported a valid position.
var ErrNoFix = errors.New("gps: no fix yet")

// ErrNoSentences is returned when a read saw no RMC or GGA sentence, so the
// last fix was not refreshed.
var ErrNoSentences = errors.New("gps: no position sentences received")

// NMEAProvider reads standard NMEA 0183 sentences from a UART GPS.
// Compatible with u-blox NEO-M8N and any standard NMEA GPS.
type NMEAProvider struct {
	portPath string
	baudRate int
	port     serial.Port
	scanner  *bufio.Scanner
	mu       sync.Mutex
	last     Data
}

// NMEAConfig holds configuration for the NMEA GPS provider.
type NMEAConfig struct {
	PortPath string `yaml:"port_path" json:"portPath"`
	BaudRate int    `yaml:"baud_rate" json:"baudRate"`
}

// NewNMEA creates a new NMEA GPS provider.
func NewNMEA(cfg NMEAConfig) *NMEAProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600 // Standard NMEA default
	}
	return &NMEAProvider{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
		last:     Data{Source: "nmea"},
	}
}

func (n *NMEAProvider) Name() string { return "NMEA GPS" }

func (n *NMEAProvider) Connect() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: n.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(n.portPath, mode)
	if err != nil {
		return fmt.Errorf("gps: failed to open %s: %w", n.portPath, err)
	}
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		_ = port.Close()
		return fmt.Errorf("gps: set read timeout on %s: %w", n.portPath, err)
	}
	n.port = port
	n.scanner = bufio.NewScanner(port)
	log.Printf("[gps] connected to %s at %d baud", n.portPath, n.baudRate)
	return nil
}

func (n *NMEAProvider) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.port != nil {
		err := n.port.Close()
		n.port = nil
		n.scanner = nil
		return err
	}
	return nil
}

// Read reads sentences until both RMC and GGA have been seen, 20 lines have
// gone by, or ctx is done.
func (n *NMEAProvider) Read(ctx context.Context) (*Data, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.scanner == nil {
		return nil, fmt.Errorf("gps: not connected")
	}

	fix, err := readFix(ctx, n.scanner, &n.last)
	if serr := n.scanner.Err(); serr != nil {
		// A Scanner stays stopped after an error, e.g. io.ErrNoProgress
		// from repeated read timeouts on a quiet port.
		log.Printf("[gps] scanner stopped: %v, restarting", serr)
		n.scanner = bufio.NewScanner(n.port)
	}
	return fix, err
}

// readFix applies up to 20 lines from sc to last. It fails unless at least
// one RMC or GGA sentence arrived and last holds a valid fix.
func readFix(ctx context.Context, sc *bufio.Scanner, last *Data) (*Data, error) {
	gotRMC := false
	gotGGA := false
	for i := 0; i < 20 && !(gotRMC && gotGGA) && ctx.Err() == nil; i++ {
		if !sc.Scan() {
			break
		}
		switch ParseSentence(sc.Text(), last) {
		case "RMC":
			gotRMC = true
		case "GGA":
			gotGGA = true
		}
	}

	if !gotRMC && !gotGGA {
		return nil, ErrNoSentences
	}
	if !last.Valid {
		return nil, ErrNoFix
	}
	fix := *last
	return &fix, nil
}

// ParseSentence applies one NMEA sentence to d. It returns the sentence type
// ("RMC" or "GGA") when the sentence was understood, "" otherwise.
func ParseSentence(line string, d *Data) string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") || !validateNMEAChecksum(line) {
		return ""
	}

	switch {
	case strings.HasPrefix(line, "$GPRMC"), strings.HasPrefix(line, "$GNRMC"):
		if parseRMC(line, d) {
			return "RMC"
		}
	case strings.HasPrefix(line, "$GPGGA"), strings.HasPrefix(line, "$GNGGA"):
		if parseGGA(line, d) {
			return "GGA"
		}
	}
	return ""
}

func parseRMC(line string, d *Data) bool {
	// $GPRMC,hhmmss.ss,A,llll.ll,a,yyyyy.yy,a,x.x,x.x,ddmmyy,x.x,a*hh
	parts := splitNMEA(line)
	if len(parts) < 10 {
		return false
	}

	d.Valid = parts[2] == "A"
	if d.Valid {
		d.Latitude = parseNMEACoord(parts[3], parts[4])
		d.Longitude = parseNMEACoord(parts[5], parts[6])

		if spd, err := strconv.ParseFloat(parts[7], 64); err == nil {
			d.Speed = spd * 1.852 // Knots to km/h
		}
		if hdg, err := strconv.ParseFloat(parts[8], 64); err == nil {
			d.Heading = hdg
		}
	}
	return true
}

func parseGGA(line string, d *Data) bool {
	// $GPGGA,hhmmss.ss,llll.ll,a,yyyyy.yy,a,x,xx,x.x,x.x,M,x.x,M,x.x,xxxx*hh
	parts := splitNMEA(line)
	if len(parts) < 11 {
		return false
	}

	if hdop, err := strconv.ParseFloat(parts[8], 64); err == nil {
		// Rough horizontal accuracy for a consumer receiver.
		d.Accuracy = hdop * 5
	}
	if alt, err := strconv.ParseFloat(parts[9], 64); err == nil {
		d.Altitude = alt
	}
	return true
}

// splitNMEA splits a sentence and strips the checksum suffix.
func splitNMEA(line string) []string {
	if idx := strings.Index(line, "*"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimPrefix(line, "$")
	return strings.Split(line, ",")
}

// parseNMEACoord converts NMEA ddmm.mmmm format to decimal degrees.
func parseNMEACoord(raw, dir string) float64 {
	if raw == "" || dir == "" {
		return 0
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	deg := math.Floor(val / 100)
	min := val - deg*100
	result := deg + min/60

	if dir == "S" || dir == "W" {
		result = -result
	}
	return result
}

// validateNMEAChecksum checks the XOR checksum after *.
func validateNMEAChecksum(line string) bool {
	idx := strings.Index(line, "*")
	if idx < 0 || idx+3 > len(line) {
		return false
	}
	body := line[1:idx] // Between $ and *
	var calc byte
	for i := 0; i < len(body); i++ {
		calc ^= body[i]
	}
	expected, err := strconv.ParseUint(line[idx+1:idx+3], 16, 8)
	if err != nil {
		return false
	}
	return byte(expected) == calc
}
