package device

import (
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrUnavailable reports that the USB listing could not be obtained.
// Callers must treat this as "presence unknown", not as "token absent".
var ErrUnavailable = errors.New("usb device listing unavailable")

// DeviceID identifies a USB device by its vendor and product id,
// each a 4-hex-digit string, lower-cased.
type DeviceID struct {
	Vendor  string
	Product string
}

func (id DeviceID) String() string {
	return id.Vendor + ":" + id.Product
}

// listingPattern matches one line of lsusb output, e.g.
// "Bus 001 Device 002: ID 1050:0405 Yubico YubiKey"
var listingPattern = regexp.MustCompile(
	`(?i)^Bus\s+(\d{1,3})\s+Device\s+(\d{1,3}):\s+ID\s+([0-9a-f]{4}):([0-9a-f]{4})\s+(.+)$`)

// ParseListing extracts device ids from a textual USB listing. Lines that
// do not match the listing grammar are skipped; the listing is advisory
// telemetry, so malformed or empty input yields an empty set, never an error.
func ParseListing(raw string) []DeviceID {
	var devices []DeviceID
	for _, line := range strings.Split(raw, "\n") {
		m := listingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		devices = append(devices, DeviceID{
			Vendor:  strings.ToLower(m[3]),
			Product: strings.ToLower(m[4]),
		})
	}
	return devices
}

// Matches reports whether id satisfies the given vendor and product filters.
// An empty string means the filter is absent. With both filters absent the
// result is always false: an unconstrained query matches nothing, so a
// caller bug cannot turn into an "any device present" positive.
func Matches(id DeviceID, vendor, product string) bool {
	if vendor != "" && product != "" {
		return id.Vendor == vendor && id.Product == product
	}
	if vendor != "" {
		return id.Vendor == vendor
	}
	if product != "" {
		return id.Product == product
	}
	return false
}

// KnownTokenSet is the fixed set of token ids the monitor accepts: one
// vendor id plus the product ids it may report. Immutable once built.
type KnownTokenSet struct {
	Vendor   string
	Products []string
}

// DefaultTokens covers the Yubico YubiKey models this tool was built for.
// 0402 = FIDO, 0405 = 5-series, 0407 = NFC.
func DefaultTokens() KnownTokenSet {
	return KnownTokenSet{
		Vendor:   "1050",
		Products: []string{"0402", "0405", "0407"},
	}
}

// NewKnownTokenSet normalizes the ids to lower case so they compare
// exactly against parsed listing entries.
func NewKnownTokenSet(vendor string, products []string) KnownTokenSet {
	set := KnownTokenSet{Vendor: strings.ToLower(vendor)}
	for _, p := range products {
		set.Products = append(set.Products, strings.ToLower(p))
	}
	return set
}

// ListingSource produces one snapshot of the textual USB listing.
type ListingSource func() (string, error)

// LsusbSource invokes the system lsusb command.
func LsusbSource() (string, error) {
	out, err := exec.Command("lsusb").Output()
	if err != nil {
		return "", fmt.Errorf("lsusb: %w", err)
	}
	return string(out), nil
}

// Detector answers presence questions about a known token set against a
// live USB listing. Detector calls are read-only; it holds no state.
type Detector struct {
	known  KnownTokenSet
	source ListingSource
}

func NewDetector(known KnownTokenSet, source ListingSource) *Detector {
	if source == nil {
		source = LsusbSource
	}
	return &Detector{known: known, source: source}
}

// Snapshot returns the ids of all devices in the current listing.
func (d *Detector) Snapshot() ([]DeviceID, error) {
	raw, err := d.source()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ParseListing(raw), nil
}

// TokenPresent reports whether at least one known token is attached.
func (d *Detector) TokenPresent() (bool, error) {
	devices, err := d.Snapshot()
	if err != nil {
		return false, err
	}
	for _, dev := range devices {
		for _, product := range d.known.Products {
			if Matches(dev, d.known.Vendor, product) {
				return true, nil
			}
		}
	}
	return false, nil
}

// CountTokens returns how many distinct accepted products are attached.
// Duplicate listing entries for the same product count once.
func (d *Detector) CountTokens() (int, error) {
	tokens, err := d.KnownTokens()
	if err != nil {
		return 0, err
	}
	return len(tokens), nil
}

// KnownTokens returns the distinct known token ids currently attached.
func (d *Detector) KnownTokens() ([]DeviceID, error) {
	devices, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	var found []DeviceID
	for _, product := range d.known.Products {
		for _, dev := range devices {
			if Matches(dev, d.known.Vendor, product) {
				found = append(found, DeviceID{Vendor: d.known.Vendor, Product: product})
				break
			}
		}
	}
	return found, nil
}
