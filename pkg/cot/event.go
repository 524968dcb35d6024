package cot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Defaults applied by NewEvent.
const (
	// DefaultHow marks events as machine-generated.
	DefaultHow = "m-g"

	// DefaultStaleAfter is how long an event stays fresh when the
	// caller does not set an explicit stale time.
	DefaultStaleAfter = 60 * time.Second

	// UnknownAccuracy is the CoT convention for "no accuracy estimate"
	// in the ce and le point attributes.
	UnknownAccuracy = 9999999.0
)

// Model errors.
var (
	ErrValidation = errors.New("invalid event")
	ErrEncode     = errors.New("encode failed")
	ErrDecode     = errors.New("decode failed")
)

// typeCodePattern matches atom type codes:
// a-<affiliation>-<dimension> followed by optional -function/-subcategory
// segments. Affiliations per MIL-STD-2525 as used by TAK.
var typeCodePattern = regexp.MustCompile(`^a-[pufnshjka]-[A-Za-z](-[A-Za-z0-9]+)*$`)

// Point is a WGS-84 position with accuracy estimates.
type Point struct {
	// Lat is latitude in decimal degrees, [-90, 90].
	Lat float64

	// Lon is longitude in decimal degrees, [-180, 180].
	Lon float64

	// HAE is height above ellipsoid in meters.
	HAE float64

	// CE is circular (horizontal) error in meters, 90% confidence.
	CE float64

	// LE is linear (vertical) error in meters, 90% confidence.
	LE float64
}

// Contact carries callsign and network endpoint detail.
type Contact struct {
	Callsign string
	Endpoint string
}

// PrecisionLocation describes how the position was determined.
type PrecisionLocation struct {
	// Geopointsrc is the position source (e.g. "GPS", "USER").
	Geopointsrc string

	// Altsrc is the altitude source (e.g. "GPS", "BARO").
	Altsrc string
}

// Event is one Cursor-on-Target event. It is owned by the caller until
// handed to a Codec, which produces an independent byte buffer; the
// Event itself is never retained by the library.
type Event struct {
	// UID uniquely identifies the entity this event describes.
	UID string

	// Type is the CoT type code, e.g. "a-f-G-E-V-C".
	Type string

	// How describes how the event was generated, e.g. "m-g".
	How string

	// Time is the event generation time.
	Time time.Time

	// Stale is the instant after which the event should be discarded.
	// Must not be before Time.
	Stale time.Time

	// Access, QoS and Opex are optional CoT event attributes.
	Access string
	QoS    string
	Opex   string

	// Point is the entity position. A nil point encodes as the origin
	// with unknown accuracy.
	Point *Point

	// Contact and PrecisionLocation are typed detail children.
	Contact           *Contact
	PrecisionLocation *PrecisionLocation

	// details holds additional raw XML detail fragments, in insertion
	// order. Managed through AddDetail.
	details []string
}

// NewEvent creates an event with the given uid and type code, stamped
// with the current time and the default how and stale window. The event
// is validated before it is returned.
func NewEvent(uid, typ string) (*Event, error) {
	// The wire form carries millisecond precision; truncate up front so
	// an event compares equal to its own decoded encoding.
	now := time.Now().UTC().Truncate(time.Millisecond)
	e := &Event{
		UID:   uid,
		Type:  typ,
		How:   DefaultHow,
		Time:  now,
		Stale: now.Add(DefaultStaleAfter),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// SetPoint sets latitude and longitude, preserving any existing
// altitude and accuracy values.
func (e *Event) SetPoint(lat, lon float64) {
	if e.Point != nil {
		e.Point.Lat = lat
		e.Point.Lon = lon
		return
	}
	e.Point = &Point{Lat: lat, Lon: lon, CE: UnknownAccuracy, LE: UnknownAccuracy}
}

// SetPointFull replaces the position with all fields specified.
func (e *Event) SetPointFull(lat, lon, hae, ce, le float64) {
	e.Point = &Point{Lat: lat, Lon: lon, HAE: hae, CE: ce, LE: le}
}

// SetContact sets or clears the contact detail. Passing two empty
// strings clears it.
func (e *Event) SetContact(callsign, endpoint string) {
	if callsign == "" && endpoint == "" {
		e.Contact = nil
		return
	}
	e.Contact = &Contact{Callsign: callsign, Endpoint: endpoint}
}

// SetPrecisionLocation sets or clears the precision-location detail.
// Passing two empty strings clears it.
func (e *Event) SetPrecisionLocation(geopointsrc, altsrc string) {
	if geopointsrc == "" && altsrc == "" {
		e.PrecisionLocation = nil
		return
	}
	e.PrecisionLocation = &PrecisionLocation{Geopointsrc: geopointsrc, Altsrc: altsrc}
}

// AddDetail appends a raw XML fragment to the detail block. The
// fragment must be a single well-formed XML element; it is stored in
// canonical serialized form so round-tripped events compare equal.
func (e *Event) AddDetail(fragment string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(fragment); err != nil {
		return fmt.Errorf("%w: detail fragment is not well-formed XML: %v", ErrValidation, err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("%w: detail fragment has no root element", ErrValidation)
	}
	canonical, err := serializeElement(root)
	if err != nil {
		return fmt.Errorf("%w: detail fragment: %v", ErrValidation, err)
	}
	e.details = append(e.details, canonical)
	return nil
}

// Details returns the raw XML detail fragments in insertion order.
func (e *Event) Details() []string {
	out := make([]string, len(e.details))
	copy(out, e.details)
	return out
}

// Validate checks the event invariants that must hold before encoding.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.UID) == "" {
		return fmt.Errorf("%w: uid must not be empty", ErrValidation)
	}
	if !typeCodePattern.MatchString(e.Type) {
		return fmt.Errorf("%w: type code %q does not match a-<affiliation>-<dimension>[-...]", ErrValidation, e.Type)
	}
	if e.Time.IsZero() {
		return fmt.Errorf("%w: time must be set", ErrValidation)
	}
	if e.Stale.Before(e.Time) {
		return fmt.Errorf("%w: stale %s is before time %s", ErrValidation,
			e.Stale.Format(time.RFC3339), e.Time.Format(time.RFC3339))
	}
	if p := e.Point; p != nil {
		if p.Lat < -90 || p.Lat > 90 {
			return fmt.Errorf("%w: latitude %g out of range [-90, 90]", ErrValidation, p.Lat)
		}
		if p.Lon < -180 || p.Lon > 180 {
			return fmt.Errorf("%w: longitude %g out of range [-180, 180]", ErrValidation, p.Lon)
		}
	}
	return nil
}

// Equal reports whether two events are semantically identical. Detail
// fragments compare by their canonical serialization.
func (e *Event) Equal(other *Event) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.UID != other.UID || e.Type != other.Type || e.How != other.How ||
		e.Access != other.Access || e.QoS != other.QoS || e.Opex != other.Opex {
		return false
	}
	if !e.Time.Equal(other.Time) || !e.Stale.Equal(other.Stale) {
		return false
	}
	if !pointEqual(e.Point, other.Point) {
		return false
	}
	if !contactEqual(e.Contact, other.Contact) {
		return false
	}
	if !precisionEqual(e.PrecisionLocation, other.PrecisionLocation) {
		return false
	}
	if len(e.details) != len(other.details) {
		return false
	}
	for i := range e.details {
		if e.details[i] != other.details[i] {
			return false
		}
	}
	return true
}

func pointEqual(a, b *Point) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func contactEqual(a, b *Contact) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func precisionEqual(a, b *PrecisionLocation) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// serializeElement renders a single element without indentation so the
// result is stable across parse/serialize cycles.
func serializeElement(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	doc.WriteSettings.CanonicalEndTags = true
	return doc.WriteToString()
}
