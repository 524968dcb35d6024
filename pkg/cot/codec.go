package cot

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/beevik/etree"
)

// TimeFormat is the CoT wire timestamp layout: UTC RFC 3339 with
// millisecond precision, as emitted by ATAK/TAK Server.
const TimeFormat = "2006-01-02T15:04:05.000Z"

// eventVersion is the CoT schema version carried on every event.
const eventVersion = "2.0"

// CodecOptions configures a Codec.
type CodecOptions struct {
	// AllowInvalid disables validation on both the encode and decode
	// paths. This is an insecure, testing-only escape hatch for fuzzing
	// and for interoperating with non-conformant peers. It is never the
	// default and enabling it is logged at Warn level.
	AllowInvalid bool

	// Logger receives the insecure-mode warning. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Codec serializes events to and from the CoT XML wire form.
type Codec struct {
	allowInvalid bool
}

// NewCodec creates a codec with default (validating) options.
func NewCodec() *Codec {
	return &Codec{}
}

// NewCodecWithOptions creates a codec with explicit options.
func NewCodecWithOptions(opts CodecOptions) *Codec {
	if opts.AllowInvalid {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("cot: codec validation DISABLED; insecure, for testing only")
	}
	return &Codec{allowInvalid: opts.AllowInvalid}
}

// Encode serializes the event to CoT XML. The event is validated first
// unless the codec was built with AllowInvalid; a validation failure is
// reported as ErrValidation, never written to the wire.
func (c *Codec) Encode(e *Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil event", ErrValidation)
	}
	if !c.allowInvalid {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)

	ev := doc.CreateElement("event")
	ev.CreateAttr("version", eventVersion)
	ev.CreateAttr("uid", e.UID)
	ev.CreateAttr("type", e.Type)
	ev.CreateAttr("how", e.How)
	ev.CreateAttr("time", e.Time.UTC().Format(TimeFormat))
	ev.CreateAttr("start", e.Time.UTC().Format(TimeFormat))
	ev.CreateAttr("stale", e.Stale.UTC().Format(TimeFormat))
	if e.Access != "" {
		ev.CreateAttr("access", e.Access)
	}
	if e.QoS != "" {
		ev.CreateAttr("qos", e.QoS)
	}
	if e.Opex != "" {
		ev.CreateAttr("opex", e.Opex)
	}

	p := e.Point
	if p == nil {
		p = &Point{CE: UnknownAccuracy, LE: UnknownAccuracy}
	}
	pt := ev.CreateElement("point")
	pt.CreateAttr("lat", formatFloat(p.Lat))
	pt.CreateAttr("lon", formatFloat(p.Lon))
	pt.CreateAttr("hae", formatFloat(p.HAE))
	pt.CreateAttr("ce", formatFloat(p.CE))
	pt.CreateAttr("le", formatFloat(p.LE))

	detail := ev.CreateElement("detail")
	if e.Contact != nil {
		ct := detail.CreateElement("contact")
		if e.Contact.Callsign != "" {
			ct.CreateAttr("callsign", e.Contact.Callsign)
		}
		if e.Contact.Endpoint != "" {
			ct.CreateAttr("endpoint", e.Contact.Endpoint)
		}
	}
	if e.PrecisionLocation != nil {
		pl := detail.CreateElement("precisionlocation")
		pl.CreateAttr("geopointsrc", e.PrecisionLocation.Geopointsrc)
		pl.CreateAttr("altsrc", e.PrecisionLocation.Altsrc)
	}
	for _, fragment := range e.details {
		frag := etree.NewDocument()
		if err := frag.ReadFromString(fragment); err != nil {
			// Fragments are canonicalized by AddDetail, so a parse
			// failure here means the Event was mutated behind our back.
			return nil, fmt.Errorf("%w: stored detail fragment unparsable: %v", ErrEncode, err)
		}
		detail.AddChild(frag.Root().Copy())
	}

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return out, nil
}

// Decode parses CoT XML back into the typed model. Schema violations
// (missing mandatory attributes, malformed point) are reported as
// ErrDecode; validation failures on an otherwise parsable event are
// reported as ErrValidation unless AllowInvalid is set.
func (c *Codec) Decode(data []byte) (*Event, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "event" {
		return nil, fmt.Errorf("%w: missing event element", ErrDecode)
	}

	e := &Event{
		UID:    root.SelectAttrValue("uid", ""),
		Type:   root.SelectAttrValue("type", ""),
		How:    root.SelectAttrValue("how", ""),
		Access: root.SelectAttrValue("access", ""),
		QoS:    root.SelectAttrValue("qos", ""),
		Opex:   root.SelectAttrValue("opex", ""),
	}
	for _, attr := range []string{"uid", "type", "time", "stale"} {
		if root.SelectAttr(attr) == nil {
			return nil, fmt.Errorf("%w: missing mandatory attribute %q", ErrDecode, attr)
		}
	}

	var err error
	if e.Time, err = parseTime(root.SelectAttrValue("time", "")); err != nil {
		return nil, fmt.Errorf("%w: time: %v", ErrDecode, err)
	}
	if e.Stale, err = parseTime(root.SelectAttrValue("stale", "")); err != nil {
		return nil, fmt.Errorf("%w: stale: %v", ErrDecode, err)
	}

	pt := root.SelectElement("point")
	if pt == nil {
		return nil, fmt.Errorf("%w: missing point element", ErrDecode)
	}
	p := &Point{}
	for _, f := range []struct {
		attr string
		dst  *float64
	}{
		{"lat", &p.Lat}, {"lon", &p.Lon}, {"hae", &p.HAE}, {"ce", &p.CE}, {"le", &p.LE},
	} {
		raw := pt.SelectAttrValue(f.attr, "")
		if raw == "" {
			return nil, fmt.Errorf("%w: point missing attribute %q", ErrDecode, f.attr)
		}
		if *f.dst, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("%w: point %s=%q is not a number", ErrDecode, f.attr, raw)
		}
	}
	e.Point = p

	if detail := root.SelectElement("detail"); detail != nil {
		for _, child := range detail.ChildElements() {
			switch child.Tag {
			case "contact":
				e.Contact = &Contact{
					Callsign: child.SelectAttrValue("callsign", ""),
					Endpoint: child.SelectAttrValue("endpoint", ""),
				}
			case "precisionlocation":
				e.PrecisionLocation = &PrecisionLocation{
					Geopointsrc: child.SelectAttrValue("geopointsrc", ""),
					Altsrc:      child.SelectAttrValue("altsrc", ""),
				}
			default:
				canonical, serr := serializeElement(child)
				if serr != nil {
					return nil, fmt.Errorf("%w: detail fragment: %v", ErrDecode, serr)
				}
				e.details = append(e.details, canonical)
			}
		}
	}

	if !c.allowInvalid {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// formatFloat renders point attributes compactly (no trailing zeros).
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
